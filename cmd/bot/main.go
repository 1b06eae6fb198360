// Command bot runs the LLM-advised trading bot for a single Upbit
// market. It fetches market data and balances every cycle, asks the
// configured model for a recommendation, validates it against exchange
// constraints and executes the approved trade.
//
// Usage:
//
//	bot --config config.yaml
//	bot --market KRW-BTC --pollinterval 15m
//
// Required environment variables (a .env file is honored):
//
//	UPBIT_ACCESS_KEY, UPBIT_SECRET_KEY, OPENAI_API_KEY
//
// Optional:
//
//	SLACK_BOT_TOKEN, SLACK_CHANNEL_ID
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"upbot/config"
	"upbot/internal"
	"upbot/internal/clients"
	"upbot/internal/services/advisor"
	"upbot/internal/services/validator"
	"upbot/internal/storage"
	"upbot/internal/storage/advices"
	"upbot/internal/web"
)

func main() {
	// missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.UpbitAccessKey == "" || cfg.UpbitSecretKey == "" {
		log.Fatalf("%s and %s environment variables must be set", config.EnvUpbitAccessKey, config.EnvUpbitSecretKey)
	}
	if cfg.LLMAPIKey == "" {
		log.Fatalf("%s environment variable must be set", config.EnvLLMAPIKey)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	journal, err := advices.NewWALStore(cfg.WALDir)
	if err != nil {
		logger.Fatal("open advice journal", zap.Error(err))
	}
	defer journal.Close()

	exchange := clients.NewUpbitClient(cfg.UpbitAccessKey, cfg.UpbitSecretKey)
	llm := clients.NewOpenAICompatibleClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel)

	var notifier internal.Notifier
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		slack := clients.NewSlackNotifier(cfg.SlackToken, cfg.SlackChannel)
		if err := slack.CheckConnection(ctx); err != nil {
			logger.Warn("slack connection check failed, notifications disabled", zap.Error(err))
		} else {
			notifier = slack
		}
	}

	adv := advisor.New(llm, cfg.LLMModel, cfg.MinOrderValue, cfg.FeeRate, cfg.PollInterval, logger)
	val := validator.New(cfg.FeeRate, cfg.MinOrderValue, cfg.CashCurrency, logger)

	bot := internal.NewTradingBot(exchange, adv, val, store, journal, notifier, cfg, logger)

	server := web.NewServer(cfg.ListenAddr, store, journal, logger)
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("status server failed", zap.Error(err))
		}
	}()

	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("trading loop failed", zap.Error(err))
	}
}
