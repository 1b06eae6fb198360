package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultMarket        = "KRW-BTC"
	defaultMinOrderValue = "5000"
	defaultFeeRate       = "0.0005"
	defaultPollInterval  = 15 * time.Minute
	defaultDBPath        = "./upbot.db"
	defaultWALDir        = "./wal/advices"
	defaultListenAddr    = ":8080"
	defaultLLMAPIURL     = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel      = "gpt-4o"
)

// Secrets are taken from the environment (or .env via godotenv), never
// from the YAML file.
const (
	EnvUpbitAccessKey = "UPBIT_ACCESS_KEY"
	EnvUpbitSecretKey = "UPBIT_SECRET_KEY"
	EnvLLMAPIKey      = "OPENAI_API_KEY"
	EnvSlackToken     = "SLACK_BOT_TOKEN"
	EnvSlackChannel   = "SLACK_CHANNEL_ID"
)

// Config is the full runtime configuration of the bot.
type Config struct {
	Market        string
	CashCurrency  string
	AssetCurrency string
	MinOrderValue decimal.Decimal
	FeeRate       decimal.Decimal
	PollInterval  time.Duration
	DBPath        string
	WALDir        string
	ListenAddr    string

	LLMAPIURL string
	LLMModel  string

	UpbitAccessKey string
	UpbitSecretKey string
	LLMAPIKey      string
	SlackToken     string
	SlackChannel   string
}

type configTmp struct {
	Market           string        `yaml:"market"`
	MinOrderValueStr string        `yaml:"min_order_value,omitempty"`
	FeeRateStr       string        `yaml:"fee_rate,omitempty"`
	PollInterval     time.Duration `yaml:"poll_interval,omitempty"`
	DBPath           string        `yaml:"db_path,omitempty"`
	WALDir           string        `yaml:"wal_dir,omitempty"`
	ListenAddr       string        `yaml:"listen_addr,omitempty"`
	LLMAPIURL        string        `yaml:"llm_api_url,omitempty"`
	LLMModel         string        `yaml:"llm_model,omitempty"`
}

// Get builds the configuration from the optional --config YAML file,
// falling back to CLI flags, then fills secrets from the environment.
func Get() (*Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	market := flag.String("market", defaultMarket, "market to trade, example: KRW-BTC")
	pollInterval := flag.Duration("pollinterval", defaultPollInterval, "trading cycle interval")
	flag.Parse()

	tmp := configTmp{
		Market:       *market,
		PollInterval: *pollInterval,
	}
	if *configPath != "" {
		f, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
	}

	return fromTmp(tmp)
}

func fromTmp(tmp configTmp) (*Config, error) {
	cfg := &Config{
		Market:       orDefault(tmp.Market, defaultMarket),
		PollInterval: tmp.PollInterval,
		DBPath:       orDefault(tmp.DBPath, defaultDBPath),
		WALDir:       orDefault(tmp.WALDir, defaultWALDir),
		ListenAddr:   orDefault(tmp.ListenAddr, defaultListenAddr),
		LLMAPIURL:    orDefault(tmp.LLMAPIURL, defaultLLMAPIURL),
		LLMModel:     orDefault(tmp.LLMModel, defaultLLMModel),

		UpbitAccessKey: os.Getenv(EnvUpbitAccessKey),
		UpbitSecretKey: os.Getenv(EnvUpbitSecretKey),
		LLMAPIKey:      os.Getenv(EnvLLMAPIKey),
		SlackToken:     os.Getenv(EnvSlackToken),
		SlackChannel:   os.Getenv(EnvSlackChannel),
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	var err error
	cfg.CashCurrency, cfg.AssetCurrency, err = splitMarket(cfg.Market)
	if err != nil {
		return nil, err
	}

	cfg.MinOrderValue, err = decimal.NewFromString(orDefault(tmp.MinOrderValueStr, defaultMinOrderValue))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid min_order_value %q", tmp.MinOrderValueStr)
	}
	cfg.FeeRate, err = decimal.NewFromString(orDefault(tmp.FeeRateStr, defaultFeeRate))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid fee_rate %q", tmp.FeeRateStr)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if !c.MinOrderValue.IsPositive() {
		return errors.Errorf("min_order_value must be positive, got %s", c.MinOrderValue)
	}
	if c.FeeRate.IsNegative() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.Errorf("fee_rate must be in [0, 1), got %s", c.FeeRate)
	}
	return nil
}

// splitMarket parses an exchange market code like "KRW-BTC" into its
// cash and asset currencies.
func splitMarket(market string) (cash, asset string, err error) {
	parts := strings.Split(market, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("invalid market %q, expected format like KRW-BTC", market)
	}
	return parts[0], parts[1], nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
