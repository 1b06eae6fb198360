package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"upbot/config"
	"upbot/internal/domain"
	"upbot/internal/services/advisor"
	"upbot/internal/services/market/indicators"
	"upbot/internal/services/market/summarizer"
	"upbot/internal/services/pnl"
	"upbot/internal/services/validator"
)

const (
	dailyCandleCount  = 30
	minuteCandleUnit  = 5
	minuteCandleCount = 200 // Upbit caps candle requests at 200 bars
)

// ExchangeClient is the exchange surface the bot needs.
type ExchangeClient interface {
	CurrentPrice(ctx context.Context, market string) (decimal.Decimal, error)
	Volume24h(ctx context.Context, market string) (decimal.Decimal, error)
	DayCandles(ctx context.Context, market string, count int) ([]domain.Candle, error)
	MinuteCandles(ctx context.Context, market string, unit, count int) ([]domain.Candle, error)
	Holdings(ctx context.Context) ([]domain.RawBalance, error)
	Execute(ctx context.Context, action domain.Action, amount decimal.Decimal, market string) (*domain.OrderResult, error)
}

// AdviceProvider proposes a trade for the given market context.
type AdviceProvider interface {
	Propose(ctx context.Context, mc advisor.MarketContext) (*domain.Advice, error)
	Model() string
}

// CycleStore persists cycle outcomes and serves the running aggregates.
type CycleStore interface {
	RecordCycle(trade *domain.TradeRecord, perf *domain.PerformanceRecord, snapshot domain.PortfolioSnapshot, cashCurrency string) error
	LatestPerformance() (*domain.PerformanceRecord, error)
	CumulativeBuyInvestment() (decimal.Decimal, error)
}

// AdviceJournal records every advisor response.
type AdviceJournal interface {
	Save(event domain.AdviceEvent) error
}

// Notifier delivers cycle reports. A nil Notifier disables reporting.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// TradingBot runs the periodic decision cycle for a single market.
// Everything downstream of the price and balance fetch degrades
// gracefully: a failed stage either substitutes a placeholder or turns
// the cycle into a hold, it never crashes the loop.
type TradingBot struct {
	exchange  ExchangeClient
	advisor   AdviceProvider
	validator *validator.Validator
	store     CycleStore
	journal   AdviceJournal
	notifier  Notifier
	cfg       *config.Config
	logger    *zap.Logger
}

// NewTradingBot wires the cycle collaborators together.
func NewTradingBot(exchange ExchangeClient, advice AdviceProvider, val *validator.Validator,
	store CycleStore, journal AdviceJournal, notifier Notifier,
	cfg *config.Config, logger *zap.Logger) *TradingBot {
	return &TradingBot{
		exchange:  exchange,
		advisor:   advice,
		validator: val,
		store:     store,
		journal:   journal,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With(zap.String("market", cfg.Market)),
	}
}

// Run executes the first cycle immediately, then on the configured
// interval until ctx is cancelled. An overrunning cycle causes the next
// tick to be skipped rather than stacking up.
func (b *TradingBot) Run(ctx context.Context) error {
	b.logger.Info("starting trading loop", zap.Duration("poll_interval", b.cfg.PollInterval))

	b.runCycle(ctx)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", b.cfg.PollInterval), func() {
		b.runCycle(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "schedule trading cycle")
	}

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	b.logger.Info("trading loop stopped")
	return ctx.Err()
}

// runCycle performs one full decision cycle. Errors are handled stage
// by stage; the method never returns one.
func (b *TradingBot) runCycle(ctx context.Context) {
	started := time.Now()

	price, err := b.exchange.CurrentPrice(ctx, b.cfg.Market)
	if err != nil {
		b.logger.Error("price fetch failed, skipping cycle", zap.Error(err))
		return
	}
	if !price.IsPositive() {
		b.logger.Error("non-positive price, skipping cycle", zap.String("price", price.String()))
		return
	}

	balances, err := b.exchange.Holdings(ctx)
	if err != nil {
		b.logger.Error("balance fetch failed, skipping cycle", zap.Error(err))
		return
	}
	snapshot := domain.NewPortfolioSnapshot(balances, b.cfg.CashCurrency, b.cfg.AssetCurrency)
	if err := snapshot.Validate(); err != nil {
		b.logger.Error("inconsistent portfolio snapshot, skipping cycle", zap.Error(err))
		return
	}

	mc := b.collectMarketContext(ctx, snapshot, price)

	advice, err := b.advisor.Propose(ctx, mc)
	if err != nil {
		b.logger.Warn("advisor unavailable, holding", zap.Error(err))
	}

	decision := b.validator.Validate(advice, snapshot, price)
	b.logger.Info("cycle decision",
		zap.String("decision", decision.String()),
		zap.String("price", price.String()))

	b.journalAdvice(mc, advice, decision)

	trade := b.execute(ctx, advice, decision, price)
	if trade != nil {
		// refresh so PnL sees the post-trade position
		if balances, err = b.exchange.Holdings(ctx); err != nil {
			b.logger.Warn("post-trade balance fetch failed, using pre-trade snapshot", zap.Error(err))
		} else {
			snapshot = domain.NewPortfolioSnapshot(balances, b.cfg.CashCurrency, b.cfg.AssetCurrency)
		}
	}

	// performance rows exist only for cycles that traded; a hold cycle
	// must not roll its unrealized profit into the running cumulative
	var perf *domain.PerformanceRecord
	if trade != nil {
		perf = b.computePerformance(snapshot, price)
	}

	if err := b.store.RecordCycle(trade, perf, snapshot, b.cfg.CashCurrency); err != nil {
		b.logger.Error("cycle persistence failed", zap.Error(err))
	}

	b.notify(ctx, decision, trade, perf, price)

	b.logger.Info("cycle finished", zap.Duration("took", time.Since(started)))
}

// collectMarketContext gathers everything the advisor sees. Summary and
// indicator failures leave the corresponding field nil.
func (b *TradingBot) collectMarketContext(ctx context.Context, snapshot domain.PortfolioSnapshot, price decimal.Decimal) advisor.MarketContext {
	mc := advisor.MarketContext{
		Timestamp:    time.Now(),
		Market:       b.cfg.Market,
		CurrentPrice: price,
		Portfolio:    snapshot,
	}

	volume, err := b.exchange.Volume24h(ctx, b.cfg.Market)
	if err != nil {
		b.logger.Warn("24h volume fetch failed", zap.Error(err))
	} else {
		mc.Volume24h = volume
	}

	if daily, err := b.exchange.DayCandles(ctx, b.cfg.Market, dailyCandleCount); err != nil {
		b.logger.Warn("daily candle fetch failed", zap.Error(err))
	} else if sum, err := summarizer.Daily(daily); err != nil {
		b.logger.Warn("daily summary failed", zap.Error(err))
	} else {
		mc.DailySummary = sum
	}

	minute, err := b.exchange.MinuteCandles(ctx, b.cfg.Market, minuteCandleUnit, minuteCandleCount)
	if err != nil {
		b.logger.Warn("minute candle fetch failed", zap.Error(err))
		return mc
	}

	if sum, err := summarizer.Intraday(minute); err != nil {
		b.logger.Warn("intraday summary failed", zap.Error(err))
	} else {
		mc.IntradaySummary = sum
	}

	if snap, err := indicators.FromCandles(minute); err != nil {
		b.logger.Warn("indicator computation failed", zap.Error(err))
	} else {
		mc.Indicators = snap
	}

	return mc
}

func (b *TradingBot) journalAdvice(mc advisor.MarketContext, advice *domain.Advice, decision domain.Decision) {
	if b.journal == nil || advice == nil {
		return
	}

	event := domain.AdviceEvent{
		Timestamp:       mc.Timestamp,
		Market:          mc.Market,
		Model:           b.advisor.Model(),
		Action:          advice.Action,
		Amount:          advice.Amount,
		Reason:          advice.Reason,
		CurrentPrice:    mc.CurrentPrice.String(),
		CashBalance:     mc.Portfolio.CashBalance.String(),
		AssetBalance:    mc.Portfolio.TargetAsset.Balance.String(),
		ValidatedAction: decision.Action.String(),
		ValidatedAmount: decision.Amount.String(),
	}
	if err := b.journal.Save(event); err != nil {
		b.logger.Warn("advice journaling failed", zap.Error(err))
	}
}

// execute places the validated order and builds its trade record. A
// failed order leaves the cycle as a hold.
func (b *TradingBot) execute(ctx context.Context, advice *domain.Advice, decision domain.Decision, price decimal.Decimal) *domain.TradeRecord {
	if decision.IsHold() {
		return nil
	}

	result, err := b.exchange.Execute(ctx, decision.Action, decision.Amount, b.cfg.Market)
	if err != nil {
		b.logger.Error("order execution failed", zap.String("decision", decision.String()), zap.Error(err))
		return nil
	}

	trade := &domain.TradeRecord{
		Timestamp: time.Now(),
		Action:    decision.Action,
		Currency:  b.cfg.AssetCurrency,
	}
	if advice != nil {
		trade.Reason = advice.Reason
	}

	// buy decisions carry a cash sum, sell decisions an asset quantity
	switch decision.Action {
	case domain.ActionBuy:
		trade.TotalValue = decision.Amount
		trade.Price = price
		trade.Amount = decision.Amount.Div(price)
	case domain.ActionSell:
		trade.Amount = decision.Amount
		trade.Price = price
		trade.TotalValue = decision.Amount.Mul(price)
	}

	b.logger.Info("order executed",
		zap.String("order_id", result.OrderID),
		zap.String("action", trade.Action.String()),
		zap.String("amount", trade.Amount.String()),
		zap.String("total_value", trade.TotalValue.String()))

	return trade
}

// computePerformance derives the cycle's profit figures from the final
// snapshot and the stored running aggregates.
func (b *TradingBot) computePerformance(snapshot domain.PortfolioSnapshot, price decimal.Decimal) *domain.PerformanceRecord {
	cycle := pnl.FromSnapshot(snapshot, price)

	prev, err := b.store.LatestPerformance()
	if err != nil {
		b.logger.Warn("previous performance lookup failed", zap.Error(err))
		return nil
	}
	investment, err := b.store.CumulativeBuyInvestment()
	if err != nil {
		b.logger.Warn("cumulative investment lookup failed", zap.Error(err))
		return nil
	}

	cumProfit, cumRate := pnl.Accumulate(prev, cycle.Profit, investment)
	return &domain.PerformanceRecord{
		Timestamp:            time.Now(),
		Profit:               cycle.Profit,
		ProfitRate:           cycle.ProfitRate,
		CumulativeProfit:     cumProfit,
		CumulativeProfitRate: cumRate,
	}
}

func (b *TradingBot) notify(ctx context.Context, decision domain.Decision, trade *domain.TradeRecord, perf *domain.PerformanceRecord, price decimal.Decimal) {
	if b.notifier == nil {
		return
	}

	text := fmt.Sprintf("[%s] decision: %s, price: %s", b.cfg.Market, decision.String(), price.String())
	if trade != nil {
		text += fmt.Sprintf("\nexecuted %s %s %s (total %s %s): %s",
			trade.Action.String(), trade.Amount.String(), trade.Currency,
			trade.TotalValue.String(), b.cfg.CashCurrency, trade.Reason)
	}
	if perf != nil {
		text += fmt.Sprintf("\nprofit: %s (%s%%), cumulative: %s (%s%%)",
			perf.Profit.String(), perf.ProfitRate.String(),
			perf.CumulativeProfit.String(), perf.CumulativeProfitRate.String())
	}

	if err := b.notifier.Send(ctx, text); err != nil {
		b.logger.Warn("notification failed", zap.Error(err))
	}
}
