package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"upbot/internal/domain"
)

func snapshot(btc, avgBuy float64) domain.PortfolioSnapshot {
	return domain.NewPortfolioSnapshot([]domain.RawBalance{
		{Currency: "KRW", Balance: decimal.Zero},
		{Currency: "BTC", Balance: decimal.NewFromFloat(btc), AvgBuyPrice: decimal.NewFromFloat(avgBuy)},
	}, "KRW", "BTC")
}

func TestFromSnapshot(t *testing.T) {
	// bought 0.01 BTC at 45M, now worth 50M
	got := FromSnapshot(snapshot(0.01, 45000000), decimal.NewFromInt(50000000))

	require.True(t, got.InitialInvestment.Equal(decimal.NewFromInt(450000)))
	require.True(t, got.CurrentValuation.Equal(decimal.NewFromInt(500000)))
	require.True(t, got.Profit.Equal(decimal.NewFromInt(50000)))
	// 50000/450000*100 = 11.11%
	require.True(t, got.ProfitRate.Equal(decimal.NewFromFloat(11.11)), "got %s", got.ProfitRate)
}

func TestFromSnapshotLoss(t *testing.T) {
	got := FromSnapshot(snapshot(0.01, 50000000), decimal.NewFromInt(45000000))

	require.True(t, got.Profit.Equal(decimal.NewFromInt(-50000)))
	require.True(t, got.ProfitRate.IsNegative())
}

func TestFromSnapshotZeroInvestmentGuard(t *testing.T) {
	got := FromSnapshot(snapshot(0, 0), decimal.NewFromInt(50000000))

	require.True(t, got.Profit.IsZero())
	require.True(t, got.ProfitRate.IsZero(), "zero investment must yield zero rate, got %s", got.ProfitRate)
}

func trade(action domain.Action, amount, price float64, t time.Time) domain.TradeRecord {
	a := decimal.NewFromFloat(amount)
	p := decimal.NewFromFloat(price)
	return domain.TradeRecord{
		Timestamp:  t,
		Action:     action,
		Currency:   "BTC",
		Amount:     a,
		Price:      p,
		TotalValue: totalValue(action, a, p),
	}
}

func totalValue(action domain.Action, amount, price decimal.Decimal) decimal.Decimal {
	if action == domain.ActionBuy {
		// buy amounts are cash sums
		return amount
	}
	return amount.Mul(price)
}

func TestReplayRealizesProportionally(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []domain.TradeRecord{
		// buy 100_000 KRW at 50M -> 0.002 BTC
		trade(domain.ActionBuy, 100000, 50000000, base),
		// sell 0.001 BTC at 60M -> proceeds 60_000, cost basis 50_000
		trade(domain.ActionSell, 0.001, 60000000, base.Add(time.Hour)),
	}

	got := Replay(trades)

	require.True(t, got.Profit.Equal(decimal.NewFromInt(10000)), "got %s", got.Profit)
	// remaining running investment is the unsold half
	require.True(t, got.CurrentValuation.Equal(decimal.NewFromInt(50000)), "got %s", got.CurrentValuation)
	// 10000/100000*100 = 10%
	require.True(t, got.ProfitRate.Equal(decimal.NewFromInt(10)), "got %s", got.ProfitRate)
}

func TestReplayMultipleBuysAverageCost(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []domain.TradeRecord{
		// 0.002 BTC at 50M and 0.001 BTC at 80M: 0.003 BTC for 180_000
		trade(domain.ActionBuy, 100000, 50000000, base),
		trade(domain.ActionBuy, 80000, 80000000, base.Add(time.Hour)),
		// sell everything at 70M: proceeds 210_000
		trade(domain.ActionSell, 0.003, 70000000, base.Add(2*time.Hour)),
	}

	got := Replay(trades)

	require.True(t, got.Profit.Equal(decimal.NewFromInt(30000)), "got %s", got.Profit)
	require.True(t, got.CurrentValuation.IsZero(), "got %s", got.CurrentValuation)
}

func TestReplayEmptyHistory(t *testing.T) {
	got := Replay(nil)

	require.True(t, got.Profit.IsZero())
	require.True(t, got.ProfitRate.IsZero())
}

func TestReplaySellWithoutPosition(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Replay([]domain.TradeRecord{
		trade(domain.ActionSell, 0.001, 60000000, base),
	})

	require.True(t, got.Profit.IsZero())
	require.True(t, got.ProfitRate.IsZero())
}

func TestAccumulateSeedsFromZero(t *testing.T) {
	profit, rate := Accumulate(nil, decimal.NewFromInt(10000), decimal.NewFromInt(100000))

	require.True(t, profit.Equal(decimal.NewFromInt(10000)))
	require.True(t, rate.Equal(decimal.NewFromInt(10)))
}

func TestAccumulateAmountWeighted(t *testing.T) {
	prev := &domain.PerformanceRecord{
		CumulativeProfit:     decimal.NewFromInt(10000),
		CumulativeProfitRate: decimal.NewFromInt(10),
	}

	// second cycle: +1_000 profit; lifetime investment now 1_100_000.
	// weighted rate = 11000/1100000*100 = 1%, nowhere near the 30%
	// an arithmetic mean of rates (10% and 50%) would suggest.
	profit, rate := Accumulate(prev, decimal.NewFromInt(1000), decimal.NewFromInt(1100000))

	require.True(t, profit.Equal(decimal.NewFromInt(11000)))
	require.True(t, rate.Equal(decimal.NewFromInt(1)), "got %s", rate)
}

func TestAccumulateZeroInvestment(t *testing.T) {
	profit, rate := Accumulate(nil, decimal.NewFromInt(500), decimal.Zero)

	require.True(t, profit.Equal(decimal.NewFromInt(500)))
	require.True(t, rate.IsZero())
}
