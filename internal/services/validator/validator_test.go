package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"upbot/internal/domain"
)

func newTestValidator() *Validator {
	return New(
		decimal.NewFromFloat(0.0005),
		decimal.NewFromInt(5000),
		"KRW",
		zap.NewNop(),
	)
}

func portfolioWith(cash float64, btc float64, avgBuy float64) domain.PortfolioSnapshot {
	return domain.NewPortfolioSnapshot([]domain.RawBalance{
		{Currency: "KRW", Balance: decimal.NewFromFloat(cash)},
		{Currency: "BTC", Balance: decimal.NewFromFloat(btc), AvgBuyPrice: decimal.NewFromFloat(avgBuy)},
	}, "KRW", "BTC")
}

func TestValidateBuyClampsToAffordableCash(t *testing.T) {
	// cash 100_000, fee 0.0005, requested 200_000:
	// approved must be exactly 100000/1.0005
	v := newTestValidator()
	p := portfolioWith(100000, 0, 0)

	got := v.Validate(&domain.Advice{Action: "buy", Amount: "200000 KRW", Reason: "r"}, p, decimal.NewFromInt(50000000))

	want := decimal.NewFromInt(100000).Div(decimal.NewFromFloat(1.0005))
	require.Equal(t, domain.ActionBuy, got.Action)
	require.True(t, got.Amount.Equal(want), "got %s want %s", got.Amount, want)
}

func TestValidateBuyInsufficientFunds(t *testing.T) {
	// cash 3000: max affordable ~2998.5 < 5000, hold regardless of request
	v := newTestValidator()
	p := portfolioWith(3000, 0, 0)

	for _, amount := range []string{"4000 KRW", "5000 KRW", "1000000 KRW"} {
		got := v.Validate(&domain.Advice{Action: "buy", Amount: amount, Reason: "r"}, p, decimal.NewFromInt(50000000))
		require.True(t, got.IsHold(), "amount %s must hold", amount)
		require.True(t, got.Amount.IsZero())
	}
}

func TestValidateBuyRequestTooSmall(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(100000, 0, 0)

	got := v.Validate(&domain.Advice{Action: "buy", Amount: "4999 KRW", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.True(t, got.IsHold())
}

func TestValidateBuyWithinBalanceUnchanged(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(100000, 0, 0)

	got := v.Validate(&domain.Advice{Action: "buy", Amount: "50000 KRW", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.Equal(t, domain.ActionBuy, got.Action)
	require.True(t, got.Amount.Equal(decimal.NewFromInt(50000)))
}

func TestValidateBuyAssetUnitConvertedAtPrice(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(1000000, 0, 0)

	// 0.0002 BTC at 50M KRW = 10_000 KRW
	got := v.Validate(&domain.Advice{Action: "buy", Amount: "0.0002 BTC", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.Equal(t, domain.ActionBuy, got.Action)
	require.True(t, got.Amount.Equal(decimal.NewFromInt(10000)), "got %s", got.Amount)
}

func TestValidateSellOversellRejected(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(0, 0.01, 45000000)

	got := v.Validate(&domain.Advice{Action: "sell", Amount: "0.02 BTC", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.True(t, got.IsHold())
}

func TestValidateSellBelowMinimumRejected(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(0, 0.01, 45000000)

	// 0.00009 BTC * 50M = 4500 KRW < 5000
	got := v.Validate(&domain.Advice{Action: "sell", Amount: "0.00009 BTC", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.True(t, got.IsHold())
}

func TestValidateSellBoundaryInclusive(t *testing.T) {
	// 0.0001 BTC * 50M = exactly 5000 KRW, must pass
	v := newTestValidator()
	p := portfolioWith(0, 0.01, 45000000)

	got := v.Validate(&domain.Advice{Action: "sell", Amount: "0.0001 BTC", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.Equal(t, domain.ActionSell, got.Action)
	require.True(t, got.Amount.Equal(decimal.NewFromFloat(0.0001)))
}

func TestValidateSellNeverAdjusts(t *testing.T) {
	// sell side accepts or rejects, it does not shrink the request
	v := newTestValidator()
	p := portfolioWith(0, 0.005, 45000000)

	got := v.Validate(&domain.Advice{Action: "sell", Amount: "0.006 BTC", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.True(t, got.IsHold())
	require.True(t, got.Amount.IsZero())
}

func TestValidateSellCashAmountConverted(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(0, 0.01, 45000000)

	// 100_000 KRW at 50M KRW/BTC = 0.002 BTC, within holdings
	got := v.Validate(&domain.Advice{Action: "sell", Amount: "100000 KRW", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.Equal(t, domain.ActionSell, got.Action)
	require.True(t, got.Amount.Equal(decimal.NewFromFloat(0.002)), "got %s", got.Amount)
}

func TestValidateHoldShortCircuits(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(100000, 0.01, 45000000)

	got := v.Validate(&domain.Advice{Action: "hold", Amount: "", Reason: "r"}, p, decimal.NewFromInt(50000000))
	require.True(t, got.IsHold())
	require.True(t, got.Amount.IsZero())
}

func TestValidateMalformedAmountDegradesToHold(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(100000, 0.01, 45000000)

	for _, amount := range []string{"", "all in", "NaN KRW", "10% of balance"} {
		got := v.Validate(&domain.Advice{Action: "buy", Amount: amount, Reason: "r"}, p, decimal.NewFromInt(50000000))
		require.True(t, got.IsHold(), "amount %q must hold", amount)
	}
}

func TestValidateNilAdvice(t *testing.T) {
	v := newTestValidator()
	got := v.Validate(nil, portfolioWith(100000, 0, 0), decimal.NewFromInt(50000000))
	require.True(t, got.IsHold())
}

func TestValidateIdempotent(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(100000, 0.01, 45000000)
	advice := &domain.Advice{Action: "buy", Amount: "200000 KRW", Reason: "r"}
	price := decimal.NewFromInt(50000000)

	first := v.Validate(advice, p, price)
	second := v.Validate(advice, p, price)
	require.Equal(t, first.Action, second.Action)
	require.True(t, first.Amount.Equal(second.Amount))
}

func TestValidateBuyHeuristicBareAmounts(t *testing.T) {
	v := newTestValidator()
	p := portfolioWith(1000000, 0, 0)
	price := decimal.NewFromInt(50000000)

	tests := []struct {
		name   string
		amount string
		want   decimal.Decimal
	}{
		{
			// bare value >= 5000 parses as KRW and is spent as-is
			name:   "bare cash amount",
			amount: "10000",
			want:   decimal.NewFromInt(10000),
		},
		{
			// bare value < 5000 parses as BTC quantity, converted at price
			name:   "bare asset quantity",
			amount: "0.001",
			want:   decimal.NewFromInt(50000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(&domain.Advice{Action: "buy", Amount: tt.amount, Reason: "r"}, p, price)
			require.Equal(t, domain.ActionBuy, got.Action)
			require.True(t, got.Amount.Equal(tt.want), "got %s want %s", got.Amount, tt.want)
		})
	}
}
