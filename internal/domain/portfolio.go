package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// RawBalance is one row from the exchange accounts endpoint.
type RawBalance struct {
	Currency    string
	Balance     decimal.Decimal
	AvgBuyPrice decimal.Decimal
}

// AssetPosition holds the target asset part of a portfolio snapshot.
type AssetPosition struct {
	Currency    string
	Balance     decimal.Decimal
	AvgBuyPrice decimal.Decimal
	// Investment is Balance * AvgBuyPrice rounded to 2 decimal places.
	// The exchange does not track lot-level cost basis across partial
	// sells, so this is a point-in-time estimate.
	Investment decimal.Decimal
}

// IsZero reports whether the position holds nothing.
func (p AssetPosition) IsZero() bool {
	return p.Balance.IsZero()
}

// PortfolioSnapshot is a single-asset view of the exchange account.
// It is rebuilt from scratch every cycle and never mutated in place.
type PortfolioSnapshot struct {
	CashBalance decimal.Decimal
	TargetAsset AssetPosition
}

// NewPortfolioSnapshot normalizes raw account balances into a snapshot.
// The cash entry is matched by cashCurrency (e.g. "KRW"). A missing
// target entry is synthesized as a zero position so downstream code
// treats "never bought" and "sold everything" identically.
func NewPortfolioSnapshot(balances []RawBalance, cashCurrency, targetCurrency string) PortfolioSnapshot {
	snapshot := PortfolioSnapshot{
		CashBalance: decimal.Zero,
		TargetAsset: AssetPosition{
			Currency:    targetCurrency,
			Balance:     decimal.Zero,
			AvgBuyPrice: decimal.Zero,
			Investment:  decimal.Zero,
		},
	}

	for _, b := range balances {
		switch b.Currency {
		case cashCurrency:
			snapshot.CashBalance = b.Balance
		case targetCurrency:
			snapshot.TargetAsset = AssetPosition{
				Currency:    b.Currency,
				Balance:     b.Balance,
				AvgBuyPrice: b.AvgBuyPrice,
				Investment:  b.Balance.Mul(b.AvgBuyPrice).Round(2),
			}
		}
	}

	return snapshot
}

// Validate checks snapshot invariants: non-negative amounts and a
// target position whose balance and average buy price are jointly zero
// or jointly positive.
func (s PortfolioSnapshot) Validate() error {
	if s.CashBalance.IsNegative() {
		return errors.New("cash balance must not be negative")
	}
	if s.TargetAsset.Balance.IsNegative() {
		return errors.New("target asset balance must not be negative")
	}
	if s.TargetAsset.AvgBuyPrice.IsNegative() {
		return errors.New("target asset avg buy price must not be negative")
	}
	if s.TargetAsset.Balance.IsZero() != s.TargetAsset.AvgBuyPrice.IsZero() {
		return errors.Errorf("inconsistent target position: balance=%s avg_buy_price=%s",
			s.TargetAsset.Balance, s.TargetAsset.AvgBuyPrice)
	}
	return nil
}
