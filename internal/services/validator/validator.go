// Package validator turns advisor proposals into executable decisions,
// enforcing exchange constraints against the live portfolio.
package validator

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"upbot/internal/domain"
)

// Validator deterministically approves, adjusts, or rejects proposed
// trades. Validate is a pure function of its inputs: no I/O, no hidden
// state, same inputs always produce the same decision.
type Validator struct {
	feeRate       decimal.Decimal
	minOrderValue decimal.Decimal
	cashCurrency  string
	logger        *zap.Logger
}

// New creates a Validator with the exchange constants.
func New(feeRate, minOrderValue decimal.Decimal, cashCurrency string, logger *zap.Logger) *Validator {
	return &Validator{
		feeRate:       feeRate,
		minOrderValue: minOrderValue,
		cashCurrency:  cashCurrency,
		logger:        logger,
	}
}

// Validate checks the advisor's proposal against the portfolio and the
// current price.
//
// Buys adjust toward feasibility: a request above the fee-adjusted cash
// ceiling is clamped down to it. Sells never adjust - an infeasible
// sell quantity is rejected outright, since inventing a smaller amount
// would second-guess the advisor's intent. Every rejection and every
// parse failure degrades to hold; validation never aborts the cycle.
func (v *Validator) Validate(advice *domain.Advice, portfolio domain.PortfolioSnapshot, currentPrice decimal.Decimal) domain.Decision {
	if advice == nil {
		return domain.Hold()
	}

	action := advice.ToAction()
	if action == domain.ActionHold {
		return domain.Hold()
	}

	amount, err := domain.ParseAmount(advice.Amount, v.cashCurrency, portfolio.TargetAsset.Currency, v.minOrderValue)
	if err != nil {
		v.logger.Warn("unparseable advice amount, degrading to hold",
			zap.String("action", advice.Action),
			zap.String("amount", advice.Amount),
			zap.String("cash_balance", portfolio.CashBalance.String()),
			zap.String("asset_balance", portfolio.TargetAsset.Balance.String()),
			zap.Error(err))
		return domain.Hold()
	}

	switch action {
	case domain.ActionBuy:
		return v.validateBuy(amount, portfolio, currentPrice)
	case domain.ActionSell:
		return v.validateSell(amount, portfolio, currentPrice)
	default:
		v.logger.Warn("unexpected action, degrading to hold", zap.String("action", advice.Action))
		return domain.Hold()
	}
}

// validateBuy approves a cash amount to spend. The spendable ceiling is
// the cash balance discounted by the trading fee, so the order plus fee
// never exceeds the balance.
func (v *Validator) validateBuy(amount domain.Amount, portfolio domain.PortfolioSnapshot, currentPrice decimal.Decimal) domain.Decision {
	requested := amount.Value
	if amount.Unit == domain.UnitAsset {
		requested = amount.Value.Mul(currentPrice)
	}

	maxAffordable := portfolio.CashBalance.Div(decimal.NewFromInt(1).Add(v.feeRate))

	if maxAffordable.LessThan(v.minOrderValue) {
		v.logger.Warn("buy rejected: insufficient funds",
			zap.String("max_affordable", maxAffordable.String()),
			zap.String("min_order_value", v.minOrderValue.String()))
		return domain.Hold()
	}
	if requested.LessThan(v.minOrderValue) {
		v.logger.Warn("buy rejected: request below minimum order value",
			zap.String("requested", requested.String()),
			zap.String("min_order_value", v.minOrderValue.String()))
		return domain.Hold()
	}
	if requested.GreaterThan(maxAffordable) {
		clamped := decimal.Max(v.minOrderValue, maxAffordable)
		v.logger.Info("buy clamped to available cash",
			zap.String("requested", requested.String()),
			zap.String("approved", clamped.String()))
		return domain.Decision{Action: domain.ActionBuy, Amount: clamped}
	}

	return domain.Decision{Action: domain.ActionBuy, Amount: requested}
}

// validateSell approves an asset quantity to sell, or rejects.
func (v *Validator) validateSell(amount domain.Amount, portfolio domain.PortfolioSnapshot, currentPrice decimal.Decimal) domain.Decision {
	quantity := amount.Value
	if amount.Unit == domain.UnitCash {
		if currentPrice.IsZero() {
			v.logger.Warn("sell rejected: no current price to convert cash amount")
			return domain.Hold()
		}
		quantity = amount.Value.Div(currentPrice)
	}

	heldBalance := portfolio.TargetAsset.Balance
	totalValue := quantity.Mul(currentPrice)

	if totalValue.LessThan(v.minOrderValue) {
		v.logger.Warn("sell rejected: value below minimum order value",
			zap.String("quantity", quantity.String()),
			zap.String("total_value", totalValue.String()),
			zap.String("min_order_value", v.minOrderValue.String()))
		return domain.Hold()
	}
	if quantity.GreaterThan(heldBalance) {
		v.logger.Warn("sell rejected: quantity exceeds held balance",
			zap.String("quantity", quantity.String()),
			zap.String("held_balance", heldBalance.String()))
		return domain.Hold()
	}

	return domain.Decision{Action: domain.ActionSell, Amount: quantity}
}
