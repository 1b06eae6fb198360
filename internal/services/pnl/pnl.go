// Package pnl computes realized and unrealized profit figures from
// portfolio snapshots and trade history.
package pnl

import (
	"github.com/shopspring/decimal"

	"upbot/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Result is one profit/loss computation.
type Result struct {
	InitialInvestment decimal.Decimal
	CurrentValuation  decimal.Decimal
	Profit            decimal.Decimal
	// ProfitRate is a percentage. It is zero whenever the investment is
	// zero; the calculator never divides by zero.
	ProfitRate decimal.Decimal
}

// FromSnapshot computes unrealized profit against the live portfolio:
// (current price x held balance) - accumulated investment.
func FromSnapshot(portfolio domain.PortfolioSnapshot, currentPrice decimal.Decimal) Result {
	investment := portfolio.TargetAsset.Investment
	valuation := currentPrice.Mul(portfolio.TargetAsset.Balance)
	profit := valuation.Sub(investment)

	rate := decimal.Zero
	if investment.IsPositive() {
		rate = profit.Div(investment).Mul(hundred)
	}

	return Result{
		InitialInvestment: investment.Round(2),
		CurrentValuation:  valuation.Round(2),
		Profit:            profit.Round(2),
		ProfitRate:        rate.Round(2),
	}
}

// Replay folds over chronological trades when no live snapshot exists,
// e.g. on cold start or for historical reporting. Buys add to the
// running investment and quantity; sells realize profit against the
// average cost of the sold fraction and reduce both proportionally.
func Replay(trades []domain.TradeRecord) Result {
	runningInvestment := decimal.Zero
	runningQty := decimal.Zero
	realized := decimal.Zero
	investedTotal := decimal.Zero

	for _, t := range trades {
		switch t.Action {
		case domain.ActionBuy:
			runningInvestment = runningInvestment.Add(t.TotalValue)
			investedTotal = investedTotal.Add(t.TotalValue)
			if t.Price.IsPositive() {
				runningQty = runningQty.Add(t.TotalValue.Div(t.Price))
			}
		case domain.ActionSell:
			if runningQty.IsZero() || !t.Amount.IsPositive() {
				continue
			}
			qty := decimal.Min(t.Amount, runningQty)
			fraction := qty.Div(runningQty)
			costBasis := runningInvestment.Mul(fraction)
			realized = realized.Add(t.Price.Mul(qty).Sub(costBasis))
			runningInvestment = runningInvestment.Sub(costBasis)
			runningQty = runningQty.Sub(qty)
		}
	}

	rate := decimal.Zero
	if investedTotal.IsPositive() {
		rate = realized.Div(investedTotal).Mul(hundred)
	}

	return Result{
		InitialInvestment: investedTotal.Round(2),
		CurrentValuation:  runningInvestment.Round(2),
		Profit:            realized.Round(2),
		ProfitRate:        rate.Round(2),
	}
}

// Accumulate rolls this cycle's profit into the running aggregates of
// the prior latest performance record (nil if none exists yet).
// cumulativeInvestment is the total cash ever committed to buys; the
// cumulative rate is recomputed against it - amount-weighted, never an
// arithmetic mean of per-cycle rates, which would overweight small
// trades.
func Accumulate(prev *domain.PerformanceRecord, cycleProfit, cumulativeInvestment decimal.Decimal) (cumulativeProfit, cumulativeRate decimal.Decimal) {
	cumulativeProfit = cycleProfit
	if prev != nil {
		cumulativeProfit = prev.CumulativeProfit.Add(cycleProfit)
	}

	cumulativeRate = decimal.Zero
	if cumulativeInvestment.IsPositive() {
		cumulativeRate = cumulativeProfit.Div(cumulativeInvestment).Mul(hundred).Round(2)
	}

	return cumulativeProfit.Round(2), cumulativeRate
}
