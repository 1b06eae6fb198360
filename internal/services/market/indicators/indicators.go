// Package indicators derives technical analysis values for advisor
// prompts. It uses the cinar/indicator library for the calculations.
package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"upbot/internal/domain"
)

const (
	rsiPeriod      = 14
	emaShortPeriod = 20
	emaLongPeriod  = 50
)

// Snapshot holds the latest value of each indicator.
type Snapshot struct {
	RSI14 decimal.Decimal
	EMA20 decimal.Decimal
	EMA50 decimal.Decimal
}

// FromCandles computes an indicator snapshot over the close prices of
// the series. It needs at least emaLongPeriod+1 candles.
func FromCandles(candles []domain.Candle) (*Snapshot, error) {
	if len(candles) < emaLongPeriod+1 {
		return nil, errors.Errorf("not enough data points: need %d, got %d", emaLongPeriod+1, len(candles))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}

	rsi := lastOf(momentum.NewRsiWithPeriod[float64](rsiPeriod).Compute(helper.SliceToChan(closes)))
	emaShort := lastOf(trend.NewEmaWithPeriod[float64](emaShortPeriod).Compute(helper.SliceToChan(closes)))
	emaLong := lastOf(trend.NewEmaWithPeriod[float64](emaLongPeriod).Compute(helper.SliceToChan(closes)))

	return &Snapshot{
		RSI14: decimal.NewFromFloat(rsi).Round(2),
		EMA20: decimal.NewFromFloat(emaShort).Round(2),
		EMA50: decimal.NewFromFloat(emaLong).Round(2),
	}, nil
}

func lastOf(ch <-chan float64) float64 {
	values := helper.ChanToSlice(ch)
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
