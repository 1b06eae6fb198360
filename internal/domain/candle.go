package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bar returned by the market data source.
type Candle struct {
	// Time is the opening timestamp of the bar.
	Time time.Time
	// Open is the opening price.
	Open decimal.Decimal
	// High is the highest price reached during the bar.
	High decimal.Decimal
	// Low is the lowest price reached during the bar.
	Low decimal.Decimal
	// Close is the closing price.
	Close decimal.Decimal
	// Volume is the traded volume in base currency.
	Volume decimal.Decimal
}
