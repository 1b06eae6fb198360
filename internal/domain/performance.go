package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceRecord captures per-cycle and cumulative profit figures.
// Cumulative fields are running aggregates seeded from the prior latest
// record, or zero if none exists.
type PerformanceRecord struct {
	Timestamp            time.Time
	Profit               decimal.Decimal
	ProfitRate           decimal.Decimal
	CumulativeProfit     decimal.Decimal
	CumulativeProfitRate decimal.Decimal
}
