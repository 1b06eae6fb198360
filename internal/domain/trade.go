package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one executed trade. Records are append-only and
// immutable after creation; the persistence store owns them.
type TradeRecord struct {
	Timestamp  time.Time
	Action     Action
	Currency   string
	Amount     decimal.Decimal
	Price      decimal.Decimal
	TotalValue decimal.Decimal
	Reason     string
}

// OrderResult is the exchange's response to a market order.
type OrderResult struct {
	OrderID string
	Market  string
	Volume  decimal.Decimal
	Price   decimal.Decimal
}
