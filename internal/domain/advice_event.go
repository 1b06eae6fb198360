package domain

import "time"

// AdviceEvent is the journaled form of one advisor response together
// with the state it was judged against and the validated outcome.
type AdviceEvent struct {
	Timestamp       time.Time `json:"ts"`
	Market          string    `json:"market"`
	Model           string    `json:"model,omitempty"`
	Action          string    `json:"action"`
	Amount          string    `json:"amount,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	CurrentPrice    string    `json:"current_price,omitempty"`
	CashBalance     string    `json:"cash_balance,omitempty"`
	AssetBalance    string    `json:"asset_balance,omitempty"`
	ValidatedAction string    `json:"validated_action,omitempty"`
	ValidatedAmount string    `json:"validated_amount,omitempty"`
}

// AdviceEventRecord bundles an advice event with its journal index.
type AdviceEventRecord struct {
	Index uint64
	Event AdviceEvent
}
