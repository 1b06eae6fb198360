package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decision is the validated trade that reaches execution. For buys the
// amount is a cash sum, for sells an asset quantity, for holds zero.
type Decision struct {
	Action Action
	Amount decimal.Decimal
}

// Hold returns the neutral decision.
func Hold() Decision {
	return Decision{Action: ActionHold, Amount: decimal.Zero}
}

// IsHold reports whether the decision skips execution.
func (d Decision) IsHold() bool {
	return d.Action == ActionHold
}

// String returns a human-readable string representation.
func (d Decision) String() string {
	return fmt.Sprintf("%s %s", d.Action.String(), d.Amount.String())
}
