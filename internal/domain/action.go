// Package domain defines core data structures used throughout the trading bot.
package domain

// Action represents the type of trading action to be performed.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

// action string constants to avoid magic strings
const (
	actionStringBuy  = "buy"
	actionStringSell = "sell"
	actionStringHold = "hold"
)

// isValidActionString checks if the string is a valid action
func isValidActionString(s string) bool {
	switch s {
	case actionStringBuy, actionStringSell, actionStringHold:
		return true
	}
	return false
}

// ActionFromString converts an advisor action string to a typed Action.
func ActionFromString(s string) (Action, bool) {
	switch s {
	case actionStringBuy:
		return ActionBuy, true
	case actionStringSell:
		return ActionSell, true
	case actionStringHold:
		return ActionHold, true
	default:
		return ActionHold, false
	}
}

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return actionStringBuy
	case ActionSell:
		return actionStringSell
	case ActionHold:
		return actionStringHold
	default:
		return "unknown"
	}
}
