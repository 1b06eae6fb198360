package domain

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AmountUnit tags how a requested trade amount is denominated.
type AmountUnit int

const (
	// UnitCash means the amount is a cash sum (e.g. KRW).
	UnitCash AmountUnit = iota
	// UnitAsset means the amount is an asset quantity (e.g. BTC).
	UnitAsset
)

// String returns the string representation of the unit.
func (u AmountUnit) String() string {
	if u == UnitAsset {
		return "asset"
	}
	return "cash"
}

// Amount is a tagged trade amount parsed from advisor output.
type Amount struct {
	Value decimal.Decimal
	Unit  AmountUnit
}

// ParseAmount parses an advisor amount string into a tagged value.
//
// The advisor emits amounts either as bare numerals ("100000",
// "0.0035") or with an embedded unit suffix ("100000 KRW",
// "0.0035 BTC"). An explicit suffix always wins. A bare numeral is
// disambiguated by magnitude: values at or above the minimum order
// threshold are cash sums, values below it are asset quantities.
// Anything non-numeric is a parse error; callers degrade to hold.
func ParseAmount(raw, cashCurrency, assetCurrency string, minOrderValue decimal.Decimal) (Amount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Amount{}, errors.New("empty amount")
	}

	unit, explicit := UnitCash, false
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, strings.ToUpper(cashCurrency)):
		s = strings.TrimSpace(s[:len(s)-len(cashCurrency)])
		unit, explicit = UnitCash, true
	case strings.HasSuffix(upper, strings.ToUpper(assetCurrency)):
		s = strings.TrimSpace(s[:len(s)-len(assetCurrency)])
		unit, explicit = UnitAsset, true
	}

	s = strings.ReplaceAll(s, ",", "")
	value, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, errors.Wrapf(err, "malformed amount %q", raw)
	}
	if value.IsNegative() {
		return Amount{}, errors.Errorf("negative amount %q", raw)
	}

	if !explicit && value.LessThan(minOrderValue) {
		unit = UnitAsset
	}

	return Amount{Value: value, Unit: unit}, nil
}
