package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	minOrder := decimal.NewFromInt(5000)

	tests := []struct {
		name      string
		raw       string
		wantValue string
		wantUnit  AmountUnit
		wantErr   bool
	}{
		{
			name:      "explicit cash suffix",
			raw:       "100000 KRW",
			wantValue: "100000",
			wantUnit:  UnitCash,
		},
		{
			name:      "explicit asset suffix",
			raw:       "0.0035 BTC",
			wantValue: "0.0035",
			wantUnit:  UnitAsset,
		},
		{
			name:      "suffix without space",
			raw:       "7500KRW",
			wantValue: "7500",
			wantUnit:  UnitCash,
		},
		{
			name:      "lowercase suffix",
			raw:       "0.01 btc",
			wantValue: "0.01",
			wantUnit:  UnitAsset,
		},
		{
			// explicit unit wins over the magnitude heuristic
			name:      "small cash amount with suffix",
			raw:       "3000 KRW",
			wantValue: "3000",
			wantUnit:  UnitCash,
		},
		{
			name:      "large asset amount with suffix",
			raw:       "6000 BTC",
			wantValue: "6000",
			wantUnit:  UnitAsset,
		},
		{
			name:      "bare numeral at threshold is cash",
			raw:       "5000",
			wantValue: "5000",
			wantUnit:  UnitCash,
		},
		{
			name:      "bare numeral above threshold is cash",
			raw:       "250000",
			wantValue: "250000",
			wantUnit:  UnitCash,
		},
		{
			name:      "bare numeral below threshold is asset quantity",
			raw:       "0.0035",
			wantValue: "0.0035",
			wantUnit:  UnitAsset,
		},
		{
			name:      "thousands separators",
			raw:       "1,000,000 KRW",
			wantValue: "1000000",
			wantUnit:  UnitCash,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "non-numeric",
			raw:     "all of it",
			wantErr: true,
		},
		{
			name:    "unit only",
			raw:     "KRW",
			wantErr: true,
		},
		{
			name:    "negative",
			raw:     "-5000 KRW",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw, "KRW", "BTC", minOrder)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantUnit, got.Unit)
			require.True(t, got.Value.Equal(decimal.RequireFromString(tt.wantValue)),
				"value mismatch: got %s want %s", got.Value, tt.wantValue)
		})
	}
}
