package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromTmpDefaults(t *testing.T) {
	cfg, err := fromTmp(configTmp{})
	require.NoError(t, err)

	require.Equal(t, "KRW-BTC", cfg.Market)
	require.Equal(t, "KRW", cfg.CashCurrency)
	require.Equal(t, "BTC", cfg.AssetCurrency)
	require.True(t, cfg.MinOrderValue.Equal(decimal.NewFromInt(5000)))
	require.True(t, cfg.FeeRate.Equal(decimal.NewFromFloat(0.0005)))
	require.Equal(t, 15*time.Minute, cfg.PollInterval)
	require.Equal(t, ":8080", cfg.ListenAddr)
}

func TestFromTmpOverrides(t *testing.T) {
	cfg, err := fromTmp(configTmp{
		Market:           "KRW-ETH",
		MinOrderValueStr: "10000",
		FeeRateStr:       "0.001",
		PollInterval:     5 * time.Minute,
		ListenAddr:       ":9090",
	})
	require.NoError(t, err)

	require.Equal(t, "ETH", cfg.AssetCurrency)
	require.True(t, cfg.MinOrderValue.Equal(decimal.NewFromInt(10000)))
	require.True(t, cfg.FeeRate.Equal(decimal.NewFromFloat(0.001)))
	require.Equal(t, 5*time.Minute, cfg.PollInterval)
	require.Equal(t, ":9090", cfg.ListenAddr)
}

func TestFromTmpInvalid(t *testing.T) {
	tests := []struct {
		name string
		tmp  configTmp
	}{
		{"bad market", configTmp{Market: "KRWBTC"}},
		{"empty market side", configTmp{Market: "KRW-"}},
		{"zero min order", configTmp{MinOrderValueStr: "0"}},
		{"negative fee", configTmp{FeeRateStr: "-0.01"}},
		{"fee at one", configTmp{FeeRateStr: "1"}},
		{"non numeric min order", configTmp{MinOrderValueStr: "abc"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fromTmp(tc.tmp)
			require.Error(t, err)
		})
	}
}
