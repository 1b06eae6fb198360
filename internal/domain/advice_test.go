package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAdvice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Advice
		wantErr bool
	}{
		{
			name: "plain object",
			raw:  `{"action":"buy","amount":"10000 KRW","reason":"upward trend"}`,
			want: Advice{Action: "buy", Amount: "10000 KRW", Reason: "upward trend"},
		},
		{
			name: "code fenced",
			raw:  "```json\n{\"action\":\"sell\",\"amount\":\"0.002 BTC\",\"reason\":\"take profit\"}\n```",
			want: Advice{Action: "sell", Amount: "0.002 BTC", Reason: "take profit"},
		},
		{
			name: "hold without amount",
			raw:  `{"action":"hold","amount":"","reason":"below minimum order size"}`,
			want: Advice{Action: "hold", Reason: "below minimum order size"},
		},
		{
			name:    "unknown field rejected",
			raw:     `{"action":"buy","amount":"10000","reason":"x","confidence":0.9}`,
			wantErr: true,
		},
		{
			name:    "invalid action",
			raw:     `{"action":"short","amount":"10000","reason":"x"}`,
			wantErr: true,
		},
		{
			name:    "missing reason",
			raw:     `{"action":"buy","amount":"10000"}`,
			wantErr: true,
		},
		{
			name:    "missing amount on buy",
			raw:     `{"action":"buy","reason":"x"}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			raw:     `"buy everything"`,
			wantErr: true,
		},
		{
			name:    "free text",
			raw:     "I would buy 10000 KRW worth of BTC.",
			wantErr: true,
		},
		{
			name:    "python-style literal rejected",
			raw:     `{'action': 'buy', 'amount': '10000', 'reason': 'x'}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAdvice(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, *got)
		})
	}
}

func TestAdviceToAction(t *testing.T) {
	require.Equal(t, ActionBuy, (&Advice{Action: "buy"}).ToAction())
	require.Equal(t, ActionSell, (&Advice{Action: "sell"}).ToAction())
	require.Equal(t, ActionHold, (&Advice{Action: "hold"}).ToAction())
}
