package advisor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"upbot/internal/domain"
	"upbot/internal/services/market/summarizer"
)

type stubLLM struct {
	response     string
	err          error
	systemPrompt string
	userPrompt   string
}

func (s *stubLLM) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.systemPrompt = systemPrompt
	s.userPrompt = userPrompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testContext() MarketContext {
	return MarketContext{
		Timestamp:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Market:       "KRW-BTC",
		CurrentPrice: decimal.NewFromInt(61000000),
		Volume24h:    decimal.NewFromFloat(1234.5),
		Portfolio: domain.PortfolioSnapshot{
			CashBalance: decimal.NewFromInt(100000),
			TargetAsset: domain.AssetPosition{
				Currency:    "BTC",
				Balance:     decimal.NewFromFloat(0.001),
				AvgBuyPrice: decimal.NewFromInt(60000000),
				Investment:  decimal.NewFromInt(60000),
			},
		},
	}
}

func newTestAdvisor(llm *stubLLM) *Advisor {
	return New(llm, "gpt-4o",
		decimal.NewFromInt(5000), decimal.NewFromFloat(0.0005),
		15*time.Minute, zap.NewNop())
}

func TestProposeParsesResponse(t *testing.T) {
	llm := &stubLLM{response: `{"action": "buy", "amount": "10000 KRW", "reason": "upward momentum"}`}
	a := newTestAdvisor(llm)

	advice, err := a.Propose(context.Background(), testContext())
	require.NoError(t, err)
	require.Equal(t, "buy", advice.Action)
	require.Equal(t, "10000 KRW", advice.Amount)
	require.Equal(t, "upward momentum", advice.Reason)
}

func TestProposeAcceptsFencedJSON(t *testing.T) {
	llm := &stubLLM{response: "```json\n{\"action\": \"hold\", \"amount\": \"0\", \"reason\": \"sideways market\"}\n```"}
	a := newTestAdvisor(llm)

	advice, err := a.Propose(context.Background(), testContext())
	require.NoError(t, err)
	require.Equal(t, "hold", advice.Action)
}

func TestProposeRejectsFreeText(t *testing.T) {
	llm := &stubLLM{response: "I recommend buying 10000 KRW worth of BTC."}
	a := newTestAdvisor(llm)

	_, err := a.Propose(context.Background(), testContext())
	require.Error(t, err)
}

func TestProposePropagatesLLMError(t *testing.T) {
	llm := &stubLLM{err: context.DeadlineExceeded}
	a := newTestAdvisor(llm)

	_, err := a.Propose(context.Background(), testContext())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSystemPromptCarriesConstraints(t *testing.T) {
	llm := &stubLLM{response: `{"action": "hold", "amount": "0", "reason": "n/a"}`}
	a := newTestAdvisor(llm)

	_, err := a.Propose(context.Background(), testContext())
	require.NoError(t, err)
	require.Contains(t, llm.systemPrompt, "5000 KRW")
	require.Contains(t, llm.systemPrompt, "0.05%")
	require.Contains(t, llm.systemPrompt, "15m0s")
	require.Contains(t, llm.systemPrompt, `"action": "buy" | "sell" | "hold"`)
}

func TestUserPromptFormatsPortfolioAndSummaries(t *testing.T) {
	llm := &stubLLM{response: `{"action": "hold", "amount": "0", "reason": "n/a"}`}
	a := newTestAdvisor(llm)

	mc := testContext()
	mc.DailySummary = &summarizer.Summary{
		Segments: []summarizer.SegmentStat{{
			Label:        "segment_1",
			StartTime:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			EndTime:      time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
			AveragePrice: decimal.NewFromInt(60000000),
			HighPrice:    decimal.NewFromInt(62000000),
			LowPrice:     decimal.NewFromInt(58000000),
			StdDevPrice:  decimal.NewFromInt(900000),
		}},
		Overall: summarizer.Overall{Trend: "up", MaxVolatility: decimal.NewFromInt(1000000)},
	}

	_, err := a.Propose(context.Background(), mc)
	require.NoError(t, err)

	require.Contains(t, llm.userPrompt, "Cash Balance: 100000 KRW")
	require.Contains(t, llm.userPrompt, "Avg Buy Price: 60000000 KRW")
	require.Contains(t, llm.userPrompt, "Market: KRW-BTC")
	require.Contains(t, llm.userPrompt, "segment_1")
	require.Contains(t, llm.userPrompt, "Trend: up")
	require.Contains(t, llm.userPrompt, "15-Minute Summary")
	// missing intraday data is flagged, not omitted
	require.Contains(t, llm.userPrompt, "unavailable")
}

func TestUserPromptEmptyPortfolio(t *testing.T) {
	llm := &stubLLM{response: `{"action": "hold", "amount": "0", "reason": "n/a"}`}
	a := newTestAdvisor(llm)

	mc := testContext()
	mc.Portfolio.TargetAsset = domain.AssetPosition{Currency: "BTC"}

	_, err := a.Propose(context.Background(), mc)
	require.NoError(t, err)
	require.Contains(t, llm.userPrompt, "none held")
	require.False(t, strings.Contains(llm.userPrompt, "Avg Buy Price"))
}
