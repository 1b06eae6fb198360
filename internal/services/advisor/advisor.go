// Package advisor turns market context into a structured trading
// recommendation via an LLM.
package advisor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"upbot/internal/clients"
	"upbot/internal/domain"
)

// Advisor builds prompts from market context, requests a completion
// and parses the response strictly. A malformed response is an error;
// the orchestrator degrades it to hold.
type Advisor struct {
	llm           clients.LLMClient
	model         string
	minOrderValue decimal.Decimal
	feeRate       decimal.Decimal
	interval      time.Duration
	systemPrompt  string
	logger        *zap.Logger
}

func New(llm clients.LLMClient, model string, minOrderValue, feeRate decimal.Decimal,
	interval time.Duration, logger *zap.Logger) *Advisor {
	return &Advisor{
		llm:           llm,
		model:         model,
		minOrderValue: minOrderValue,
		feeRate:       feeRate,
		interval:      interval,
		systemPrompt:  buildSystemPrompt(minOrderValue, feeRate, interval),
		logger:        logger,
	}
}

// Model returns the configured model identifier for journaling.
func (a *Advisor) Model() string {
	return a.model
}

// Propose requests one trading recommendation for the given context.
func (a *Advisor) Propose(ctx context.Context, mc MarketContext) (*domain.Advice, error) {
	userPrompt := buildUserPrompt(mc)

	raw, err := a.llm.Complete(ctx, a.systemPrompt, userPrompt)
	if err != nil {
		return nil, errors.Wrap(err, "llm completion failed")
	}

	advice, err := domain.ParseAdvice(raw)
	if err != nil {
		a.logger.Warn("unparseable advisor response",
			zap.String("market", mc.Market),
			zap.String("response", raw),
			zap.Error(err))
		return nil, errors.Wrap(err, "parse advice")
	}

	a.logger.Info("advisor recommendation",
		zap.String("market", mc.Market),
		zap.String("action", advice.Action),
		zap.String("amount", advice.Amount),
		zap.String("reason", advice.Reason))

	return advice, nil
}
