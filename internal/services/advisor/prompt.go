package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"upbot/internal/domain"
	"upbot/internal/services/market/indicators"
	"upbot/internal/services/market/summarizer"
)

const responseFormat = `{
    "action": "buy" | "sell" | "hold",
    "amount": "specific amount",
    "reason": "Brief explanation (1 sentence)"
}`

// MarketContext is everything the advisor sees for one cycle. Summary
// fields may be nil when the corresponding data fetch failed; the
// prompt then carries an explicit unavailability marker instead.
type MarketContext struct {
	Timestamp       time.Time
	Market          string
	CurrentPrice    decimal.Decimal
	Volume24h       decimal.Decimal
	Portfolio       domain.PortfolioSnapshot
	DailySummary    *summarizer.Summary
	IntradaySummary *summarizer.Summary
	Indicators      *indicators.Snapshot
}

// buildSystemPrompt renders the trading instructions with the live
// exchange constraints, so the advisor is told the same minimum order
// size and fee the validator will enforce.
func buildSystemPrompt(minOrderValue, feeRate decimal.Decimal, interval time.Duration) string {
	feePercent := feeRate.Mul(decimal.NewFromInt(100))

	var b strings.Builder
	b.WriteString("You are a cryptocurrency trading expert. Based on market data and account status, recommend one of: 'buy', 'sell', or 'hold'. ")
	b.WriteString("Specify the exact amount to trade and a concise reason for your decision.\n\n")
	b.WriteString("Key Points:\n")
	b.WriteString("1. The user prefers a slightly aggressive strategy.\n")
	fmt.Fprintf(&b, "2. Trades occur every %s and must optimize for short-term outcomes.\n", interval)
	fmt.Fprintf(&b, "3. Trades (both buy and sell) below %s KRW are prohibited. Explicitly state when trading is not possible due to constraints.\n", minOrderValue)
	fmt.Fprintf(&b, "4. A %s%% trading fee applies. Recommendations must account for fees.\n", feePercent)
	b.WriteString("5. Ensure trades stay within available balances.\n")
	b.WriteString("6. Prioritize 'hold' over invalid trades when constraints are not met.\n\n")
	b.WriteString("Output Format:\n")
	b.WriteString(responseFormat)
	b.WriteString("\nRespond strictly in JSON format without extra text.")

	return b.String()
}

// buildUserPrompt formats the portfolio and market data into the text
// block sent alongside the system prompt.
func buildUserPrompt(mc MarketContext) string {
	var b strings.Builder

	b.WriteString("The following is the recent market data and account status. Analyze and provide your recommendation.\n\n")

	fmt.Fprintf(&b, "Timestamp: %s\n\n", mc.Timestamp.Format(time.RFC3339))

	b.WriteString("Portfolio:\n")
	fmt.Fprintf(&b, "- Cash Balance: %s KRW\n", mc.Portfolio.CashBalance)
	asset := mc.Portfolio.TargetAsset
	if asset.IsZero() {
		b.WriteString("- Target Asset: none held\n")
	} else {
		fmt.Fprintf(&b, "- Target Asset: %s\n", asset.Currency)
		fmt.Fprintf(&b, "  - Balance: %s\n", asset.Balance)
		fmt.Fprintf(&b, "  - Avg Buy Price: %s KRW\n", asset.AvgBuyPrice)
		fmt.Fprintf(&b, "  - Investment: %s KRW\n", asset.Investment)
	}

	b.WriteString("\nMarket Data:\n")
	fmt.Fprintf(&b, "- Market: %s\n", mc.Market)
	fmt.Fprintf(&b, "- Current Price: %s KRW\n", mc.CurrentPrice)
	fmt.Fprintf(&b, "- 24h Volume: %s\n", mc.Volume24h)

	if mc.Indicators != nil {
		fmt.Fprintf(&b, "- RSI14: %s, EMA20: %s, EMA50: %s\n",
			mc.Indicators.RSI14, mc.Indicators.EMA20, mc.Indicators.EMA50)
	}

	b.WriteString("\n30-Day Summary:\n")
	writeSummary(&b, mc.DailySummary, false)

	b.WriteString("\n15-Minute Summary (aggregated from 5-minute data):\n")
	writeSummary(&b, mc.IntradaySummary, true)

	b.WriteString("\nResponse Format:\n")
	b.WriteString(responseFormat)

	return b.String()
}

func writeSummary(b *strings.Builder, sum *summarizer.Summary, withVolume bool) {
	if sum == nil {
		b.WriteString("  unavailable (data fetch failed)\n")
		return
	}

	for _, seg := range sum.Segments {
		fmt.Fprintf(b, "  %s:\n", seg.Label)
		fmt.Fprintf(b, "    - Date Range: %s to %s\n",
			seg.StartTime.Format("2006-01-02 15:04"), seg.EndTime.Format("2006-01-02 15:04"))
		fmt.Fprintf(b, "    - Avg Price: %s KRW\n", seg.AveragePrice.Round(2))
		fmt.Fprintf(b, "    - High: %s KRW\n", seg.HighPrice)
		fmt.Fprintf(b, "    - Low: %s KRW\n", seg.LowPrice)
		fmt.Fprintf(b, "    - Volatility: %s\n", seg.StdDevPrice.Round(2))
		if withVolume {
			fmt.Fprintf(b, "    - VWAP: %s KRW\n", seg.VWAP.Round(2))
			fmt.Fprintf(b, "    - Total Volume: %s\n", seg.TotalVolume)
		}
	}

	b.WriteString("  Overall:\n")
	fmt.Fprintf(b, "    - Trend: %s\n", sum.Overall.Trend)
	fmt.Fprintf(b, "    - Max Volatility: %s\n", sum.Overall.MaxVolatility.Round(2))
	fmt.Fprintf(b, "    - Outlier Count: %d\n", sum.Overall.OutlierCount)
}
