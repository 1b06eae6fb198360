// Package summarizer reduces raw OHLCV series into fixed-size
// statistical segments suitable for advisor prompts.
package summarizer

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"upbot/internal/domain"
)

// ErrNoCandles marks an empty or missing input series. The orchestrator
// substitutes a placeholder and continues the cycle.
var ErrNoCandles = errors.New("no candle data to summarize")

const outlierStdDevs = 2.0

// Config controls how segments are computed.
type Config struct {
	// LabelPrefix prefixes the per-segment labels, e.g. "segment_" or
	// "segment_15m_". Labels are 1-based.
	LabelPrefix string
	// UseHighLow reports segment extremes from candle high/low instead
	// of close prices.
	UseHighLow bool
	// WithVolume adds volume-weighted average price and total volume to
	// each segment.
	WithVolume bool
}

// SegmentStat holds statistics for one bucket of candles.
type SegmentStat struct {
	Label        string
	StartTime    time.Time
	EndTime      time.Time
	AveragePrice decimal.Decimal
	HighPrice    decimal.Decimal
	LowPrice     decimal.Decimal
	StdDevPrice  decimal.Decimal
	// VWAP and TotalVolume are populated only when Config.WithVolume is set.
	VWAP        decimal.Decimal
	TotalVolume decimal.Decimal
}

// Overall summarizes the whole series.
type Overall struct {
	// Trend is "up" when the last close exceeds the first, "down" otherwise.
	Trend string
	// MaxVolatility is the population standard deviation of all closes.
	MaxVolatility decimal.Decimal
	// OutlierCount counts closes more than two standard deviations from
	// the series mean, both tails.
	OutlierCount int
}

// Summary is the full output for one series.
type Summary struct {
	Segments []SegmentStat
	Overall  Overall
}

// SummarizeByCount partitions the series into consecutive buckets of
// bucketSize candles, in input order. A trailing partial bucket is
// dropped: only full buckets are reported.
func SummarizeByCount(candles []domain.Candle, bucketSize int, cfg Config) (*Summary, error) {
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	if bucketSize <= 0 {
		return nil, errors.Errorf("invalid bucket size %d", bucketSize)
	}

	var segments []SegmentStat
	for start := 0; start+bucketSize <= len(candles); start += bucketSize {
		seg := computeSegment(candles[start:start+bucketSize], cfg)
		seg.Label = fmt.Sprintf("%s%d", cfg.LabelPrefix, len(segments)+1)
		segments = append(segments, seg)
	}

	return &Summary{Segments: segments, Overall: computeOverall(candles)}, nil
}

// SummarizeByDuration partitions the series into consecutive wall-clock
// buckets of the given width, anchored at the first candle's timestamp.
// The final partial bucket is included.
func SummarizeByDuration(candles []domain.Candle, bucket time.Duration, cfg Config) (*Summary, error) {
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	if bucket <= 0 {
		return nil, errors.Errorf("invalid bucket duration %s", bucket)
	}

	anchor := candles[0].Time
	var segments []SegmentStat
	start := 0
	for start < len(candles) {
		idx := bucketIndex(anchor, candles[start].Time, bucket)
		end := start + 1
		for end < len(candles) && bucketIndex(anchor, candles[end].Time, bucket) == idx {
			end++
		}
		seg := computeSegment(candles[start:end], cfg)
		seg.Label = fmt.Sprintf("%s%d", cfg.LabelPrefix, len(segments)+1)
		segments = append(segments, seg)
		start = end
	}

	return &Summary{Segments: segments, Overall: computeOverall(candles)}, nil
}

// Daily summarizes daily candles in 10-bar segments with close-based
// extremes, mirroring the 30-day report fed to the advisor.
func Daily(candles []domain.Candle) (*Summary, error) {
	return SummarizeByCount(candles, 10, Config{LabelPrefix: "segment_"})
}

// Intraday summarizes 5-minute candles into 15-minute wall-clock
// segments with high/low extremes, VWAP and total volume.
func Intraday(candles []domain.Candle) (*Summary, error) {
	return SummarizeByDuration(candles, 15*time.Minute, Config{
		LabelPrefix: "segment_15m_",
		UseHighLow:  true,
		WithVolume:  true,
	})
}

func bucketIndex(anchor, t time.Time, bucket time.Duration) int64 {
	return int64(t.Sub(anchor) / bucket)
}

func computeSegment(candles []domain.Candle, cfg Config) SegmentStat {
	sum := decimal.Zero
	high := candles[0].Close
	low := candles[0].Close
	if cfg.UseHighLow {
		high = candles[0].High
		low = candles[0].Low
	}

	for _, c := range candles {
		sum = sum.Add(c.Close)
		h, l := c.Close, c.Close
		if cfg.UseHighLow {
			h, l = c.High, c.Low
		}
		if h.GreaterThan(high) {
			high = h
		}
		if l.LessThan(low) {
			low = l
		}
	}

	count := decimal.NewFromInt(int64(len(candles)))
	seg := SegmentStat{
		StartTime:    candles[0].Time,
		EndTime:      candles[len(candles)-1].Time,
		AveragePrice: sum.Div(count),
		HighPrice:    high,
		LowPrice:     low,
		StdDevPrice:  closeStdDev(candles),
	}

	if cfg.WithVolume {
		seg.VWAP, seg.TotalVolume = volumeWeightedAvg(candles)
	}

	return seg
}

// volumeWeightedAvg returns sum(close*volume)/sum(volume), guarded
// against zero total volume.
func volumeWeightedAvg(candles []domain.Candle) (vwap, totalVolume decimal.Decimal) {
	weighted := decimal.Zero
	totalVolume = decimal.Zero
	for _, c := range candles {
		weighted = weighted.Add(c.Close.Mul(c.Volume))
		totalVolume = totalVolume.Add(c.Volume)
	}
	if totalVolume.IsZero() {
		return decimal.Zero, totalVolume
	}
	return weighted.Div(totalVolume), totalVolume
}

func computeOverall(candles []domain.Candle) Overall {
	trend := "down"
	if candles[len(candles)-1].Close.GreaterThan(candles[0].Close) {
		trend = "up"
	}

	mean, stddev := closeMeanStdDev(candles)
	outliers := 0
	for _, c := range candles {
		close, _ := c.Close.Float64()
		if math.Abs(close-mean) > outlierStdDevs*stddev {
			outliers++
		}
	}

	return Overall{
		Trend:         trend,
		MaxVolatility: decimal.NewFromFloat(stddev),
		OutlierCount:  outliers,
	}
}

func closeStdDev(candles []domain.Candle) decimal.Decimal {
	_, stddev := closeMeanStdDev(candles)
	return decimal.NewFromFloat(stddev)
}

// closeMeanStdDev computes population statistics over close prices.
// Standard deviation is a derived prompt statistic, so float64
// precision is acceptable here; money amounts stay decimal.
func closeMeanStdDev(candles []domain.Candle) (mean, stddev float64) {
	n := float64(len(candles))
	for _, c := range candles {
		close, _ := c.Close.Float64()
		mean += close
	}
	mean /= n

	var sq float64
	for _, c := range candles {
		close, _ := c.Close.Float64()
		sq += (close - mean) * (close - mean)
	}
	return mean, math.Sqrt(sq / n)
}
