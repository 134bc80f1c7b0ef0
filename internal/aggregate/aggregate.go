// Package aggregate computes the header statistics shown above a
// leaderboard view.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// Summary is computed over the rows a view currently shows.
type Summary struct {
	Traders          int             `json:"traders"`
	AvgWinRate       float64         `json:"avgWinRate"`
	MedianWinRate    float64         `json:"medianWinRate"`
	TrimmedWinRate   float64         `json:"trimmedWinRate"`
	TotalRealizedPNL decimal.Decimal `json:"totalRealizedPNL"`
	TotalInvested    decimal.Decimal `json:"totalInvested"`
	Profitable       int             `json:"profitable"`
	TotalFollowers   int64           `json:"totalFollowers"`
}

// Summarize aggregates traders. Malformed values are skipped rather than
// counted as zero.
func Summarize(traders []model.Trader) Summary {
	s := Summary{
		Traders:          len(traders),
		TotalRealizedPNL: decimal.Zero,
		TotalInvested:    decimal.Zero,
	}

	winRates := make([]float64, 0, len(traders))
	for _, t := range traders {
		if t.WinRate.Valid {
			winRates = append(winRates, t.WinRate.Value)
		}
		if pnl := t.RealizedPNL.Signed(); pnl.Valid {
			s.TotalRealizedPNL = s.TotalRealizedPNL.Add(pnl.Amount)
			if pnl.Amount.IsPositive() {
				s.Profitable++
			}
		}
		if t.TotalInvested.SOL.Valid {
			s.TotalInvested = s.TotalInvested.Add(t.TotalInvested.SOL.Amount)
		}
		if t.Followers.Valid {
			s.TotalFollowers += t.Followers.Value
		}
	}

	s.AvgWinRate = Mean(winRates)
	s.MedianWinRate = Median(winRates)
	s.TrimmedWinRate = TrimmedMean(winRates, 0.1)
	return s
}

// SummarizeTrades aggregates a trader's token trades the same way. Win rate
// fields stay zero.
func SummarizeTrades(trades []model.TokenTrade) Summary {
	s := Summary{
		Traders:          len(trades),
		TotalRealizedPNL: decimal.Zero,
		TotalInvested:    decimal.Zero,
	}
	for _, t := range trades {
		if pnl := t.RealizedPNL.Signed(); pnl.Valid {
			s.TotalRealizedPNL = s.TotalRealizedPNL.Add(pnl.Amount)
			if pnl.Amount.IsPositive() {
				s.Profitable++
			}
		}
		if t.Invested.SOL.Valid {
			s.TotalInvested = s.TotalInvested.Add(t.Invested.SOL.Amount)
		}
	}
	return s
}

// Mean is the arithmetic mean, 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value, averaging the two middle values for an
// even count. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// TrimmedMean drops trimPercent of the lowest and highest values before
// averaging. With fewer than three values or an out-of-range trimPercent it
// falls back to Mean.
func TrimmedMean(values []float64, trimPercent float64) float64 {
	if len(values) < 3 || trimPercent <= 0 || trimPercent >= 0.5 {
		return Mean(values)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	trimCount := int(float64(len(sorted)) * trimPercent)
	return Mean(sorted[trimCount : len(sorted)-trimCount])
}
