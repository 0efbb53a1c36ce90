package comps

import (
	"math"

	"github.com/montanaflynn/stats"
)

// percentileMinSamples is the smallest sample for which p10/p90 say anything
// useful; below it only count and median are reported.
const percentileMinSamples = 8

// CompStats summarizes the normalized price set. Median of an empty set is
// absent, never zero.
type CompStats struct {
	Count  int      `json:"count"`
	Median *float64 `json:"median,omitempty"`
	P10    *float64 `json:"p10,omitempty"`
	P90    *float64 `json:"p90,omitempty"`
}

// ComputeStats derives summary statistics from listing prices in the
// reference currency.
func ComputeStats(listings []Listing) CompStats {
	s := CompStats{Count: len(listings)}
	if len(listings) == 0 {
		return s
	}

	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.PriceUSD
	}

	if median, err := stats.Median(prices); err == nil {
		s.Median = roundedPtr(median)
	}

	if len(prices) >= percentileMinSamples {
		if p10, err := stats.Percentile(prices, 10); err == nil {
			s.P10 = roundedPtr(p10)
		}
		if p90, err := stats.Percentile(prices, 90); err == nil {
			s.P90 = roundedPtr(p90)
		}
	}

	return s
}

func roundedPtr(v float64) *float64 {
	rounded := math.Round(v*100) / 100
	return &rounded
}
