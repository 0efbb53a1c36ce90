package comps

import "testing"

func priced(prices ...float64) []Listing {
	listings := make([]Listing, len(prices))
	for i, p := range prices {
		listings[i] = Listing{PriceUSD: p}
	}
	return listings
}

func TestComputeStatsMedian(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"odd count", []float64{10, 20, 30}, 20},
		{"even count averages middle pair", []float64{10, 20}, 15},
		{"single", []float64{42.5}, 42.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeStats(priced(tt.prices...))
			if s.Count != len(tt.prices) {
				t.Errorf("Count = %d", s.Count)
			}
			if s.Median == nil || *s.Median != tt.want {
				t.Errorf("Median = %v, want %v", s.Median, tt.want)
			}
			if s.P10 != nil || s.P90 != nil {
				t.Error("percentiles reported below the sample minimum")
			}
		})
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(nil)
	if s.Count != 0 {
		t.Errorf("Count = %d", s.Count)
	}
	if s.Median != nil {
		t.Errorf("Median = %v, want absent", *s.Median)
	}
}

func TestComputeStatsPercentilesAtMinimumSample(t *testing.T) {
	s := ComputeStats(priced(10, 20, 30, 40, 50, 60, 70, 80))
	if s.Median == nil || *s.Median != 45 {
		t.Errorf("Median = %v, want 45", s.Median)
	}
	if s.P10 == nil || s.P90 == nil {
		t.Fatal("percentiles absent at the minimum sample size")
	}
	if *s.P10 >= *s.Median || *s.P90 <= *s.Median {
		t.Errorf("percentile ordering broken: p10=%v median=%v p90=%v", *s.P10, *s.Median, *s.P90)
	}
}
