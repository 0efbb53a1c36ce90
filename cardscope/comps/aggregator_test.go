package comps

import (
	"context"
	"errors"
	"testing"
	"time"
)

func namedListings(prefix string, n int) []Listing {
	listings := make([]Listing, n)
	for i := range listings {
		listings[i] = Listing{
			Title:    prefix + " copy " + string(rune('a'+i)),
			Price:    float64(10 + i),
			Currency: "USD",
			SoldDate: "2024-05-0" + string(rune('1'+i%9)),
		}
	}
	return listings
}

func TestAggregateStopsAtThreshold(t *testing.T) {
	var queries []string
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		queries = append(queries, q)
		return namedListings(q, 6), nil
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50})

	result, err := agg.Aggregate(context.Background(), "primary", []string{"alt1", "alt2"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(queries) != 1 || queries[0] != "primary" {
		t.Errorf("queries = %v, want only primary", queries)
	}
	if result.Query != "primary" || result.Stats.Count != 6 {
		t.Errorf("result = %+v", result)
	}
}

func TestAggregateTriesAlternativesWhenSparse(t *testing.T) {
	counts := map[string]int{"primary": 1, "alt1": 2, "alt2": 7}
	var queries []string
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		queries = append(queries, q)
		return namedListings(q, counts[q]), nil
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50})

	result, err := agg.Aggregate(context.Background(), "primary", []string{"alt1", "alt2"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(queries) != 3 {
		t.Errorf("queries = %v, want all three attempted", queries)
	}
	if result.Query != "alt2" || result.Stats.Count != 7 {
		t.Errorf("result query = %q count = %d, want alt2 with 7", result.Query, result.Stats.Count)
	}
}

func TestAggregateTiesKeepEarlierQuery(t *testing.T) {
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		return namedListings("same", 3), nil
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50})

	result, err := agg.Aggregate(context.Background(), "primary", []string{"alt1"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.Query != "primary" {
		t.Errorf("result query = %q, tie must keep the earlier query", result.Query)
	}
}

func TestAggregateUncategorizedRetryNeedsImprovement(t *testing.T) {
	var attempts []string
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		attempts = append(attempts, q+"/"+opts.CategoryID)
		if opts.CategoryID == "" {
			return namedListings("wide", 4), nil
		}
		return namedListings("narrow", 2), nil
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50, CategoryID: "261328"})

	result, err := agg.Aggregate(context.Background(), "primary", nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %v", attempts)
	}
	if attempts[1] != "primary/" {
		t.Errorf("second attempt = %q, want uncategorized retry of best query", attempts[1])
	}
	if result.Stats.Count != 4 {
		t.Errorf("count = %d, want the improved uncategorized result", result.Stats.Count)
	}
}

func TestAggregateSkipsTransientErrors(t *testing.T) {
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		if q == "primary" {
			return nil, errors.New("upstream hiccup")
		}
		return namedListings(q, 6), nil
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50})

	result, err := agg.Aggregate(context.Background(), "primary", []string{"alt1"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.Query != "alt1" || result.Stats.Count != 6 {
		t.Errorf("result = %+v, want alt1 result despite primary failure", result)
	}
}

func TestAggregateSurfacesRateLimit(t *testing.T) {
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		return nil, &RateLimitError{RetryAfter: 3 * time.Second}
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50})

	_, err := agg.Aggregate(context.Background(), "primary", []string{"alt1"})
	rle, limited := IsRateLimited(err)
	if !limited {
		t.Fatalf("error = %v, want rate limit", err)
	}
	if rle.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v", rle.RetryAfter)
	}
}

func TestAggregateAllFailuresIsEmptyNotError(t *testing.T) {
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		return nil, errors.New("down")
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50})

	result, err := agg.Aggregate(context.Background(), "primary", []string{"alt1"})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.Stats.Count != 0 || len(result.Listings) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestAggregateRefinesListings(t *testing.T) {
	raw := []Listing{
		{Title: "Jacob Wilson RC", Price: 100, Currency: "CAD", SoldDate: "2024-05-03"},
		{Title: "Lot of rookie cards", Price: 30, Currency: "USD", SoldDate: "2024-05-02"},
		{Title: "Jacob Wilson RC sale", Price: 60, Currency: "USD", SoldDate: "2024-05-01"},
		{Title: "Jacob Wilson RC", Price: 100.2, Currency: "CAD", SoldDate: "2024-05-03"},
		{Title: "Jacob Wilson graded", Price: 80, Currency: "USD", SoldDate: "2024-04-28"},
		{Title: "Jacob Wilson base", Price: 20, Currency: "USD", SoldDate: "2024-04-30"},
		{Title: "Jacob Wilson insert", Price: 44, Currency: "USD", SoldDate: "2024-05-04"},
	}
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		return raw, nil
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 50})

	result, err := agg.Aggregate(context.Background(), "primary", nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	// Junk dropped, CAD duplicates collapsed to the cheaper copy.
	if result.Stats.Count != 5 {
		t.Fatalf("count = %d, want 5: %+v", result.Stats.Count, result.Listings)
	}
	for i := 1; i < len(result.Listings); i++ {
		if result.Listings[i-1].SoldDate > result.Listings[i].SoldDate {
			t.Errorf("listings not sorted by date: %q before %q",
				result.Listings[i-1].SoldDate, result.Listings[i].SoldDate)
		}
	}
	for _, l := range result.Listings {
		if l.Currency == "CAD" && l.PriceUSD != l.Price*0.74 {
			t.Errorf("CAD listing not normalized: %+v", l)
		}
	}
}

func TestAggregateCapsAtMaxListings(t *testing.T) {
	search := func(ctx context.Context, q string, opts SearchOptions) ([]Listing, error) {
		return namedListings("bulk", 9), nil
	}
	agg := NewAggregator(search, Config{SparsityThreshold: 5, MaxListings: 4})

	result, err := agg.Aggregate(context.Background(), "primary", nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(result.Listings) != 4 {
		t.Fatalf("kept %d listings, want 4", len(result.Listings))
	}
	// The cap keeps the most recent sales.
	if result.Listings[len(result.Listings)-1].SoldDate != "2024-05-09" {
		t.Errorf("latest kept = %q", result.Listings[len(result.Listings)-1].SoldDate)
	}
}
