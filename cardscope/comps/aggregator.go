package comps

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

const (
	defaultSparsityThreshold = 5
	defaultMaxListings       = 50
)

// Config tunes the aggregation protocol.
type Config struct {
	// SparsityThreshold is the listing count below which broader alternative
	// queries are attempted.
	SparsityThreshold int
	// MaxListings caps the result set at the most recent sales.
	MaxListings int
	// CategoryID narrows searches to a marketplace category; the final
	// fallback retries the best query without it.
	CategoryID string
	// Rates converts listing prices into the reference currency.
	Rates RateTable
}

// Aggregator drives the marketplace search across a query set, filters and
// deduplicates the raw listings, and computes summary statistics.
type Aggregator struct {
	search SearchFunc
	cfg    Config
}

func NewAggregator(search SearchFunc, cfg Config) *Aggregator {
	if cfg.SparsityThreshold <= 0 {
		cfg.SparsityThreshold = defaultSparsityThreshold
	}
	if cfg.MaxListings <= 0 {
		cfg.MaxListings = defaultMaxListings
	}
	if cfg.Rates == nil {
		cfg.Rates = DefaultRates()
	}
	return &Aggregator{search: search, cfg: cfg}
}

// Aggregate executes the primary query and, while results stay below the
// sparsity threshold, each alternative in order, keeping the best result so
// far (larger count wins, ties keep the earlier query). Transient upstream
// failures skip to the next alternative; rate-limit and configuration errors
// surface immediately. If every query fails the result is empty, not an
// error.
func (a *Aggregator) Aggregate(ctx context.Context, primary string, alternatives []string) (Result, error) {
	queries := append([]string{primary}, alternatives...)

	var best []Listing
	bestQuery := primary
	attempts := 0

	for _, q := range queries {
		if len(best) >= a.cfg.SparsityThreshold {
			break
		}

		listings, err := a.runQuery(ctx, q, a.cfg.CategoryID)
		attempts++
		if err != nil {
			if rle, limited := IsRateLimited(err); limited {
				return Result{Query: bestQuery, Attempts: attempts, Stats: CompStats{}}, rle
			}
			if ctx.Err() != nil {
				return Result{Query: bestQuery, Attempts: attempts, Stats: CompStats{}}, ctx.Err()
			}
			slog.Warn("Comparable search attempt failed",
				slog.String("type", "ebay"),
				slog.String("query", q),
				slog.Any("error", err))
			continue
		}

		if len(listings) > len(best) {
			best = listings
			bestQuery = q
		}
	}

	// Category filters cut both ways: they exclude junk but also hide
	// legitimate sales filed elsewhere. One uncategorized retry of the best
	// query is adopted only when it strictly improves the count.
	if len(best) < a.cfg.SparsityThreshold && a.cfg.CategoryID != "" {
		listings, err := a.runQuery(ctx, bestQuery, "")
		attempts++
		if err == nil && len(listings) > len(best) {
			best = listings
		} else if err != nil {
			if rle, limited := IsRateLimited(err); limited && len(best) == 0 {
				return Result{Query: bestQuery, Attempts: attempts, Stats: CompStats{}}, rle
			}
		}
	}

	refined := a.refine(best)
	return Result{
		Listings: refined,
		Stats:    ComputeStats(refined),
		Query:    bestQuery,
		Attempts: attempts,
	}, nil
}

func (a *Aggregator) runQuery(ctx context.Context, q, categoryID string) ([]Listing, error) {
	start := time.Now()
	listings, err := a.search(ctx, q, SearchOptions{
		CategoryID: categoryID,
		Limit:      a.cfg.MaxListings,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("Comparable search attempt",
		slog.String("type", "ebay"),
		slog.String("query", q),
		slog.Int("listings", len(listings)),
		slog.Duration("took", time.Since(start)))
	return listings, nil
}

// refine post-processes the winning raw listing set: junk filter, currency
// normalization, dedupe, date sort, recency cap.
func (a *Aggregator) refine(listings []Listing) []Listing {
	if len(listings) == 0 {
		return nil
	}

	kept := FilterJunk(listings)
	a.cfg.Rates.Apply(kept)
	kept = Deduplicate(kept)

	sort.SliceStable(kept, func(i, j int) bool {
		return soldTime(kept[i]).Before(soldTime(kept[j]))
	})

	if len(kept) > a.cfg.MaxListings {
		kept = kept[len(kept)-a.cfg.MaxListings:]
	}
	return kept
}

func soldTime(l Listing) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, l.SoldDate); err == nil {
			return t
		}
	}
	return time.Time{}
}
