// Package comps aggregates marketplace sold listings into comparable sets
// with robust summary statistics.
package comps

import "context"

// Listing is one sold marketplace item considered as a price comparable.
type Listing struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	PriceUSD float64 `json:"price_usd"`
	SoldDate string  `json:"sold_date"`
	Source   string  `json:"source"`
}

// SearchOptions carries the optional hints a marketplace search accepts.
type SearchOptions struct {
	CategoryID string
	Limit      int
}

// SearchFunc is the external marketplace search collaborator. It returns raw
// listings for a free-text query, a RateLimitError when the upstream quota is
// exhausted, or a generic error for transient failures.
type SearchFunc func(ctx context.Context, query string, opts SearchOptions) ([]Listing, error)

// Result is the aggregated comparable set for one identity.
type Result struct {
	Listings []Listing `json:"listings"`
	Stats    CompStats `json:"stats"`
	Query    string    `json:"query"`
	Attempts int       `json:"attempts"`
}
