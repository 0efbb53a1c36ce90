package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Scan is one recorded identification run: the resolved identity fields, the
// query that produced the comparables, and the headline result.
type Scan struct {
	bun.BaseModel `bun:"table:scans,alias:s"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Fingerprint  string    `bun:"fingerprint,notnull" json:"fingerprint"`
	Player       string    `bun:"player" json:"player"`
	SetName      string    `bun:"set_name" json:"set_name"`
	CardNumber   string    `bun:"card_number" json:"card_number"`
	Year         int       `bun:"year" json:"year"`
	Grade        string    `bun:"grade" json:"grade"`
	Confidence   int       `bun:"confidence" json:"confidence"`
	Query        string    `bun:"query" json:"query"`
	ListingCount int       `bun:"listing_count" json:"listing_count"`
	MedianPrice  float64   `bun:"median_price,nullzero" json:"median_price,omitempty"`
	Suppressed   bool      `bun:"suppressed" json:"suppressed"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
