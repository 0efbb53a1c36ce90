package comps

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// junkKeywords mark listings that are not a single card: lots, sealed
// product, customs and fakes all corrupt price statistics.
var junkKeywords = []string{
	"lot", "bundle", "repack", "custom", "mystery", "stickers",
	"box", "hobby", "case", "blaster", "auction photo", "proxy",
	"reprint", "fake", "replica", "break", "digital",
}

// IsJunk reports whether a listing title matches the junk blacklist.
func IsJunk(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range junkKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FilterJunk drops junk-titled listings and anything without a positive
// price.
func FilterJunk(listings []Listing) []Listing {
	kept := listings[:0:0]
	for _, l := range listings {
		if l.Price <= 0 || IsJunk(l.Title) {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// NormalizeTitle lowercases, strips punctuation and collapses whitespace so
// relisted duplicates compare equal.
func NormalizeTitle(title string) string {
	normalized := nonWordRe.ReplaceAllString(strings.ToLower(title), "")
	return strings.Join(strings.Fields(normalized), " ")
}

// Deduplicate collapses listings sharing a normalized title and a price
// rounded to the nearest half unit, keeping the lowest-priced copy as the
// conservative estimate. The operation is idempotent.
func Deduplicate(listings []Listing) []Listing {
	type slot struct {
		index int
		price float64
	}
	seen := make(map[string]slot, len(listings))
	kept := make([]Listing, 0, len(listings))

	for _, l := range listings {
		key := NormalizeTitle(l.Title) + "|" + halfUnit(l.PriceUSD)
		if prev, dup := seen[key]; dup {
			if l.Price < prev.price {
				kept[prev.index] = l
				seen[key] = slot{index: prev.index, price: l.Price}
			}
			continue
		}
		seen[key] = slot{index: len(kept), price: l.Price}
		kept = append(kept, l)
	}
	return kept
}

func halfUnit(price float64) string {
	rounded := math.Round(price*2) / 2
	return strconv.FormatFloat(rounded, 'f', 1, 64)
}
