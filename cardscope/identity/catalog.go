package identity

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Catalog holds the known set/brand names used during extraction. Both tables
// are plain data so deployments can extend them without touching rule logic.
type Catalog struct {
	sets      []string // sorted longest-first so multi-word sets win
	lowerSets []string // same order, lowercased, for matching
	brands    map[string]string
	companies []string

	brandTokens map[string]struct{}
}

// defaultSets lists catalog entries in no particular order; the constructor
// sorts them longest-first so "Topps Chrome" is tried before "Topps".
var defaultSets = []string{
	"Topps Chrome",
	"Topps Heritage",
	"Topps Update",
	"Topps Finest",
	"Stadium Club",
	"Allen & Ginter",
	"Bowman Chrome",
	"Bowman Draft",
	"Bowman Sterling",
	"Topps",
	"Bowman",
	"Panini Prizm",
	"Panini Select",
	"Panini Mosaic",
	"Panini Absolute",
	"Panini Contenders",
	"Donruss Optic",
	"National Treasures",
	"Immaculate Collection",
	"Prizm",
	"Select",
	"Optic",
	"Mosaic",
	"Donruss",
	"Contenders",
	"Upper Deck",
	"SP Authentic",
	"Young Guns",
	"SPx",
	"Fleer",
	"Score",
	"Leaf",
}

// defaultBrands maps a set-name keyword to the manufacturer it implies.
var defaultBrands = map[string]string{
	"prizm":        "Panini",
	"select":       "Panini",
	"optic":        "Panini",
	"mosaic":       "Panini",
	"donruss":      "Panini",
	"contenders":   "Panini",
	"absolute":     "Panini",
	"panini":       "Panini",
	"national":     "Panini",
	"immaculate":   "Panini",
	"score":        "Panini",
	"chrome":       "Topps",
	"bowman":       "Topps",
	"topps":        "Topps",
	"heritage":     "Topps",
	"stadium":      "Topps",
	"finest":       "Topps",
	"ginter":       "Topps",
	"upper deck":   "Upper Deck",
	"sp authentic": "Upper Deck",
	"spx":          "Upper Deck",
	"young guns":   "Upper Deck",
	"fleer":        "Fleer",
	"leaf":         "Leaf",
}

var defaultCompanies = []string{"Upper Deck", "Panini", "Topps", "Bowman", "Fleer", "Leaf"}

func NewCatalog() *Catalog {
	return NewCatalogWith(defaultSets, defaultBrands)
}

// NewCatalogWith builds a catalog from injected tables; nil arguments fall
// back to the shipped defaults.
func NewCatalogWith(sets []string, brands map[string]string) *Catalog {
	if sets == nil {
		sets = defaultSets
	}
	if brands == nil {
		brands = defaultBrands
	}

	sorted := make([]string, len(sets))
	copy(sorted, sets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	c := &Catalog{
		sets:        sorted,
		lowerSets:   make([]string, len(sorted)),
		brands:      brands,
		companies:   defaultCompanies,
		brandTokens: make(map[string]struct{}),
	}
	for i, s := range sorted {
		c.lowerSets[i] = strings.ToLower(s)
		for _, tok := range strings.Fields(s) {
			c.brandTokens[strings.ToUpper(tok)] = struct{}{}
		}
	}
	for _, comp := range c.companies {
		for _, tok := range strings.Fields(comp) {
			c.brandTokens[strings.ToUpper(tok)] = struct{}{}
		}
	}
	return c
}

// MatchSet finds the first catalog entry contained in the lowercased text.
// Entries are ordered longest-first so a multi-word set beats its substring
// alias.
func (c *Catalog) MatchSet(lower string) (string, bool) {
	for i, ls := range c.lowerSets {
		if strings.Contains(lower, ls) {
			return c.sets[i], true
		}
	}
	return "", false
}

// FuzzySet tolerates OCR-mangled set names ("CHR0ME", dropped letters) by
// fuzzy-matching token windows against the catalog. A match is accepted only
// when the window is within two characters of the catalog entry, which keeps
// short noise tokens from latching onto long set names.
func (c *Catalog) FuzzySet(lower string) (string, bool) {
	tokens := strings.Fields(lower)
	bestScore := -1
	bestSet := ""

	for i := range tokens {
		for width := 1; width <= 2 && i+width <= len(tokens); width++ {
			window := stripNonLetters(strings.Join(tokens[i:i+width], " "))
			if len(window) < 4 {
				continue
			}
			for _, m := range fuzzy.Find(window, c.lowerSets) {
				if len(window) < len(m.Str)-2 || len(window) > len(m.Str)+2 {
					continue
				}
				if m.Score > bestScore {
					bestScore = m.Score
					bestSet = c.sets[m.Index]
				}
				break // fuzzy.Find returns matches best-first
			}
		}
	}
	return bestSet, bestSet != ""
}

// CompanyFor infers the manufacturer from a set name.
func (c *Catalog) CompanyFor(set string) string {
	lower := strings.ToLower(set)
	// Multi-word keywords first so "upper deck" is not shadowed.
	for _, key := range []string{"upper deck", "sp authentic", "young guns"} {
		if strings.Contains(lower, key) {
			return c.brands[key]
		}
	}
	for _, tok := range strings.Fields(lower) {
		if company, ok := c.brands[tok]; ok {
			return company
		}
	}
	return ""
}

// MatchCompany finds a directly mentioned manufacturer in the text.
func (c *Catalog) MatchCompany(lower string) (string, bool) {
	for _, comp := range c.companies {
		if strings.Contains(lower, strings.ToLower(comp)) {
			return comp, true
		}
	}
	return "", false
}

// IsBrandToken reports whether the uppercased token belongs to any known
// set or company name. Used to reject player-name candidates.
func (c *Catalog) IsBrandToken(upper string) bool {
	_, ok := c.brandTokens[upper]
	return ok
}

func stripNonLetters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
