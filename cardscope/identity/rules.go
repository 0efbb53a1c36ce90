package identity

import (
	"regexp"
	"strconv"
	"strings"
)

// A Rule inspects the scanned text and fills in at most one aspect of the
// identity. Rules run in a fixed, documented order; later rules may read
// fields set by earlier ones (the bare-number rule skips the year token).
type Rule struct {
	Name  string
	Apply func(t *scanText, id *CardIdentity)
}

// scanText is the pre-tokenized view of one OCR blob shared by all rules.
type scanText struct {
	raw    string
	lower  string
	tokens []string
}

func newScanText(text string) *scanText {
	return &scanText{
		raw:    text,
		lower:  strings.ToLower(text),
		tokens: strings.Fields(text),
	}
}

var (
	yearRe = regexp.MustCompile(`\b(?:18|19|20)\d{2}\b`)

	// Numbering conventions in precedence order; the first hit wins.
	numberHashRe   = regexp.MustCompile(`#\s*([A-Za-z]{0,4}-?\d{1,4}[A-Za-z]?)`)
	numberNoRe     = regexp.MustCompile(`(?i)\bno\.?\s*(\d{1,4}[A-Za-z]?)\b`)
	numberPrefixRe = regexp.MustCompile(`\b([A-Za-z]{1,4}-\d{1,4})\b`)
	bareNumberRe   = regexp.MustCompile(`^\d{1,4}[A-Za-z]?$`)

	rookieRe = regexp.MustCompile(`(?i)\b(?:rc|rookie)\b`)
	gradeRe  = regexp.MustCompile(`(?i)\b(psa|bgs|sgc|cgc)\s*(10|[1-9](?:\.5)?)\b`)
	autoRe   = regexp.MustCompile(`(?i)\b(?:auto|autograph|autographed|signed)\b`)
	patchRe  = regexp.MustCompile(`(?i)\b(?:patch|relic|jersey)\b`)
)

var parallelKeywords = []string{
	"Refractor", "X-Fractor", "Sapphire", "Wave", "Shimmer", "Mojo",
	"Ice", "Velocity", "Hyper", "Scope", "Disco", "Holo", "Cracked Ice",
}

var colorKeywords = []string{
	"Silver", "Gold", "Green", "Blue", "Red", "Purple",
	"Orange", "Pink", "Black", "Teal", "Bronze",
}

var gradingVendors = map[string]struct{}{
	"psa": {}, "bgs": {}, "sgc": {}, "cgc": {},
}

// nameStopwords are tokens that never belong to a player name.
var nameStopwords = map[string]struct{}{
	"RC": {}, "ROOKIE": {}, "PSA": {}, "BGS": {}, "SGC": {}, "CGC": {},
	"AUTO": {}, "AUTOGRAPH": {}, "PATCH": {}, "RELIC": {}, "JERSEY": {},
	"REFRACTOR": {}, "HOLO": {}, "CARD": {}, "CARDS": {}, "MINT": {},
	"GEM": {}, "BASE": {}, "THE": {}, "SP": {}, "SSP": {},
}

func defaultRules(catalog *Catalog) []Rule {
	return []Rule{
		{Name: "year", Apply: yearRule},
		{Name: "set", Apply: setRule(catalog)},
		{Name: "number", Apply: numberRule},
		{Name: "player", Apply: playerRule(catalog)},
		{Name: "parallel", Apply: parallelRule},
		{Name: "color", Apply: colorRule},
		{Name: "rookie", Apply: rookieRule},
		{Name: "grade", Apply: gradingRule},
		{Name: "card-type", Apply: cardTypeRule},
	}
}

// yearRule takes the first plausible 4-digit year in textual order.
func yearRule(t *scanText, id *CardIdentity) {
	for _, m := range yearRe.FindAllString(t.raw, -1) {
		year, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if year >= 1800 && year <= 2035 {
			id.Year = year
			return
		}
	}
}

func setRule(catalog *Catalog) func(*scanText, *CardIdentity) {
	return func(t *scanText, id *CardIdentity) {
		set, ok := catalog.MatchSet(t.lower)
		if !ok {
			set, ok = catalog.FuzzySet(t.lower)
		}
		if ok {
			id.Set = set
			id.Company = catalog.CompanyFor(set)
		}
		if id.Company == "" {
			if company, found := catalog.MatchCompany(t.lower); found {
				id.Company = company
			}
		}
	}
}

// numberRule tries numbering conventions in order: "# N", "No. N", a
// letter-prefixed token like BDC-121, then a bare 1-4 digit token. The bare
// form skips the detected year and anything that reads as a grade.
func numberRule(t *scanText, id *CardIdentity) {
	if m := numberHashRe.FindStringSubmatch(t.raw); m != nil {
		id.CardNumber = normalizeNumber(m[1])
		return
	}
	if m := numberNoRe.FindStringSubmatch(t.raw); m != nil {
		id.CardNumber = normalizeNumber(m[1])
		return
	}
	if m := numberPrefixRe.FindStringSubmatch(t.raw); m != nil {
		id.CardNumber = normalizeNumber(m[1])
		return
	}

	yearToken := ""
	if id.Year != 0 {
		yearToken = strconv.Itoa(id.Year)
	}
	for i, tok := range t.tokens {
		if !bareNumberRe.MatchString(tok) || tok == yearToken {
			continue
		}
		if i > 0 {
			prev := strings.ToLower(strings.Trim(t.tokens[i-1], ".,"))
			if _, graded := gradingVendors[prev]; graded {
				continue
			}
		}
		id.CardNumber = normalizeNumber(tok)
		return
	}
}

func normalizeNumber(n string) string {
	n = strings.TrimPrefix(strings.TrimSpace(n), "#")
	return strings.ToUpper(n)
}

// playerRule collects runs of name-shaped tokens and picks the longest 2-3
// word candidate that does not start with a brand word. Longer candidates are
// assumed to be more complete names.
func playerRule(catalog *Catalog) func(*scanText, *CardIdentity) {
	return func(t *scanText, id *CardIdentity) {
		best := ""
		for _, candidate := range nameCandidates(t.tokens, catalog) {
			if len(candidate) > len(best) {
				best = candidate
			}
		}
		if best != "" {
			id.Player = titleCase(best)
		}
	}
}

var nameTokenRe = regexp.MustCompile(`^(?:[A-Z][a-z]+|[A-Z]{2,})$`)

func nameCandidates(tokens []string, catalog *Catalog) []string {
	var runs [][]string
	var current []string
	for _, tok := range tokens {
		clean := strings.Trim(tok, ".,'")
		upper := strings.ToUpper(clean)
		_, stop := nameStopwords[upper]
		if nameTokenRe.MatchString(clean) && !stop {
			current = append(current, clean)
			continue
		}
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}

	var candidates []string
	for _, run := range runs {
		for i := 0; i < len(run); i++ {
			if catalog.IsBrandToken(strings.ToUpper(run[i])) {
				continue
			}
			for width := 2; width <= 3 && i+width <= len(run); width++ {
				window := run[i : i+width]
				if containsBrandToken(window, catalog) {
					continue
				}
				candidates = append(candidates, strings.Join(window, " "))
			}
		}
	}
	return candidates
}

func containsBrandToken(window []string, catalog *Catalog) bool {
	for _, tok := range window {
		if catalog.IsBrandToken(strings.ToUpper(tok)) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func parallelRule(t *scanText, id *CardIdentity) {
	for _, kw := range parallelKeywords {
		if containsWord(t.lower, strings.ToLower(kw)) {
			id.Parallel = kw
			return
		}
	}
}

func colorRule(t *scanText, id *CardIdentity) {
	for _, kw := range colorKeywords {
		if containsWord(t.lower, strings.ToLower(kw)) {
			id.Color = kw
			return
		}
	}
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(haystack[start-1])
		afterOK := end == len(haystack) || !isLetter(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func rookieRule(t *scanText, id *CardIdentity) {
	if rookieRe.MatchString(t.raw) {
		id.IsRookie = true
	}
}

func gradingRule(t *scanText, id *CardIdentity) {
	if m := gradeRe.FindStringSubmatch(t.raw); m != nil {
		id.Grade = strings.ToUpper(m[1]) + " " + m[2]
	}
}

func cardTypeRule(t *scanText, id *CardIdentity) {
	hasAuto := autoRe.MatchString(t.raw)
	hasPatch := patchRe.MatchString(t.raw)

	switch {
	case hasAuto && hasPatch:
		id.CardType = CardTypeRPA
	case hasAuto:
		id.CardType = CardTypeAuto
	case strings.Contains(t.lower, "refractor"):
		id.CardType = CardTypeRefractor
	case strings.Contains(t.lower, "holo"):
		id.CardType = CardTypeHolo
	}
}
