// Package query converts a card identity into marketplace search strings.
// Building is pure string assembly: no I/O, never fails.
package query

import (
	"strconv"
	"strings"

	"github.com/cardscope/cardscope/cardscope/identity"
)

// fallbackQuery is returned as the primary when the identity is empty.
const fallbackQuery = "trading card"

// QuerySet is a primary search string plus ordered, deduplicated
// alternatives of decreasing specificity.
type QuerySet struct {
	Primary      string   `json:"query"`
	Alternatives []string `json:"alt_queries"`
}

// parts controls which identity fields a variant emits. The zero value emits
// everything, which is the primary query.
type parts struct {
	omitNumber   bool
	omitParallel bool
	omitColor    bool
	omitGrade    bool
	omitType     bool
	minimal      bool // year, set, player, rookie flag only
	brandFirst   bool // year, company, set, then parallel/color + rookie
}

// Build produces the primary query and its structural relaxations. Each
// alternative broadens the search by removing or reordering one aspect, so
// the aggregator can retry from most-specific to most-generic.
func Build(id identity.CardIdentity) QuerySet {
	primary := render(id, parts{})
	if primary == "" {
		primary = fallbackQuery
	}

	variants := []parts{
		{omitNumber: true},
		{omitNumber: true, omitParallel: true, omitColor: true},
		{omitGrade: true},
		{omitType: true},
		{minimal: true},
		{brandFirst: true, omitColor: true, omitNumber: true, omitGrade: true, omitType: true},
		{brandFirst: true, omitParallel: true, omitNumber: true, omitGrade: true, omitType: true},
	}

	seen := map[string]struct{}{primary: {}}
	var alternatives []string
	for _, v := range variants {
		q := render(id, v)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		alternatives = append(alternatives, q)
	}

	return QuerySet{Primary: primary, Alternatives: alternatives}
}

// render concatenates the populated fields in canonical order: year,
// company, set, player, parallel, color, type keywords, grade, number.
func render(id identity.CardIdentity, p parts) string {
	fields := make([]string, 0, 10)

	add := func(s string) {
		if s != "" {
			fields = append(fields, s)
		}
	}

	if p.minimal {
		if id.Year != 0 {
			add(strconv.Itoa(id.Year))
		}
		add(id.Set)
		add(id.Player)
		if id.IsRookie {
			add("RC")
		}
		return collapse(fields)
	}

	if id.Year != 0 {
		add(strconv.Itoa(id.Year))
	}
	if p.brandFirst {
		add(id.Company)
		add(id.Set)
	} else {
		add(id.Company)
		add(id.Set)
		add(id.Player)
	}
	if !p.omitParallel {
		add(id.Parallel)
	}
	if !p.omitColor {
		add(id.Color)
	}
	if id.IsRookie {
		add("RC")
	}
	if !p.omitType {
		add(typeKeywords(id.CardType))
	}
	if !p.omitGrade && id.Graded() {
		add(id.Grade)
	}
	if !p.omitNumber {
		if num := queryNumber(id.CardNumber); num != "" {
			add("#" + num)
		}
	}

	return collapse(fields)
}

func typeKeywords(t identity.CardType) string {
	switch t {
	case identity.CardTypeAuto:
		return "Auto"
	case identity.CardTypeRPA:
		return "RPA"
	default:
		return ""
	}
}

// queryNumber drops numbers whose numeric part is 2 or less: on cards those
// are almost always jersey numbers picked up by OCR, and they poison search
// results.
func queryNumber(num string) string {
	if num == "" {
		return ""
	}
	digits := strings.TrimLeft(strings.Map(keepDigits, num), "0")
	if digits == "" {
		return ""
	}
	if value, err := strconv.Atoi(digits); err == nil && value <= 2 && !strings.ContainsAny(num, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return ""
	}
	return num
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func collapse(fields []string) string {
	return strings.Join(strings.Fields(strings.Join(fields, " ")), " ")
}
