package identity

import (
	"context"
	"strconv"
	"strings"
)

// CardType classifies the physical style of a card.
type CardType string

const (
	CardTypeBase      CardType = "Base"
	CardTypeAuto      CardType = "Auto"
	CardTypeRPA       CardType = "RPA"
	CardTypeRefractor CardType = "Refractor"
	CardTypeHolo      CardType = "Holo"
)

// CardIdentity is the structured description of a card derived from free
// text. Every field is optional; Grade is normalized to "Raw" when no grading
// vendor was detected.
type CardIdentity struct {
	Year          int      `json:"year,omitempty"`
	Player        string   `json:"player,omitempty"`
	Team          string   `json:"team,omitempty"`
	Set           string   `json:"set,omitempty"`
	Subset        string   `json:"subset,omitempty"`
	Company       string   `json:"company,omitempty"`
	CardNumber    string   `json:"card_number,omitempty"`
	Parallel      string   `json:"parallel,omitempty"`
	Color         string   `json:"color,omitempty"`
	IsRookie      bool     `json:"is_rookie"`
	CardType      CardType `json:"card_type,omitempty"`
	Grade         string   `json:"grade"`
	CanonicalName string   `json:"canonical_name,omitempty"`
	Confidence    int      `json:"confidence"`
}

// Enricher is an optional second pass over a heuristic identity, typically a
// generative text model. Implementations must preserve the CardIdentity
// contract; a failed enrichment leaves the heuristic result in place.
type Enricher interface {
	Enrich(ctx context.Context, text string, id CardIdentity) (CardIdentity, error)
}

// Confidence weights per populated field. Player is the strongest single
// signal for finding comparables, set and number narrow the print run, year
// mostly disambiguates reprints.
const (
	weightPlayer   = 40
	weightSet      = 25
	weightNumber   = 15
	weightYear     = 10
	weightCompany  = 5
	weightParallel = 5

	maxConfidence = 100
)

// IsEmpty reports whether no semantic field was populated.
func (id CardIdentity) IsEmpty() bool {
	return id.Year == 0 &&
		id.Player == "" &&
		id.Set == "" &&
		id.Company == "" &&
		id.CardNumber == "" &&
		id.Parallel == "" &&
		id.Color == "" &&
		!id.IsRookie
}

// Graded reports whether the card carries a real grade rather than "Raw".
func (id CardIdentity) Graded() bool {
	return id.Grade != "" && !strings.EqualFold(id.Grade, "Raw")
}

func (id *CardIdentity) finalize() {
	if id.Grade == "" {
		id.Grade = "Raw"
	}
	if id.CardType == "" {
		id.CardType = CardTypeBase
	}
	id.Confidence = id.score()
	id.CanonicalName = id.canonicalName()
}

func (id CardIdentity) score() int {
	score := 0
	if id.Player != "" {
		score += weightPlayer
	}
	if id.Set != "" {
		score += weightSet
	}
	if id.CardNumber != "" {
		score += weightNumber
	}
	if id.Year != 0 {
		score += weightYear
	}
	if id.Company != "" {
		score += weightCompany
	}
	if id.Parallel != "" || id.Color != "" {
		score += weightParallel
	}
	if score > maxConfidence {
		score = maxConfidence
	}
	return score
}

func (id CardIdentity) canonicalName() string {
	if id.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, 7)
	if id.Year != 0 {
		parts = append(parts, strconv.Itoa(id.Year))
	}
	switch {
	case id.Set != "":
		parts = append(parts, id.Set)
	case id.Company != "":
		parts = append(parts, id.Company)
	}
	if id.Player != "" {
		parts = append(parts, id.Player)
	}
	if id.Parallel != "" {
		parts = append(parts, id.Parallel)
	}
	if id.Color != "" {
		parts = append(parts, id.Color)
	}
	if id.CardNumber != "" {
		parts = append(parts, "#"+id.CardNumber)
	}
	if id.Graded() {
		parts = append(parts, id.Grade)
	}
	return strings.Join(parts, " ")
}
