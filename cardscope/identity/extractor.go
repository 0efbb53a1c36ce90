package identity

import (
	"strings"
)

// Extractor turns raw OCR/vision text into a CardIdentity. It is total: any
// input, including empty text, yields a well-formed identity with Grade "Raw"
// and a confidence reflecting how many fields were recovered.
type Extractor struct {
	catalog *Catalog
	rules   []Rule
}

func NewExtractor() *Extractor {
	return NewExtractorWithCatalog(NewCatalog())
}

func NewExtractorWithCatalog(catalog *Catalog) *Extractor {
	return &Extractor{
		catalog: catalog,
		rules:   defaultRules(catalog),
	}
}

// Extract parses the OCR text blob alone.
func (e *Extractor) Extract(text string) CardIdentity {
	return e.ExtractWithTitle(text, "")
}

// ExtractWithTitle additionally accepts an auxiliary page title used as a
// player-name fallback when the OCR text yields no candidate.
func (e *Extractor) ExtractWithTitle(text, pageTitle string) CardIdentity {
	var id CardIdentity

	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		t := newScanText(trimmed)
		for _, rule := range e.rules {
			rule.Apply(t, &id)
		}
	}

	if id.Player == "" && pageTitle != "" {
		id.Player = titleFallback(pageTitle)
	}

	id.finalize()
	return id
}

// titleFallback splits an auxiliary title at its first separator character
// and uses the leading segment, which is usually the listing's subject.
func titleFallback(title string) string {
	cut := len(title)
	for _, sep := range []string{"|", " - ", "–", "—", ":"} {
		if i := strings.Index(title, sep); i >= 0 && i < cut {
			cut = i
		}
	}
	segment := strings.Join(strings.Fields(title[:cut]), " ")
	if len(segment) > 60 {
		segment = segment[:60]
	}
	return strings.TrimSpace(segment)
}
