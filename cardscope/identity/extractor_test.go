package identity

import (
	"testing"
)

func TestExtract(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
		want CardIdentity
	}{
		{
			name: "chrome rookie with prefixed number",
			text: "2023 TOPPS CHROME JACOB WILSON BDC-121 RC",
			want: CardIdentity{
				Year:       2023,
				Player:     "Jacob Wilson",
				Set:        "Topps Chrome",
				Company:    "Topps",
				CardNumber: "BDC-121",
				IsRookie:   true,
				Grade:      "Raw",
				CardType:   CardTypeBase,
			},
		},
		{
			name: "graded prizm with hash number",
			text: "2018 PANINI PRIZM LUKA DONCIC #280 PSA 10 RC",
			want: CardIdentity{
				Year:       2018,
				Player:     "Luka Doncic",
				Set:        "Panini Prizm",
				Company:    "Panini",
				CardNumber: "280",
				IsRookie:   true,
				Grade:      "PSA 10",
				CardType:   CardTypeBase,
			},
		},
		{
			name: "parallel color and auto",
			text: "2020 Bowman Chrome Blue Refractor Jasson Dominguez Auto #BCP-25",
			want: CardIdentity{
				Year:       2020,
				Player:     "Jasson Dominguez",
				Set:        "Bowman Chrome",
				Company:    "Topps",
				CardNumber: "BCP-25",
				Parallel:   "Refractor",
				Color:      "Blue",
				Grade:      "Raw",
				CardType:   CardTypeAuto,
			},
		},
		{
			name: "no-dot numbering",
			text: "1989 UPPER DECK KEN GRIFFEY JR No. 1",
			want: CardIdentity{
				Year:       1989,
				Player:     "Ken Griffey Jr",
				Set:        "Upper Deck",
				Company:    "Upper Deck",
				CardNumber: "1",
				Grade:      "Raw",
				CardType:   CardTypeBase,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)

			if got.Year != tt.want.Year {
				t.Errorf("Year = %d, want %d", got.Year, tt.want.Year)
			}
			if got.Player != tt.want.Player {
				t.Errorf("Player = %q, want %q", got.Player, tt.want.Player)
			}
			if got.Set != tt.want.Set {
				t.Errorf("Set = %q, want %q", got.Set, tt.want.Set)
			}
			if got.Company != tt.want.Company {
				t.Errorf("Company = %q, want %q", got.Company, tt.want.Company)
			}
			if got.CardNumber != tt.want.CardNumber {
				t.Errorf("CardNumber = %q, want %q", got.CardNumber, tt.want.CardNumber)
			}
			if got.Parallel != tt.want.Parallel {
				t.Errorf("Parallel = %q, want %q", got.Parallel, tt.want.Parallel)
			}
			if got.Color != tt.want.Color {
				t.Errorf("Color = %q, want %q", got.Color, tt.want.Color)
			}
			if got.IsRookie != tt.want.IsRookie {
				t.Errorf("IsRookie = %v, want %v", got.IsRookie, tt.want.IsRookie)
			}
			if got.Grade != tt.want.Grade {
				t.Errorf("Grade = %q, want %q", got.Grade, tt.want.Grade)
			}
			if got.CardType != tt.want.CardType {
				t.Errorf("CardType = %q, want %q", got.CardType, tt.want.CardType)
			}
		})
	}
}

func TestExtractEmptyTextIsTotal(t *testing.T) {
	e := NewExtractor()

	for _, text := range []string{"", "   ", "\n\t"} {
		id := e.Extract(text)
		if !id.IsEmpty() {
			t.Errorf("Extract(%q) not empty: %+v", text, id)
		}
		if id.Grade != "Raw" {
			t.Errorf("Extract(%q) grade = %q, want Raw", text, id.Grade)
		}
		if id.Confidence != 0 {
			t.Errorf("Extract(%q) confidence = %d, want 0", text, id.Confidence)
		}
		if id.CanonicalName != "" {
			t.Errorf("Extract(%q) canonical = %q, want empty", text, id.CanonicalName)
		}
	}
}

func TestExtractConfidenceAndCanonical(t *testing.T) {
	e := NewExtractor()

	id := e.Extract("2023 TOPPS CHROME JACOB WILSON BDC-121 RC")
	if id.Confidence != 95 {
		t.Errorf("Confidence = %d, want 95", id.Confidence)
	}
	if id.CanonicalName != "2023 Topps Chrome Jacob Wilson #BDC-121" {
		t.Errorf("CanonicalName = %q", id.CanonicalName)
	}

	graded := e.Extract("2018 PANINI PRIZM LUKA DONCIC #280 PSA 10 RC")
	if graded.CanonicalName != "2018 Panini Prizm Luka Doncic #280 PSA 10" {
		t.Errorf("graded CanonicalName = %q", graded.CanonicalName)
	}
}

func TestExtractWithTitleFallback(t *testing.T) {
	e := NewExtractor()

	// OCR yielded no usable name tokens; the page title's leading segment
	// fills in.
	id := e.ExtractWithTitle("2023 #121", "Shohei Ohtani 2023 insert | marketplace listing")
	if id.Player != "Shohei Ohtani 2023 insert" {
		t.Errorf("Player = %q", id.Player)
	}

	// A name found in the text wins over the title.
	id = e.ExtractWithTitle("2023 TOPPS CHROME JACOB WILSON", "Someone Else | listing")
	if id.Player != "Jacob Wilson" {
		t.Errorf("Player = %q, want text-derived name", id.Player)
	}
}

func TestExtractGradeNumberNotCardNumber(t *testing.T) {
	e := NewExtractor()

	// "10" follows a grading vendor and the year token is excluded, so no
	// card number is detected.
	id := e.Extract("2018 PRIZM LUKA DONCIC PSA 10")
	if id.CardNumber != "" {
		t.Errorf("CardNumber = %q, want empty", id.CardNumber)
	}
	if id.Grade != "PSA 10" {
		t.Errorf("Grade = %q, want PSA 10", id.Grade)
	}
}
