/*
Package factory provides JSON to Go rate card conversion.

PURPOSE:
  Converts JSON rate card definitions into payroll.RateCard values. Rate
  cards are configuration: finance edits the JSON, the engine reads the
  struct. The same JSON shape is stored in the tiers column of the SQLite
  store and accepted by POST /api/rate-cards.

JSON SCHEMA:
  {
    "id": "standard",
    "name": "Standard group rates",
    "tiers": [
      {"min_students": 0,  "max_students": 5,  "rate_per_lesson": "100.00"},
      {"min_students": 6,  "max_students": 10, "rate_per_lesson": "130.00"},
      {"min_students": 11,                     "rate_per_lesson": "160.00"}
    ]
  }

  max_students omitted or 0 means no upper bound. rate_per_lesson accepts a
  JSON string or number. Tiers are checked in order; the first match wins.

USAGE:
  f := factory.NewRateCardFactory()
  card, err := f.ParseRateCard(factory.StandardRateCardJSON("standard", "Standard"))

SEE ALSO:
  - payroll/rates.go: RateCard type definition
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateCardJSON is the JSON representation of a rate card.
type RateCardJSON struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Tiers []TierJSON `json:"tiers"`
}

// TierJSON represents one class-size band.
type TierJSON struct {
	MinStudents   int             `json:"min_students"`
	MaxStudents   int             `json:"max_students,omitempty"`
	RatePerLesson decimal.Decimal `json:"rate_per_lesson"`
	Description   string          `json:"description,omitempty"`
}

// =============================================================================
// RATE CARD FACTORY
// =============================================================================

// RateCardFactory converts JSON rate cards to Go structs.
type RateCardFactory struct{}

// NewRateCardFactory creates a new rate card factory.
func NewRateCardFactory() *RateCardFactory {
	return &RateCardFactory{}
}

// ParseRateCard parses and validates a JSON rate card.
func (f *RateCardFactory) ParseRateCard(jsonStr string) (*payroll.RateCard, error) {
	var rj RateCardJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rate card JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RateCardJSON to payroll.RateCard.
func (f *RateCardFactory) FromJSON(rj RateCardJSON) (*payroll.RateCard, error) {
	card := &payroll.RateCard{
		ID:    generic.RateCardID(rj.ID),
		Name:  rj.Name,
		Tiers: ParseTiers(rj.Tiers),
	}
	if card.Name == "" {
		card.Name = rj.ID
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// ToJSON converts a RateCard to RateCardJSON.
func (f *RateCardFactory) ToJSON(card payroll.RateCard) RateCardJSON {
	return RateCardJSON{
		ID:    string(card.ID),
		Name:  card.Name,
		Tiers: TiersToJSON(card.Tiers),
	}
}

// ParseTiers converts JSON tiers without validating them.
func ParseTiers(tiers []TierJSON) []payroll.RateTier {
	out := make([]payroll.RateTier, 0, len(tiers))
	for _, tj := range tiers {
		out = append(out, payroll.RateTier{
			MinStudents:   tj.MinStudents,
			MaxStudents:   tj.MaxStudents,
			RatePerLesson: tj.RatePerLesson,
			Description:   tj.Description,
		})
	}
	return out
}

// TiersToJSON is the inverse of ParseTiers.
func TiersToJSON(tiers []payroll.RateTier) []TierJSON {
	out := make([]TierJSON, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, TierJSON{
			MinStudents:   t.MinStudents,
			MaxStudents:   t.MaxStudents,
			RatePerLesson: t.RatePerLesson,
			Description:   t.Description,
		})
	}
	return out
}

// =============================================================================
// PRESETS
// =============================================================================

// StandardRateCardJSON returns a three-band group rate card.
func StandardRateCardJSON(id, name string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"tiers": [
			{"min_students": 0, "max_students": 5, "rate_per_lesson": "100.00"},
			{"min_students": 6, "max_students": 10, "rate_per_lesson": "130.00"},
			{"min_students": 11, "rate_per_lesson": "160.00"}
		]
	}`, id, name)
}

// FlatRateCardJSON returns a card paying the same rate regardless of size.
// Classes with no active students are still paid.
func FlatRateCardJSON(id, name, rate string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"tiers": [
			{"min_students": 0, "rate_per_lesson": %q}
		]
	}`, id, name, rate)
}
