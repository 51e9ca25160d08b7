package plantsearch

import "github.com/ayurkosh/plantsearch/internal/domain/plant"

// Plant is a plant record as served by the content provider: field name to a
// scalar, a list, or a mapping such as language to local name.
type Plant map[string]any

// ID returns the upstream identifier, falling back to slug and common name.
func (p Plant) ID() string { return plant.Record(p).ID() }

// CommonName returns the common_name field.
func (p Plant) CommonName() string { return plant.Record(p).CommonName() }

// BotanicalName returns the botanical_name field.
func (p Plant) BotanicalName() string { return plant.Record(p).BotanicalName() }

// Result is a single search hit. Plant is a copy carrying the "score" field.
type Result struct {
	Plant Plant
	Score float64
}

// Suggestion is an autocomplete match.
type Suggestion struct {
	CommonName    string
	BotanicalName string
}
