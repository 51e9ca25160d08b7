package result

import (
	"encoding/json"

	"github.com/ayurkosh/plantsearch/internal/domain/plant"
)

// Result is a single search hit: a copy of the corpus record plus its score.
type Result struct {
	record plant.Record
	score  float64
}

// New creates a search result. The record is copied; the caller's map is never
// written to.
func New(r plant.Record, score float64) Result {
	return Result{record: r.WithScore(score), score: score}
}

// ID returns the plant identifier.
func (r *Result) ID() string { return r.record.ID() }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Record returns the annotated record (includes the score field).
func (r *Result) Record() plant.Record { return r.record }

// MarshalJSON flattens the result into the record object.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.record == nil {
		return json.Marshal(map[string]any{plant.FieldScore: r.score})
	}
	return json.Marshal(r.record)
}

// Suggestion is a lightweight name match for autocomplete.
type Suggestion struct {
	CommonName    string `json:"common_name"`
	BotanicalName string `json:"botanical_name"`
}
