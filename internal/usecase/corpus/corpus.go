package corpus

import (
	"time"

	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/domain/search/keyword"
)

// Load sources.
const (
	SourceSnapshot = "snapshot"
	SourceBuild    = "build"
)

// Corpus is an immutable, index-aligned set of records, their embeddings, and
// the token sets used for the keyword boost.
type Corpus struct {
	records     []plant.Record
	embeddings  [][]float32
	boostTokens []map[string]struct{}
	source      string
	loadedAt    time.Time
}

func newCorpus(records []plant.Record, embeddings [][]float32, boostFields []string, source string) *Corpus {
	tokens := make([]map[string]struct{}, len(records))
	for i, r := range records {
		tokens[i] = keyword.RecordTokens(r, boostFields)
	}
	return &Corpus{
		records:     records,
		embeddings:  embeddings,
		boostTokens: tokens,
		source:      source,
		loadedAt:    time.Now(),
	}
}

// Len returns the number of plants.
func (c *Corpus) Len() int { return len(c.records) }

// Record returns the i-th record. Callers must not mutate it; use Clone.
func (c *Corpus) Record(i int) plant.Record { return c.records[i] }

// Embedding returns the i-th embedding.
func (c *Corpus) Embedding(i int) []float32 { return c.embeddings[i] }

// BoostTokens returns the keyword-boost token set of the i-th record.
func (c *Corpus) BoostTokens(i int) map[string]struct{} { return c.boostTokens[i] }

// Source reports where the corpus came from (snapshot or build).
func (c *Corpus) Source() string { return c.source }

// LoadedAt returns the publication time.
func (c *Corpus) LoadedAt() time.Time { return c.loadedAt }

// Dimensions returns the embedding length, 0 for an empty corpus.
func (c *Corpus) Dimensions() int {
	if len(c.embeddings) == 0 {
		return 0
	}
	return len(c.embeddings[0])
}
