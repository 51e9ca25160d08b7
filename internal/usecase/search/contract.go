package search

import (
	"context"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/usecase/corpus"
)

// Corpus supplies the loaded corpus, loading it on first use.
type Corpus interface {
	Ensure(ctx context.Context) (*corpus.Corpus, error)
}

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// PlantLookup fetches a single plant from the content provider.
type PlantLookup interface {
	GetByName(ctx context.Context, name string) (plant.Record, error)
}
