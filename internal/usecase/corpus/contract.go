package corpus

import (
	"context"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/repository/snapshot"
)

// ContentSource lists every plant in the catalogue.
type ContentSource interface {
	FetchAll(ctx context.Context) ([]plant.Record, error)
}

// Embedder vectorizes corpus texts in input order.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// SnapshotStore persists built corpora.
type SnapshotStore interface {
	Load(ctx context.Context) (snapshot.Snapshot, error)
	Save(ctx context.Context, s snapshot.Snapshot) error
}
