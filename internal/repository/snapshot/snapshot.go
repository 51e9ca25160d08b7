// Package snapshot persists a fully built corpus (records plus their
// embeddings) so later processes can skip fetching and embedding.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
)

// FormatVersion is bumped whenever the document layout changes.
const FormatVersion = 1

// ErrSnapshotNotFound is returned by Load when nothing has been saved yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted corpus. Records and Embeddings are index-aligned.
type Snapshot struct {
	Version    int            `json:"version"`
	Model      string         `json:"model"`
	Dimensions int            `json:"dimensions"`
	CreatedAt  time.Time      `json:"created_at"`
	Records    []plant.Record `json:"records"`
	Embeddings [][]float32    `json:"embeddings"`
}

// Store loads and saves snapshots.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

// Validate checks that the snapshot is usable with an embedder of dim
// dimensions. dim <= 0 skips the dimension match.
func (s *Snapshot) Validate(dim int) error {
	if s.Version != FormatVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, FormatVersion)
	}
	if len(s.Records) != len(s.Embeddings) {
		return fmt.Errorf("snapshot has %d records but %d embeddings", len(s.Records), len(s.Embeddings))
	}
	if len(s.Records) == 0 {
		return fmt.Errorf("snapshot is empty")
	}
	want := len(s.Embeddings[0])
	if s.Dimensions > 0 && want != s.Dimensions {
		return fmt.Errorf("snapshot declares %d dimensions, vectors have %d: %w",
			s.Dimensions, want, domain.ErrDimensionMismatch)
	}
	for i, e := range s.Embeddings {
		if len(e) != want {
			return fmt.Errorf("embedding %d has %d dimensions, want %d: %w",
				i, len(e), want, domain.ErrDimensionMismatch)
		}
	}
	if dim > 0 && want != dim {
		return fmt.Errorf("snapshot has %d dimensions, embedder has %d: %w",
			want, dim, domain.ErrDimensionMismatch)
	}
	return nil
}
