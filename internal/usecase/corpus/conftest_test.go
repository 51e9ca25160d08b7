package corpus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/repository/snapshot"
)

var errBoom = errors.New("boom")

type mockSource struct {
	records []plant.Record
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (m *mockSource) FetchAll(ctx context.Context) ([]plant.Record, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// mockEmbedder returns a deterministic 3-dim vector per text.
type mockEmbedder struct {
	err       error
	fallbacks int
	short     bool
	calls     atomic.Int32
	texts     []string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls.Add(1)
	m.texts = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i + 1), float32(len(texts[i]) % 7), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: out, Fallbacks: m.fallbacks}, nil
}

type memSnapshots struct {
	mu      sync.Mutex
	snap    *snapshot.Snapshot
	loadErr error
	saveErr error
	saves   int
}

func (m *memSnapshots) Load(context.Context) (snapshot.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return snapshot.Snapshot{}, m.loadErr
	}
	if m.snap == nil {
		return snapshot.Snapshot{}, snapshot.ErrSnapshotNotFound
	}
	return *m.snap, nil
}

func (m *memSnapshots) Save(_ context.Context, s snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = &s
	return nil
}

func (m *memSnapshots) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func herbs() []plant.Record {
	return []plant.Record{
		{"common_name": "Tulsi", "medicinal_uses": []any{"fever", "cold"}},
		{"common_name": "Neem", "medicinal_uses": []any{"skin problems", "acne"}},
		{"common_name": "Aloe Vera", "medicinal_properties": []any{"soothing"}, "medicinal_uses": []any{"skin burns"}},
	}
}

func testConfig() Config {
	return Config{Model: "test-model", Dimensions: 3, SaveSnapshot: true}
}
