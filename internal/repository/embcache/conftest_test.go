package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/db"
	"github.com/ayurkosh/plantsearch/internal/domain"
)

type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	batchCalls  int
	embedCalls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.embedCalls++
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// checkedEmbedder adds a provider health check to mockEmbedder.
type checkedEmbedder struct {
	*mockEmbedder
	healthErr error
	checks    int
}

func (c *checkedEmbedder) HealthCheck(_ context.Context) error {
	c.checks++
	return c.healthErr
}

// mockKVStore implements the consumer interface for tests.
// MGet and SetMulti are routed through getFn and setFn one key at a time.
type mockKVStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte) error
	ttls   []time.Duration
	mgetFn func(ctx context.Context, keys []string) ([][]byte, error)
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := m.Get(ctx, k)
		if err == nil {
			out[i] = v
		}
	}
	return out, nil
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	m.ttls = append(m.ttls, 0)
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.ttls = append(m.ttls, ttl)
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockKVStore) SetMulti(ctx context.Context, items []db.SetItem, ttl time.Duration) error {
	for _, it := range items {
		m.ttls = append(m.ttls, ttl)
		if m.setFn != nil {
			if err := m.setFn(ctx, it.Key, it.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder, opts ...Option) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, "all-MiniLM-L6-v2", nil, zap.NewNop(), opts...)
	return ce, ms
}
