package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/usecase/corpus"
)

// ruleEmbedder maps a text to the vector of the first rule whose key it contains.
type ruleEmbedder struct {
	rules []rule
	dim   int
	err   error
	panic bool
	last  string
}

type rule struct {
	substr string
	vec    []float32
}

func (e *ruleEmbedder) vector(text string) []float32 {
	for _, r := range e.rules {
		if strings.Contains(strings.ToLower(text), r.substr) {
			return r.vec
		}
	}
	return domain.ZeroVector(e.dim)
}

func (e *ruleEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.last = text
	if e.panic {
		panic("embedder exploded")
	}
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vector(text)}, nil
}

func (e *ruleEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

type failingSource struct{}

func (failingSource) FetchAll(context.Context) ([]plant.Record, error) {
	return nil, fmt.Errorf("content provider down: %w", domain.ErrUpstream)
}

type mockLookup struct {
	rec  plant.Record
	err  error
	name string
}

func (m *mockLookup) GetByName(_ context.Context, name string) (plant.Record, error) {
	m.name = name
	return m.rec, m.err
}

func herbs() []plant.Record {
	return []plant.Record{
		{
			"common_name":    "Tulsi",
			"botanical_name": "Ocimum tenuiflorum",
			"medicinal_uses": []any{"fever", "cold"},
		},
		{
			"common_name":    "Neem",
			"botanical_name": "Azadirachta indica",
			"medicinal_uses": []any{"skin problems", "acne"},
		},
		{
			"common_name":          "Aloe Vera",
			"botanical_name":       "Aloe barbadensis miller",
			"medicinal_properties": []any{"soothing"},
			"medicinal_uses":       []any{"skin burns"},
		},
	}
}

// herbEmbedder places Neem on the query's axis and Aloe close to it.
func herbEmbedder() *ruleEmbedder {
	return &ruleEmbedder{
		dim: 3,
		rules: []rule{
			{"tulsi", []float32{1, 0, 0}},
			{"neem", []float32{0, 1, 0}},
			{"aloe", []float32{0, 0.8, 0.6}},
			{"skin", []float32{0, 1, 0}},
			{"fever", []float32{1, 0, 0}},
		},
	}
}

func loadedCache(t *testing.T, records []plant.Record, emb corpus.Embedder) *corpus.Cache {
	t.Helper()
	c := corpus.NewCache(corpus.StaticSource(records), emb, nil, corpus.Config{}, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	return c
}

func intPtr(v int) *int { return &v }
