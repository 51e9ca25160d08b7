// Package local is the in-process embedding provider. It needs no network and
// produces identical vectors for identical input across runs and machines.
package local

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/search/text"
)

// DefaultDimensions matches all-MiniLM-L6-v2 so snapshots stay interchangeable
// with the hosted model dimension.
const DefaultDimensions = 384

const bigramWeight = 0.5

// Embedder maps text to a signed feature-hashing vector over word unigrams and
// bigrams, L2-normalised. Texts sharing words land close in cosine space.
type Embedder struct {
	dim int
}

// NewEmbedder creates a local embedder. dim <= 0 selects DefaultDimensions.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Embedder{dim: dim}
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int { return e.dim }

// Embed implements domain.Embedder. Text without words yields a zero vector.
func (e *Embedder) Embed(ctx context.Context, s string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	words := text.Words(s)
	return domain.EmbeddingResult{
		Embedding:    e.vector(words),
		PromptTokens: len(words),
		TotalTokens:  len(words),
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, s := range texts {
		res, err := e.Embed(ctx, s)
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = res.Embedding
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	return out, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vector(words []string) []float32 {
	acc := make([]float64, e.dim)
	for i, w := range words {
		e.add(acc, w, 1)
		if i > 0 {
			e.add(acc, words[i-1]+" "+w, bigramWeight)
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	vec := make([]float32, e.dim)
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}
