package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/metrics"
)

// FallbackConfig configures a FallbackEmbedder.
type FallbackConfig struct {
	// Dimensions is the agreed vector length. Results of any other length are replaced.
	Dimensions int
	Provider   string
	// NativeBatch sends batches to the inner BatchEmbedder in one call.
	// When false, or when that call fails, texts are embedded one by one on Pool.
	NativeBatch bool
	Pool        *Pool
	Logger      *zap.Logger
}

// FallbackEmbedder is the outermost embedding decorator. It never returns an
// error: any provider failure (timeout, non-2xx, malformed or empty response,
// wrong dimension) becomes a zero vector of the agreed dimension, and the
// failure is logged and counted.
type FallbackEmbedder struct {
	inner       domain.Embedder
	dim         int
	provider    string
	nativeBatch bool
	pool        *Pool
	logger      *zap.Logger
}

// NewFallbackEmbedder wraps inner.
func NewFallbackEmbedder(inner domain.Embedder, cfg FallbackConfig) (*FallbackEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("fallback embedder: dimensions must be positive, got %d", cfg.Dimensions)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackEmbedder{
		inner:       inner,
		dim:         cfg.Dimensions,
		provider:    cfg.Provider,
		nativeBatch: cfg.NativeBatch,
		pool:        cfg.Pool,
		logger:      logger,
	}, nil
}

// Dimensions returns the agreed vector length.
func (f *FallbackEmbedder) Dimensions() int { return f.dim }

// Embed never fails; see FallbackEmbedder.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := f.inner.Embed(ctx, text)
	if err != nil {
		return f.fallback(text, err), nil
	}
	if len(res.Embedding) != f.dim {
		return f.fallback(text, fmt.Errorf("got %d dimensions, want %d: %w",
			len(res.Embedding), f.dim, domain.ErrDimensionMismatch)), nil
	}
	return res, nil
}

// BatchEmbed never fails and always returns len(texts) vectors in input order.
func (f *FallbackEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	if be, ok := f.inner.(domain.BatchEmbedder); ok && f.nativeBatch {
		res, err := be.BatchEmbed(ctx, texts)
		if err == nil && len(res.Embeddings) == len(texts) {
			for i, vec := range res.Embeddings {
				if len(vec) != f.dim {
					res.Embeddings[i] = f.fallback(texts[i], fmt.Errorf("got %d dimensions, want %d: %w",
						len(vec), f.dim, domain.ErrDimensionMismatch)).Embedding
					res.Fallbacks++
				}
			}
			return res, nil
		}
		if err == nil {
			err = fmt.Errorf("got %d embeddings for %d texts: %w", len(res.Embeddings), len(texts), domain.ErrUpstream)
		}
		f.logger.Warn("Batch embedding failed, retrying per text",
			zap.String("provider", f.provider),
			zap.Int("batch_size", len(texts)),
			zap.Error(err),
		)
	}

	return f.perText(ctx, texts), nil
}

func (f *FallbackEmbedder) perText(ctx context.Context, texts []string) domain.BatchEmbeddingResult {
	results := make([]domain.EmbeddingResult, len(texts))
	embed := func(i int) {
		results[i], _ = f.Embed(ctx, texts[i])
	}

	if f.pool == nil {
		for i := range texts {
			embed(i)
		}
	} else if err := f.pool.Each(ctx, len(texts), embed); err != nil {
		f.logger.Warn("Worker pool stopped early", zap.String("provider", f.provider), zap.Error(err))
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, r := range results {
		if r.Embedding == nil {
			// job never ran (pool stopped on ctx cancellation)
			r = f.fallback(texts[i], ctx.Err())
		}
		out.Embeddings[i] = r.Embedding
		out.PromptTokens += r.PromptTokens
		out.TotalTokens += r.TotalTokens
		if r.Fallback {
			out.Fallbacks++
		}
	}
	return out
}

// HealthCheck forwards to the inner embedder; health is the one place errors surface.
func (f *FallbackEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := f.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding provider %s: %w", f.provider, err)
		}
	}
	return nil
}

func (f *FallbackEmbedder) fallback(text string, err error) domain.EmbeddingResult {
	metrics.EmbeddingFallbacksTotal.WithLabelValues(f.provider).Inc()
	f.logger.Warn("Embedding failed, using zero vector",
		zap.String("stage", "embed"),
		zap.String("provider", f.provider),
		zap.String("text", truncate(text, 50)),
		zap.Error(err),
	)
	return domain.EmbeddingResult{Embedding: domain.ZeroVector(f.dim), Fallback: true}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
