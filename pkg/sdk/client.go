package plantsearch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/domain/search/request"
	"github.com/ayurkosh/plantsearch/internal/domain/search/result"
	"github.com/ayurkosh/plantsearch/internal/repository/snapshot"
	"github.com/ayurkosh/plantsearch/internal/transport/content"
	hfEmb "github.com/ayurkosh/plantsearch/internal/transport/huggingface"
	localEmb "github.com/ayurkosh/plantsearch/internal/transport/local"
	"github.com/ayurkosh/plantsearch/internal/usecase/corpus"
	embeddinguc "github.com/ayurkosh/plantsearch/internal/usecase/embedding"
	healthuc "github.com/ayurkosh/plantsearch/internal/usecase/health"
	searchuc "github.com/ayurkosh/plantsearch/internal/usecase/search"
)

// DefaultTopK is the result count the HTTP service uses when none is given.
const DefaultTopK = request.DefaultTopK

// Internal seams, replaced by fakes in tests.
type corpusLoader interface {
	Load(ctx context.Context) error
	Get() (*corpus.Corpus, error)
}

type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]result.Suggestion, error)
	Lookup(ctx context.Context, name string) (plant.Record, error)
}

// Client is the plant search SDK entry point.
type Client struct {
	pool      *embeddinguc.Pool
	corpus    corpusLoader
	searchSvc searchUseCase
	healthSvc healthUseCase
	maxTopK   int
	obs       *observer
	reported  atomic.Bool
}

// New creates a Client. The corpus is loaded lazily on the first Search,
// Suggest or Load, unless WithEagerLoad is given; then ctx bounds that load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{provider: providerLocal}
	for _, o := range opts {
		o.apply(cfg)
	}

	source, lookup, err := contentSource(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	pool, err := embeddinguc.NewPool(cfg.poolSize)
	if err != nil {
		return nil, fmt.Errorf("plantsearch: %w", err)
	}

	emb, err := buildEmbedder(cfg, pool)
	if err != nil {
		pool.Release()
		return nil, err
	}

	var snapshots corpus.SnapshotStore
	if cfg.snapshotPath != "" {
		snapshots = snapshot.NewFileStore(cfg.snapshotPath)
	}

	cache := corpus.NewCache(source, emb, snapshots, corpus.Config{
		Model:        cfg.model,
		Dimensions:   emb.Dimensions(),
		SaveSnapshot: !cfg.skipSave,
	}, zap.NewNop())

	searchOpts := []searchuc.Option{searchuc.WithLookup(lookup)}
	if cfg.boostWeight != nil {
		searchOpts = append(searchOpts, searchuc.WithBoostWeight(*cfg.boostWeight))
	}

	c := &Client{
		pool:      pool,
		corpus:    cache,
		searchSvc: searchuc.New(cache, emb, searchOpts...),
		healthSvc: healthuc.New(cache, nil, emb),
		maxTopK:   cfg.maxTopK,
		obs:       obs,
	}

	if cfg.eagerLoad {
		if err := c.Load(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func contentSource(cfg *clientConfig) (corpus.ContentSource, searchuc.PlantLookup, error) {
	switch {
	case len(cfg.records) > 0 && cfg.plantsURL != "":
		return nil, nil, errors.New("plantsearch: WithRecords and WithContentProvider are mutually exclusive")
	case len(cfg.records) > 0:
		src := make(corpus.StaticSource, len(cfg.records))
		for i, p := range cfg.records {
			src[i] = plant.Record(p)
		}
		return src, src, nil
	case cfg.plantsURL != "":
		client, err := content.NewClient(&content.Config{
			PlantsURL: cfg.plantsURL,
			PlantURL:  cfg.plantURL,
			APIKey:    cfg.apiKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("plantsearch: %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, errors.New("plantsearch: no plants configured (use WithRecords or WithContentProvider)")
	}
}

// buildEmbedder mirrors the service chain without the shared cache:
// provider -> Instrumented -> Fallback.
func buildEmbedder(cfg *clientConfig, pool *embeddinguc.Pool) (*embeddinguc.FallbackEmbedder, error) {
	var base domain.Embedder
	nativeBatch := true

	switch cfg.provider {
	case providerLocal:
		local := localEmb.NewEmbedder(cfg.dimensions)
		cfg.dimensions = local.Dimensions()
		if cfg.model == "" {
			cfg.model = localModel
		}
		base = local
	case providerHuggingFace:
		hf, err := hfEmb.NewEmbedder(&hfEmb.Config{
			Endpoint: cfg.hfEndpoint,
			Token:    cfg.hfToken,
			Model:    cfg.model,
		})
		if err != nil {
			return nil, fmt.Errorf("plantsearch: %w", err)
		}
		base = hf
		nativeBatch = false
	case providerCustom:
		if cfg.embedder == nil {
			return nil, errors.New("plantsearch: WithEmbedder requires a non-nil embedder")
		}
		_, nativeBatch = cfg.embedder.(BatchEmbedder)
		base = &embedderAdapter{inner: cfg.embedder}
	default:
		return nil, fmt.Errorf("plantsearch: unknown embedding provider %q", cfg.provider)
	}

	if cfg.dimensions <= 0 {
		return nil, errors.New("plantsearch: embedding dimensions must be positive")
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(base, cfg.provider, cfg.model, zap.NewNop())
	fb, err := embeddinguc.NewFallbackEmbedder(instrumented, embeddinguc.FallbackConfig{
		Dimensions:  cfg.dimensions,
		Provider:    cfg.provider,
		NativeBatch: nativeBatch,
		Pool:        pool,
	})
	if err != nil {
		return nil, fmt.Errorf("plantsearch: %w", err)
	}
	return fb, nil
}

// Close releases the embedding worker pool.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// Load restores the corpus from the snapshot file or builds it. It is a no-op
// once loaded; concurrent callers share one build.
func (c *Client) Load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("load", start, err) }()

	if err = c.corpus.Load(ctx); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	c.reportCorpus()
	return nil
}

// Search ranks every plant against query and returns the best topK.
// topK 0 returns no results; a negative topK is ErrInvalidArgument.
func (c *Client) Search(ctx context.Context, query string, topK int) (hits []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "top_k", topK, "results", len(hits)) }()

	req, err := request.New(query, &topK, c.maxTopK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	c.reportCorpus()

	hits = make([]Result, len(results))
	for i := range results {
		hits[i] = Result{Plant: Plant(results[i].Record()), Score: results[i].Score()}
	}
	return hits, nil
}

// Suggest returns up to limit plants whose common or botanical name starts
// with prefix. limit <= 0 selects 10.
func (c *Client) Suggest(ctx context.Context, prefix string, limit int) (out []Suggestion, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggest", start, err) }()

	found, err := c.searchSvc.Suggest(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	c.reportCorpus()

	out = make([]Suggestion, len(found))
	for i, s := range found {
		out[i] = Suggestion{CommonName: s.CommonName, BotanicalName: s.BotanicalName}
	}
	return out, nil
}

// Lookup returns a single plant by name from the configured source.
func (c *Client) Lookup(ctx context.Context, name string) (p Plant, err error) {
	start := time.Now()
	defer func() { c.obs.observe("lookup", start, err) }()

	rec, err := c.searchSvc.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	return Plant(rec), nil
}

// reportCorpus publishes corpus size once, after the first successful load.
func (c *Client) reportCorpus() {
	if c.reported.Load() {
		return
	}
	cur, err := c.corpus.Get()
	if err != nil {
		return
	}
	if c.reported.CompareAndSwap(false, true) {
		c.obs.corpusLoaded(cur.Len(), cur.Source())
	}
}

// embedderAdapter wraps the public Embedder to satisfy the internal contracts.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts) //nolint:wrapcheck // wrapped per item
	}
	vecs, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}
