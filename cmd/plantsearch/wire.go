package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayurkosh/plantsearch/internal/config"
	"github.com/ayurkosh/plantsearch/internal/db"
	dbValkey "github.com/ayurkosh/plantsearch/internal/db/valkey"
	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/metrics"
	"github.com/ayurkosh/plantsearch/internal/repository/embcache"
	"github.com/ayurkosh/plantsearch/internal/repository/snapshot"
	"github.com/ayurkosh/plantsearch/internal/transport/content"
	hfEmb "github.com/ayurkosh/plantsearch/internal/transport/huggingface"
	localEmb "github.com/ayurkosh/plantsearch/internal/transport/local"
	openaiEmb "github.com/ayurkosh/plantsearch/internal/transport/openai"
	"github.com/ayurkosh/plantsearch/internal/usecase/corpus"
	embeddinguc "github.com/ayurkosh/plantsearch/internal/usecase/embedding"
	healthuc "github.com/ayurkosh/plantsearch/internal/usecase/health"
	searchuc "github.com/ayurkosh/plantsearch/internal/usecase/search"
)

// app is the composition root: everything serve and snapshot share.
type app struct {
	store    db.Store
	pool     *embeddinguc.Pool
	embedder *embeddinguc.FallbackEmbedder
	corpus   *corpus.Cache
	search   *searchuc.Service
	health   *healthuc.Service
}

// Close releases the worker pool and the cache connection.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Release()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	if cfg.Cache.Enabled() {
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
		a.store = store
	}

	pool, err := embeddinguc.NewPool(cfg.Embedding.PoolSize)
	if err != nil {
		a.Close()
		return nil, err //nolint:wrapcheck // already wrapped
	}
	a.pool = pool

	a.embedder, err = buildEmbedder(cfg, a.store, pool, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	contentClient, err := content.NewClient(&content.Config{
		PlantsURL: cfg.Content.PlantsURL,
		PlantURL:  cfg.Content.PlantURL,
		APIKey:    cfg.Content.APIKey,
		Timeout:   time.Duration(cfg.Content.TimeoutSec) * time.Second,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("content client: %w", err)
	}

	var docEmb corpus.Embedder = a.embedder
	if instr := cfg.Embedding.DocumentInstruction; instr != "" {
		docEmb = domain.NewInstructionEmbedder(a.embedder, instr)
	}
	var queryEmb searchuc.Embedder = a.embedder
	if instr := cfg.Embedding.QueryInstruction; instr != "" {
		queryEmb = domain.NewInstructionEmbedder(a.embedder, instr)
	}

	a.corpus = corpus.NewCache(contentClient, docEmb, buildSnapshotStore(cfg, a.store), corpus.Config{
		Model:         snapshotModel(cfg.Embedding),
		Dimensions:    cfg.Embedding.Dimensions,
		FieldPriority: fieldPriority(cfg.Corpus),
		BoostFields:   cfg.Corpus.BoostFields,
		SaveSnapshot:  !cfg.Snapshot.SkipSave,
	}, logger)

	a.search = searchuc.New(a.corpus, queryEmb,
		searchuc.WithBoostWeight(*cfg.Search.BoostWeight),
		searchuc.WithSuggestLimit(cfg.Search.SuggestLimit),
		searchuc.WithLookup(contentClient),
	)

	var pinger healthuc.DBPinger
	if a.store != nil {
		pinger = a.store
	}
	a.health = healthuc.New(a.corpus, pinger, a.embedder)

	return a, nil
}

// buildEmbedder assembles the decorator chain:
// provider -> Cached (optional) -> Instrumented -> Fallback (outermost).
func buildEmbedder(
	cfg config.Config, store db.Store, pool *embeddinguc.Pool, logger *zap.Logger,
) (*embeddinguc.FallbackEmbedder, error) {
	ec := cfg.Embedding
	timeout := time.Duration(ec.TimeoutSec) * time.Second

	var base domain.Embedder
	nativeBatch := true
	switch ec.Provider {
	case config.ProviderLocal:
		base = localEmb.NewEmbedder(ec.Dimensions)
	case config.ProviderHuggingFace:
		hf, err := hfEmb.NewEmbedder(&hfEmb.Config{
			Endpoint: ec.HuggingFace.Endpoint,
			Token:    ec.HuggingFace.Token,
			Model:    ec.Model,
			Timeout:  timeout,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("huggingface embedder: %w", err)
		}
		base = hf
		nativeBatch = false
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     ec.OpenAI.APIKey,
			BaseURL:    ec.OpenAI.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   config.ProviderOpenAI,
			Timeout:    timeout,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}

	embedder := base
	if store != nil && ec.Provider != config.ProviderLocal {
		embedder = embcache.New(base, store, ec.Model, metrics.EmbeddingCacheTotal, logger,
			embcache.WithTTL(cfg.Cache.TTL()))
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger).
		WithChunkSize(ec.BatchSize)

	fb, err := embeddinguc.NewFallbackEmbedder(embedder, embeddinguc.FallbackConfig{
		Dimensions:  ec.Dimensions,
		Provider:    ec.Provider,
		NativeBatch: nativeBatch,
		Pool:        pool,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("fallback embedder: %w", err)
	}
	return fb, nil
}

// snapshotModel names the corpus vectors. A document instruction changes them,
// so it is part of the name.
func snapshotModel(ec config.EmbeddingConfig) string {
	if ec.DocumentInstruction == "" {
		return ec.Model
	}
	return ec.Model + "|" + ec.DocumentInstruction
}

func buildSnapshotStore(cfg config.Config, store db.Store) corpus.SnapshotStore {
	switch cfg.Snapshot.Driver {
	case config.SnapshotFile:
		return snapshot.NewFileStore(cfg.Snapshot.Path)
	case config.SnapshotValkey:
		if store != nil {
			return snapshot.NewKVStore(store, cfg.Snapshot.Key)
		}
	}
	return nil
}

func fieldPriority(c config.CorpusConfig) plant.FieldPriority {
	p := plant.DefaultFieldPriority()
	if len(c.Important) > 0 {
		p.Important = c.Important
	}
	if len(c.Secondary) > 0 {
		p.Secondary = c.Secondary
	}
	if c.LocalNames != "" {
		p.LocalNames = c.LocalNames
	}
	if c.Repeat > 0 {
		p.Repeat = c.Repeat
	}
	return p
}
