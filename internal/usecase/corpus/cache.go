package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/domain/search/keyword"
	"github.com/ayurkosh/plantsearch/internal/metrics"
	"github.com/ayurkosh/plantsearch/internal/repository/snapshot"
)

const loadKey = "corpus"

// Config tunes corpus construction.
type Config struct {
	Model         string
	Dimensions    int
	FieldPriority plant.FieldPriority
	BoostFields   []string
	// SaveSnapshot writes a snapshot after every successful cold build.
	SaveSnapshot bool
}

// Cache holds the corpus. It is either Empty or Loaded; a Loaded corpus is
// published atomically and never replaced while the process runs.
// Concurrent loads on an Empty cache share a single build.
type Cache struct {
	current atomic.Pointer[Corpus]
	group   singleflight.Group

	content   ContentSource
	embedder  Embedder
	snapshots SnapshotStore
	cfg       Config
	logger    *zap.Logger
}

// NewCache creates an Empty cache. snapshots may be nil.
func NewCache(content ContentSource, embedder Embedder, snapshots SnapshotStore, cfg Config, logger *zap.Logger) *Cache {
	if cfg.FieldPriority.Important == nil && cfg.FieldPriority.Secondary == nil {
		cfg.FieldPriority = plant.DefaultFieldPriority()
	}
	if cfg.BoostFields == nil {
		cfg.BoostFields = keyword.DefaultBoostFields
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		content:   content,
		embedder:  embedder,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger,
	}
}

// IsLoaded reports whether the corpus is in memory.
func (c *Cache) IsLoaded() bool { return c.current.Load() != nil }

// Get returns the loaded corpus without triggering a load.
func (c *Cache) Get() (*Corpus, error) {
	if cur := c.current.Load(); cur != nil {
		return cur, nil
	}
	return nil, fmt.Errorf("corpus not loaded: %w", domain.ErrUnavailable)
}

// Ensure returns the corpus, loading it first if the cache is Empty.
func (c *Cache) Ensure(ctx context.Context) (*Corpus, error) {
	if cur := c.current.Load(); cur != nil {
		return cur, nil
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c.Get()
}

// Load populates an Empty cache: snapshot first, cold build otherwise.
// It is a no-op once Loaded. Failures leave the cache Empty and wrap
// domain.ErrUnavailable; the next call retries.
// The shared build is detached from the caller's cancellation so one aborted
// request cannot fail the others waiting on it.
func (c *Cache) Load(ctx context.Context) error {
	if c.IsLoaded() {
		return nil
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(loadKey, func() (any, error) {
		if cur := c.current.Load(); cur != nil {
			return cur, nil
		}
		corpus, err := c.load(buildCtx)
		if err != nil {
			return nil, err
		}
		c.current.Store(corpus)
		metrics.CorpusSize.Set(float64(corpus.Len()))
		return corpus, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("waiting for corpus: %w: %w", domain.ErrUnavailable, ctx.Err())
	}
}

// BuildAndSave runs a cold build regardless of any existing snapshot, saves
// the result, and publishes it if the cache is still Empty.
func (c *Cache) BuildAndSave(ctx context.Context) (*Corpus, error) {
	if c.snapshots == nil {
		return nil, fmt.Errorf("no snapshot store configured")
	}
	start := time.Now()
	corpus, fallbacks, err := c.build(ctx)
	if err != nil {
		return nil, err
	}
	if fallbacks > 0 {
		return nil, fmt.Errorf("%d of %d embeddings fell back to zero vectors: %w",
			fallbacks, corpus.Len(), domain.ErrUpstream)
	}
	if err := c.snapshots.Save(ctx, c.toSnapshot(corpus)); err != nil {
		metrics.CorpusLoadFailuresTotal.WithLabelValues("snapshot").Inc()
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	metrics.CorpusLoadDuration.WithLabelValues(SourceBuild).Observe(time.Since(start).Seconds())
	c.current.CompareAndSwap(nil, corpus)
	return corpus, nil
}

func (c *Cache) load(ctx context.Context) (*Corpus, error) {
	start := time.Now()

	if corpus, ok := c.restore(ctx); ok {
		metrics.CorpusLoadDuration.WithLabelValues(SourceSnapshot).Observe(time.Since(start).Seconds())
		c.logger.Info("Corpus restored from snapshot",
			zap.Int("plants", corpus.Len()),
			zap.Duration("duration", time.Since(start)),
		)
		return corpus, nil
	}

	corpus, fallbacks, err := c.build(ctx)
	if err != nil {
		return nil, err
	}
	metrics.CorpusLoadDuration.WithLabelValues(SourceBuild).Observe(time.Since(start).Seconds())
	c.logger.Info("Corpus built",
		zap.Int("plants", corpus.Len()),
		zap.Int("fallback_embeddings", fallbacks),
		zap.Duration("duration", time.Since(start)),
	)

	c.maybeSave(ctx, corpus, fallbacks)
	return corpus, nil
}

func (c *Cache) restore(ctx context.Context) (*Corpus, bool) {
	if c.snapshots == nil {
		return nil, false
	}

	s, err := c.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, snapshot.ErrSnapshotNotFound) {
			c.logger.Info("No corpus snapshot, building from content provider")
		} else {
			metrics.CorpusLoadFailuresTotal.WithLabelValues("snapshot").Inc()
			c.logger.Warn("Failed to read corpus snapshot", zap.String("stage", "snapshot"), zap.Error(err))
		}
		return nil, false
	}

	if err := s.Validate(c.cfg.Dimensions); err != nil {
		metrics.CorpusLoadFailuresTotal.WithLabelValues("snapshot").Inc()
		c.logger.Warn("Rejected corpus snapshot", zap.String("stage", "snapshot"), zap.Error(err))
		return nil, false
	}
	if c.cfg.Model != "" && s.Model != "" && s.Model != c.cfg.Model {
		c.logger.Warn("Rejected corpus snapshot",
			zap.String("stage", "snapshot"),
			zap.String("snapshot_model", s.Model),
			zap.String("model", c.cfg.Model),
		)
		return nil, false
	}

	return newCorpus(s.Records, s.Embeddings, c.cfg.BoostFields, SourceSnapshot), true
}

func (c *Cache) build(ctx context.Context) (*Corpus, int, error) {
	if c.content == nil {
		return nil, 0, c.fail("fetch", fmt.Errorf("no content source configured"))
	}

	records, err := c.content.FetchAll(ctx)
	if err != nil {
		return nil, 0, c.fail("fetch", fmt.Errorf("fetch plants: %w", err))
	}
	if len(records) == 0 {
		return nil, 0, c.fail("fetch", fmt.Errorf("content provider returned no plants"))
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = plant.MergeText(r, c.cfg.FieldPriority)
	}

	res, err := c.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, 0, c.fail("embed", fmt.Errorf("embed corpus: %w", err))
	}
	if len(res.Embeddings) != len(records) {
		return nil, 0, c.fail("embed", fmt.Errorf("got %d embeddings for %d plants",
			len(res.Embeddings), len(records)))
	}
	dim := c.cfg.Dimensions
	if dim <= 0 {
		dim = len(res.Embeddings[0])
	}
	for i, e := range res.Embeddings {
		if len(e) != dim {
			return nil, 0, c.fail("embed", fmt.Errorf("embedding %d has %d dimensions, want %d: %w",
				i, len(e), dim, domain.ErrDimensionMismatch))
		}
	}

	return newCorpus(records, res.Embeddings, c.cfg.BoostFields, SourceBuild), res.Fallbacks, nil
}

// maybeSave persists a fresh build. Corpora containing fallback vectors are
// served but not saved, so a restart gets another chance at real embeddings.
func (c *Cache) maybeSave(ctx context.Context, corpus *Corpus, fallbacks int) {
	if c.snapshots == nil || !c.cfg.SaveSnapshot {
		return
	}
	if fallbacks > 0 {
		c.logger.Warn("Skipping snapshot save: corpus contains fallback embeddings",
			zap.String("stage", "snapshot"),
			zap.Int("fallback_embeddings", fallbacks),
		)
		return
	}
	if err := c.snapshots.Save(ctx, c.toSnapshot(corpus)); err != nil {
		metrics.CorpusLoadFailuresTotal.WithLabelValues("snapshot").Inc()
		c.logger.Warn("Failed to save corpus snapshot", zap.String("stage", "snapshot"), zap.Error(err))
	}
}

func (c *Cache) toSnapshot(corpus *Corpus) snapshot.Snapshot {
	return snapshot.Snapshot{
		Version:    snapshot.FormatVersion,
		Model:      c.cfg.Model,
		Dimensions: corpus.Dimensions(),
		CreatedAt:  time.Now().UTC(),
		Records:    corpus.records,
		Embeddings: corpus.embeddings,
	}
}

func (c *Cache) fail(stage string, err error) error {
	metrics.CorpusLoadFailuresTotal.WithLabelValues(stage).Inc()
	c.logger.Error("Corpus load failed", zap.String("stage", stage), zap.Error(err))
	return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
}
