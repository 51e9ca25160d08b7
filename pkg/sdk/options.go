package plantsearch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	providerLocal       = "local"
	providerHuggingFace = "huggingface"
	providerCustom      = "custom"

	localModel = "local-feature-hash"
)

type clientConfig struct {
	records []Plant

	plantsURL string
	plantURL  string
	apiKey    string

	provider   string
	embedder   Embedder
	hfEndpoint string
	hfToken    string
	model      string
	dimensions int
	poolSize   int

	snapshotPath string
	skipSave     bool

	boostWeight *float64
	maxTopK     int
	eagerLoad   bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRecords serves a fixed set of plants instead of a content provider.
func WithRecords(plants ...Plant) Option {
	return optionFunc(func(c *clientConfig) {
		c.records = append(c.records, plants...)
	})
}

// WithContentProvider fetches the catalogue from plantsURL (a JSON array) and
// resolves single plants by name via plantURL. plantURL and apiKey may be empty.
func WithContentProvider(plantsURL, plantURL, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.plantsURL = plantsURL
		c.plantURL = plantURL
		c.apiKey = apiKey
	})
}

// WithLocalEmbedder uses the in-process feature-hashing embedder.
// This is the default; dim <= 0 selects 384.
func WithLocalEmbedder(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerLocal
		c.dimensions = dim
	})
}

// WithHuggingFace embeds through a hosted feature-extraction endpoint.
func WithHuggingFace(endpoint, token, model string, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerHuggingFace
		c.hfEndpoint = endpoint
		c.hfToken = token
		c.model = model
		c.dimensions = dim
	})
}

// WithEmbedder plugs in a caller-provided embedding model. model names the
// vectors in snapshots; dim is the vector length the model produces.
func WithEmbedder(e Embedder, model string, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerCustom
		c.embedder = e
		c.model = model
		c.dimensions = dim
	})
}

// WithPoolSize bounds concurrent embedding calls for providers without a
// batch endpoint. Default: 8.
func WithPoolSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.poolSize = n
	})
}

// WithSnapshotFile restores the corpus from path when valid, and writes it
// there after a clean build.
func WithSnapshotFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.snapshotPath = path
	})
}

// WithReadOnlySnapshot restores from the snapshot file but never writes it.
func WithReadOnlySnapshot() Option {
	return optionFunc(func(c *clientConfig) {
		c.skipSave = true
	})
}

// WithBoostWeight sets the score added per unit of keyword overlap.
// Default: 0.4.
func WithBoostWeight(w float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.boostWeight = &w
	})
}

// WithMaxTopK caps the number of results a single search may return.
// Default: 1000.
func WithMaxTopK(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTopK = n
	})
}

// WithEagerLoad makes New build or restore the corpus before returning.
func WithEagerLoad() Option {
	return optionFunc(func(c *clientConfig) {
		c.eagerLoad = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
