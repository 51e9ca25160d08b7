package health

import "context"

// CorpusState reports whether the corpus is in memory.
type CorpusState interface {
	IsLoaded() bool
}

// DBPinger checks cache database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
