package domain

// KeyPrefix namespaces every key this service writes to Valkey/Redis.
const KeyPrefix = "plantsearch:"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
}

// DefaultVectorConfig returns the default configuration tuned for all-MiniLM-L6-v2.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "sentence-transformers/all-MiniLM-L6-v2",
		Dimensions:     384,
		DistanceMetric: "cosine",
	}
}
