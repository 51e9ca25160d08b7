package plantsearch

import "context"

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in one call, preserving order.
// Optional: if the Embedder passed to WithEmbedder also implements it,
// corpus builds use it instead of one call per record.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
