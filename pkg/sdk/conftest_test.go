package plantsearch

import (
	"context"
	"strings"
	"sync/atomic"
)

func herbs() []Plant {
	return []Plant{
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

var axes = []string{"skin", "fever", "burn"}

// keywordEmbedder counts axis words: one dimension per entry of axes.
type keywordEmbedder struct {
	err   error
	calls atomic.Int32
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls.Add(1)
	if e.err != nil {
		return EmbeddingResult{}, e.err
	}
	return EmbeddingResult{Embedding: axisVector(text)}, nil
}

// batchKeywordEmbedder also serves whole batches in one call.
type batchKeywordEmbedder struct {
	keywordEmbedder
	batches atomic.Int32
}

func (e *batchKeywordEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	e.batches.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = axisVector(t)
	}
	return out, nil
}

func axisVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(axes))
	for i, a := range axes {
		v[i] = float32(strings.Count(lower, a))
	}
	return v
}

func names(hits []Result) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Plant.CommonName()
	}
	return out
}
