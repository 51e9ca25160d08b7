package search

import (
	"math"
	"sort"

	"github.com/ayurkosh/plantsearch/internal/domain"
	"github.com/ayurkosh/plantsearch/internal/domain/search/keyword"
	"github.com/ayurkosh/plantsearch/internal/domain/search/result"
	"github.com/ayurkosh/plantsearch/internal/usecase/corpus"
)

// DefaultBoostWeight scales the keyword boost added to cosine similarity.
const DefaultBoostWeight = 0.4

type scored struct {
	idx   int
	score float64
}

// rank fuses dense and sparse scores over the whole corpus:
// score(i) = cos(q, e_i) + boostWeight * overlap(q, r_i).
// Ties keep corpus order. Returns the top k as copies of the cached records.
func rank(
	c *corpus.Corpus, queryVec []float32, queryTokens map[string]struct{},
	boostWeight float64, k int,
) ([]result.Result, error) {
	n := c.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return []result.Result{}, nil
	}

	scores := make([]scored, n)
	for i := range n {
		cos, err := domain.CosineSimilarity(queryVec, c.Embedding(i))
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		scores[i] = scored{
			idx:   i,
			score: cos + boostWeight*keyword.Overlap(queryTokens, c.BoostTokens(i)),
		}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	out := make([]result.Result, k)
	for i, s := range scores[:k] {
		out[i] = result.New(c.Record(s.idx), round4(s.score))
	}
	return out, nil
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
