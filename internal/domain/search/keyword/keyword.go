// Package keyword computes the sparse lexical boost applied on top of cosine similarity.
package keyword

import (
	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/domain/search/text"
)

// DefaultBoostFields are the high-intent fields matched against query tokens.
var DefaultBoostFields = []string{"medicinal_properties", "medicinal_uses"}

// RecordTokens tokenizes the given fields of a record into one set.
func RecordTokens(r plant.Record, fields []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range fields {
		for tok := range text.Tokenize(r.String(f)) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// BoostScore returns |q ∩ r| / max(|q|, 1) in [0, 1], where r is the token set of
// the record's boost fields. Zero when either side is empty.
func BoostScore(queryTokens map[string]struct{}, r plant.Record, fields []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	return Overlap(queryTokens, RecordTokens(r, fields))
}

// Overlap is BoostScore over precomputed record tokens.
func Overlap(queryTokens, recordTokens map[string]struct{}) float64 {
	if len(queryTokens) == 0 || len(recordTokens) == 0 {
		return 0
	}
	hits := 0
	for tok := range queryTokens {
		if _, ok := recordTokens[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}
