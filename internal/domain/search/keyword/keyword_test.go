package keyword

import (
	"testing"

	"github.com/ayurkosh/plantsearch/internal/domain/plant"
	"github.com/ayurkosh/plantsearch/internal/domain/search/text"
)

func TestBoostScore(t *testing.T) {
	neem := plant.Record{
		"common_name":          "Neem",
		"medicinal_uses":       []any{"skin problems", "acne"},
		"medicinal_properties": []any{"antibacterial"},
	}
	tulsi := plant.Record{
		"common_name":    "Tulsi",
		"medicinal_uses": []any{"fever", "cold"},
	}
	bare := plant.Record{"common_name": "Rose"}

	tests := []struct {
		name  string
		query string
		rec   plant.Record
		want  float64
	}{
		{"full overlap", "skin problems", neem, 1},
		{"partial overlap", "skin rash", neem, 0.5},
		{"no overlap", "skin problems", tulsi, 0},
		{"no medicinal fields", "skin problems", bare, 0},
		{"empty query", "", neem, 0},
		{"properties counted", "antibacterial fever", neem, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BoostScore(text.Tokenize(tc.query), tc.rec, DefaultBoostFields)
			if got != tc.want {
				t.Errorf("BoostScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBoostScore_Bounded(t *testing.T) {
	rec := plant.Record{
		"medicinal_uses":       []any{"a", "b", "c"},
		"medicinal_properties": map[string]any{"x": "a b", "y": "d"},
	}
	queries := []string{"a", "a b c d e f", "a a a", "z", "d c b a"}
	for _, q := range queries {
		s := BoostScore(text.Tokenize(q), rec, DefaultBoostFields)
		if s < 0 || s > 1 {
			t.Errorf("BoostScore(%q) = %v out of [0,1]", q, s)
		}
	}
}

func TestRecordTokens_IgnoresOtherFields(t *testing.T) {
	rec := plant.Record{"summary": "skin", "medicinal_uses": "fever"}
	toks := RecordTokens(rec, DefaultBoostFields)
	if _, ok := toks["skin"]; ok {
		t.Error("summary tokens must not contribute")
	}
	if _, ok := toks["fever"]; !ok {
		t.Error("missing medicinal_uses token")
	}
}
