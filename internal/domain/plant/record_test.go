package plant

import "testing"

func TestFromMap_Nil(t *testing.T) {
	if _, err := FromMap(nil); err == nil {
		t.Fatal("expected error for nil map")
	}
}

func TestID_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"mongo id", Record{"_id": "abc", "slug": "tulsi"}, "abc"},
		{"plain id", Record{"id": "42"}, "42"},
		{"slug", Record{"slug": "aloe-vera", "common_name": "Aloe Vera"}, "aloe-vera"},
		{"common name", Record{"common_name": "Neem"}, "Neem"},
		{"nothing", Record{"summary": "x"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.ID(); got != tc.want {
				t.Errorf("ID() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	r := Record{"common_name": " Tulsi ", "botanical_name": "Ocimum tenuiflorum"}
	if r.CommonName() != "Tulsi" {
		t.Errorf("CommonName() = %q", r.CommonName())
	}
	if r.BotanicalName() != "Ocimum tenuiflorum" {
		t.Errorf("BotanicalName() = %q", r.BotanicalName())
	}
}

func TestClone_IsShallowAndIndependent(t *testing.T) {
	uses := []any{"fever", "cold"}
	orig := Record{"common_name": "Tulsi", "medicinal_uses": uses}

	c := orig.Clone()
	c["common_name"] = "mutated"
	c["extra"] = true

	if orig["common_name"] != "Tulsi" {
		t.Error("mutating clone leaked into original")
	}
	if _, ok := orig["extra"]; ok {
		t.Error("new key leaked into original")
	}
	if got := c["medicinal_uses"].([]any); &got[0] != &uses[0] {
		t.Error("nested values should be shared by a shallow copy")
	}
}

func TestWithScore_DoesNotMutate(t *testing.T) {
	orig := Record{"common_name": "Neem"}
	scored := orig.WithScore(0.8123)

	if _, ok := orig[FieldScore]; ok {
		t.Fatal("WithScore mutated the original record")
	}
	if scored[FieldScore] != 0.8123 {
		t.Errorf("score = %v", scored[FieldScore])
	}
	if scored.CommonName() != "Neem" {
		t.Errorf("CommonName() = %q", scored.CommonName())
	}
}

func TestClone_Nil(t *testing.T) {
	var r Record
	if r.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
	if r.WithScore(1)[FieldScore] != 1.0 {
		t.Error("WithScore on nil record should still carry the score")
	}
}
