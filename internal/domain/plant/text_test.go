package plant

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Tulsi", "Tulsi"},
		{"empty string", "", ""},
		{"true", true, "true"},
		{"false", false, ""},
		{"float", 4.5, "4.5"},
		{"whole float", float64(3), "3"},
		{"zero float", float64(0), ""},
		{"int", 7, "7"},
		{"json number", json.Number("12"), "12"},
		{"list", []any{"fever", "", "cold", nil}, "fever, cold"},
		{"string list", []string{"skin", "acne"}, "skin, acne"},
		{"nested list", []any{"a", []any{"b", "c"}}, "a, b, c"},
		{"map", map[string]any{"hi": "Tulsi", "en": "Holy Basil"}, "Holy Basil, Tulsi"},
		{"string map", map[string]string{"ta": "Thulasi"}, "Thulasi"},
		{"empty list", []any{}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Stringify(tc.in); got != tc.want {
				t.Errorf("Stringify(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func tulsi() Record {
	return Record{
		"common_name":    "Tulsi",
		"botanical_name": "Ocimum tenuiflorum",
		"summary":        "",
		"medicinal_uses": []any{"fever", "cold"},
		"soil_type":      "Loamy",
		"medical_rating": float64(4),
		"language_local_names": map[string]any{
			"hi": "Tulsi",
			"en": "Holy Basil",
		},
	}
}

func TestMergeText_Layout(t *testing.T) {
	got := MergeText(tulsi(), DefaultFieldPriority())

	want := strings.Join([]string{
		"common name: Tulsi",
		"botanical name: Ocimum tenuiflorum",
		"medicinal uses: fever, cold",
		"common name: Tulsi",
		"botanical name: Ocimum tenuiflorum",
		"medicinal uses: fever, cold",
		"soil type: Loamy",
		"local names: Holy Basil, Tulsi",
	}, ". ")

	if got != want {
		t.Errorf("MergeText mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestMergeText_Deterministic(t *testing.T) {
	r := tulsi()
	p := DefaultFieldPriority()

	first := MergeText(r, p)
	for i := 0; i < 20; i++ {
		if got := MergeText(r, p); got != first {
			t.Fatalf("run %d differs:\n%q\n%q", i, got, first)
		}
	}
}

func TestMergeText_DoesNotMutate(t *testing.T) {
	r := tulsi()
	before := len(r)
	_ = MergeText(r, DefaultFieldPriority())
	if len(r) != before {
		t.Error("MergeText mutated the record")
	}
}

func TestMergeText_SkipsEmpty(t *testing.T) {
	r := Record{
		"common_name":      "Neem",
		"summary":          nil,
		"care_tips":        "   ",
		"medicinal_uses":   []any{},
		"other_names":      []any{"", nil},
		"known_hazards":    false,
		"plant_type":       "Tree",
		"unlisted_field":   "ignored",
		"usage_parts":      []any{"leaves"},
		"native_range":     map[string]any{},
		"flowering_season": "",
	}
	got := MergeText(r, FieldPriority{
		Important: []string{"common_name", "summary", "care_tips", "medicinal_uses"},
		Secondary: []string{"other_names", "known_hazards", "plant_type", "usage_parts", "native_range", "flowering_season"},
		Repeat:    1,
	})

	want := "common name: Neem. plant type: Tree. usage parts: leaves"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Contains(got, "None") || strings.Contains(got, "<nil>") {
		t.Errorf("placeholder leaked into %q", got)
	}
}

func TestMergeText_RepeatFloor(t *testing.T) {
	r := Record{"common_name": "Aloe Vera"}
	p := FieldPriority{Important: []string{"common_name"}, Repeat: 0}
	if got := MergeText(r, p); got != "common name: Aloe Vera" {
		t.Errorf("got %q", got)
	}
	p.Repeat = 3
	if got := MergeText(r, p); strings.Count(got, "Aloe Vera") != 3 {
		t.Errorf("expected 3 repetitions, got %q", got)
	}
}

func TestMergeText_EmptyRecord(t *testing.T) {
	if got := MergeText(Record{}, DefaultFieldPriority()); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	if got := MergeText(nil, DefaultFieldPriority()); got != "" {
		t.Errorf("expected empty text for nil record, got %q", got)
	}
}
