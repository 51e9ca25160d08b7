package plant

import (
	"fmt"
	"strings"
)

const partSeparator = ". "

// FieldPriority decides which fields feed the corpus text and how strongly.
type FieldPriority struct {
	// Important fields are emitted Repeat times to pull the embedding toward them.
	Important []string
	// Secondary fields are emitted once, after all important passes.
	Secondary []string
	// LocalNames is the mapping field (language -> name) appended last.
	LocalNames string
	// Repeat is the number of important-field passes. Values below 1 count as 1.
	Repeat int
}

// DefaultFieldPriority returns the field layout of the plant content API.
func DefaultFieldPriority() FieldPriority {
	return FieldPriority{
		Important: []string{
			"common_name", "botanical_name", "summary",
			"medicinal_description", "medicinal_uses", "medicinal_properties",
			"cultivation_details", "care_tips",
		},
		Secondary: []string{
			"physical_characteristics", "soil_type", "water_needs",
			"sun_exposure", "flowering_season", "usage_parts", "other_names",
			"search_tags", "plant_type", "habit", "leaf_type",
			"temperature_range", "native_range", "known_hazards",
			"propagation_methods", "traditional_systems", "other_uses",
		},
		LocalNames: "language_local_names",
		Repeat:     2,
	}
}

// MergeText builds the text that represents a record in embedding space.
// Output is deterministic for a given record and priority; absent or empty
// fields are skipped.
func MergeText(r Record, p FieldPriority) string {
	repeat := p.Repeat
	if repeat < 1 {
		repeat = 1
	}

	parts := make([]string, 0, len(p.Important)*repeat+len(p.Secondary)+1)
	for range repeat {
		parts = appendFields(parts, r, p.Important)
	}
	parts = appendFields(parts, r, p.Secondary)

	if p.LocalNames != "" {
		if names, ok := r[p.LocalNames].(map[string]any); ok {
			if s := joinMapValues(names); s != "" {
				parts = append(parts, "local names: "+s)
			}
		}
	}

	return strings.Join(parts, partSeparator)
}

func appendFields(parts []string, r Record, fields []string) []string {
	for _, f := range fields {
		v := r.String(f)
		if v == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ReplaceAll(f, "_", " "), v))
	}
	return parts
}
