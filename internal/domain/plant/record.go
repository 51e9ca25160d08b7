package plant

import (
	"fmt"
	"strings"
)

// Well-known record fields.
const (
	FieldID            = "_id"
	FieldSlug          = "slug"
	FieldCommonName    = "common_name"
	FieldBotanicalName = "botanical_name"
	FieldScore         = "score"
)

// Record is a plant as served by the content provider: field name to a scalar,
// a sequence, or a mapping (e.g. language to local name).
// Records held by the corpus are never mutated; use Clone before writing.
type Record map[string]any

// FromMap validates and wraps a decoded JSON object.
func FromMap(m map[string]any) (Record, error) {
	if m == nil {
		return nil, fmt.Errorf("plant record is null")
	}
	return Record(m), nil
}

// ID returns the upstream identifier, falling back to the slug, then the common name.
func (r Record) ID() string {
	for _, f := range []string{FieldID, "id", FieldSlug, FieldCommonName} {
		if s := r.String(f); s != "" {
			return s
		}
	}
	return ""
}

// CommonName returns the common_name field.
func (r Record) CommonName() string { return r.String(FieldCommonName) }

// BotanicalName returns the botanical_name field.
func (r Record) BotanicalName() string { return r.String(FieldBotanicalName) }

// String renders a field with Stringify. Absent fields yield "".
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	return strings.TrimSpace(Stringify(v))
}

// Clone returns a shallow copy: top-level keys are copied, nested values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r)+1)
	for k, v := range r {
		c[k] = v
	}
	return c
}

// WithScore returns a shallow copy annotated with the given score.
func (r Record) WithScore(score float64) Record {
	c := r.Clone()
	if c == nil {
		c = Record{}
	}
	c[FieldScore] = score
	return c
}
