package plant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const listSeparator = ", "

// Stringify renders a field value as text. It is the single place where record
// values become strings:
//   - scalars render as themselves; nil, "", false and 0 render as ""
//   - sequences render their non-empty items joined with ", "
//   - mappings render their non-empty values joined with ", ", ordered by key
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return ""
	case float64:
		return formatFloat(val, 64)
	case float32:
		return formatFloat(float64(val), 32)
	case int:
		return formatInt(int64(val))
	case int64:
		return formatInt(val)
	case int32:
		return formatInt(int64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil && f == 0 {
			return ""
		}
		return val.String()
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = appendNonEmpty(parts, Stringify(item))
		}
		return strings.Join(parts, listSeparator)
	case []string:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = appendNonEmpty(parts, item)
		}
		return strings.Join(parts, listSeparator)
	case map[string]any:
		return joinMapValues(val)
	case Record:
		return joinMapValues(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return joinMapValues(m)
	default:
		return fmt.Sprint(val)
	}
}

func joinMapValues(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = appendNonEmpty(parts, Stringify(m[k]))
	}
	return strings.Join(parts, listSeparator)
}

func appendNonEmpty(parts []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return parts
	}
	return append(parts, s)
}

func formatFloat(f float64, bits int) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func formatInt(i int64) string {
	if i == 0 {
		return ""
	}
	return strconv.FormatInt(i, 10)
}
