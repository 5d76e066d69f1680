package fluxion

import (
	ojson "github.com/oarkflow/json"
)

// MarshalJSON renders a runtime value as JSON. Map entries keep insertion
// order, function values render as opaque tags, and names with a double
// underscore prefix are dropped from maps.
func MarshalJSON(v any) ([]byte, error) {
	return ojson.Marshal(cleanForJSON(v))
}

// UnmarshalJSON parses JSON into a Go value.
func UnmarshalJSON(data []byte, v any) error {
	return ojson.Unmarshal(data, v)
}

func cleanForJSON(v any) any {
	switch t := v.(type) {
	case *Map:
		out := NewMap()
		for _, p := range t.Pairs() {
			if len(p.Key) >= 2 && p.Key[:2] == "__" {
				continue
			}
			out.Set(p.Key, cleanForJSON(p.Value))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if len(k) >= 2 && k[:2] == "__" {
				continue
			}
			out[k] = cleanForJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = cleanForJSON(el)
		}
		return out
	case *Closure:
		return "<func " + t.Name + ">"
	case *BuiltinRef:
		return "<builtin " + t.Name + ">"
	}
	return v
}
