package fluxion

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MarshalAST prints statements back as playbook source, one statement per
// line. Combined with Parse it gives a canonical form for comparing trees.
func MarshalAST(stmts []Node) string {
	var sb strings.Builder
	for _, stmt := range stmts {
		sb.WriteString(stmt.ToFlux(""))
		sb.WriteString("\n")
	}
	return sb.String()
}

// MarshalValue renders a runtime value as a playbook literal expression.
func MarshalValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return strconv.Quote(t)
	case []any:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = MarshalValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Map:
		parts := make([]string, 0, t.Len())
		for _, p := range t.Pairs() {
			parts = append(parts, fmt.Sprintf("%s: %s", p.Key, MarshalValue(p.Value)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(t))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, MarshalValue(t[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Closure:
		return stringify(t)
	case *BuiltinRef:
		return stringify(t)
	}
	return fmt.Sprintf("%v", v)
}
