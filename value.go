package fluxion

import (
	"bytes"
	"strconv"
)

// MapPair is one key/value entry of an ordered map.
type MapPair struct {
	Key   string
	Value any
}

// Map is the runtime mapping value. Insertion order is preserved via the
// pairs slice; the index is built lazily for lookups.
type Map struct {
	pairs []MapPair
	index map[string]int
}

func NewMap() *Map {
	return &Map{}
}

func MapFromPairs(pairs ...MapPair) *Map {
	m := NewMap()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Set updates an existing entry in place or appends a new one.
func (m *Map) Set(key string, value any) {
	if i, ok := m.lookup(key); ok {
		m.pairs[i].Value = value
		return
	}
	m.pairs = append(m.pairs, MapPair{Key: key, Value: value})
	if m.index != nil {
		m.index[key] = len(m.pairs) - 1
	}
}

func (m *Map) Get(key string) (any, bool) {
	if i, ok := m.lookup(key); ok {
		return m.pairs[i].Value, true
	}
	return nil, false
}

func (m *Map) lookup(key string) (int, bool) {
	if m.index == nil {
		m.index = make(map[string]int, len(m.pairs))
		for i, p := range m.pairs {
			m.index[p.Key] = i
		}
	}
	i, ok := m.index[key]
	return i, ok
}

func (m *Map) Len() int {
	return len(m.pairs)
}

func (m *Map) Keys() []string {
	keys := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Values returns the entry values in insertion order.
func (m *Map) Values() []any {
	vals := make([]any, len(m.pairs))
	for i, p := range m.pairs {
		vals[i] = p.Value
	}
	return vals
}

func (m *Map) Pairs() []MapPair {
	return m.pairs
}

// ToGoMap flattens the ordered map (and any nested ordered maps) into plain
// Go maps, losing order. Used at decoding boundaries.
func (m *Map) ToGoMap() map[string]any {
	out := make(map[string]any, len(m.pairs))
	for _, p := range m.pairs {
		if nested, ok := p.Value.(*Map); ok {
			out[p.Key] = nested.ToGoMap()
			continue
		}
		out[p.Key] = p.Value
	}
	return out
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(p.Key))
		buf.WriteByte(':')
		vb, err := MarshalJSON(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Closure is a user-defined function value: parameter names, a body, and the
// scope captured at definition time.
type Closure struct {
	Name   string
	Params []string
	Body   *BlockNode
	Env    *Environment
}

// BuiltinRef is an opaque first-class handle to a registry builtin, produced
// when a builtin name is referenced in expression position.
type BuiltinRef struct {
	Name string
}

// truthy implements the fixed truthiness rule: null, false, zero numbers,
// empty strings, and empty collections are falsy; everything else is truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case *Map:
		return t.Len() > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// stringify renders a value for interpolation and join: ints without a
// decimal point, floats in plain decimal, booleans as true/false, null as
// the empty string, collections as JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	case *Closure:
		return "<func " + t.Name + ">"
	case *BuiltinRef:
		return "<builtin " + t.Name + ">"
	case []any, *Map, map[string]any:
		b, err := MarshalJSON(t)
		if err != nil {
			return "<unprintable>"
		}
		return string(b)
	}
	return "<unprintable>"
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func isInt(v any) bool {
	_, ok := v.(int)
	return ok
}

// equalValues is the structural equality behind == and !=. Numbers compare
// numerically across int and float; lists and maps compare element-wise.
func equalValues(l, r any) bool {
	if lf, ok := asFloat(l); ok {
		rf, ok := asFloat(r)
		return ok && lf == rf
	}
	switch lt := l.(type) {
	case nil:
		return r == nil
	case bool:
		rb, ok := r.(bool)
		return ok && lt == rb
	case string:
		rs, ok := r.(string)
		return ok && lt == rs
	case []any:
		rl, ok := r.([]any)
		if !ok || len(lt) != len(rl) {
			return false
		}
		for i := range lt {
			if !equalValues(lt[i], rl[i]) {
				return false
			}
		}
		return true
	case *Map:
		rm, ok := r.(*Map)
		if !ok || lt.Len() != rm.Len() {
			return false
		}
		for _, p := range lt.pairs {
			rv, ok := rm.Get(p.Key)
			if !ok || !equalValues(p.Value, rv) {
				return false
			}
		}
		return true
	case map[string]any:
		rm, ok := r.(map[string]any)
		if !ok || len(lt) != len(rm) {
			return false
		}
		for k, lv := range lt {
			rv, ok := rm[k]
			if !ok || !equalValues(lv, rv) {
				return false
			}
		}
		return true
	case *Closure:
		rc, ok := r.(*Closure)
		return ok && lt == rc
	case *BuiltinRef:
		rb, ok := r.(*BuiltinRef)
		return ok && lt.Name == rb.Name
	}
	return false
}
