package fluxion

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oarkflow/date"
)

// commandArgs flattens the two calling conventions into one ordered option
// map: a desugared command arrives as a single map positional argument,
// a direct call may use named arguments instead.
func commandArgs(args []any, kwargs map[string]any) (*Map, error) {
	out := NewMap()
	for _, a := range args {
		switch m := a.(type) {
		case *Map:
			for _, p := range m.Pairs() {
				out.Set(p.Key, p.Value)
			}
		case map[string]any:
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out.Set(k, m[k])
			}
		default:
			return nil, fmt.Errorf("expected named options, got %s", typeName(a))
		}
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Set(k, kwargs[k])
	}
	return out, nil
}

func wantArgs(name string, args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d arguments, got %d", name, n, len(args))
	}
	return nil
}

func wantString(name string, v any, idx int) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %s", name, idx+1, typeName(v))
	}
	return s, nil
}

func optString(opts *Map, key, fallback string) (string, error) {
	v, ok := opts.Get(key)
	if !ok || v == nil {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q must be a string, got %s", key, typeName(v))
	}
	return s, nil
}

func optNumber(opts *Map, key string, fallback float64) (float64, error) {
	v, ok := opts.Get(key)
	if !ok || v == nil {
		return fallback, nil
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, fmt.Errorf("option %q must be a number, got %s", key, typeName(v))
	}
	return f, nil
}

// echoLine renders an echo invocation: positional values are stringified,
// named options render as key=value in declaration order.
func echoLine(args []any, kwargs map[string]any) (string, error) {
	var parts []string
	for _, a := range args {
		if m, ok := a.(*Map); ok {
			for _, p := range m.Pairs() {
				parts = append(parts, p.Key+"="+stringify(p.Value))
			}
			continue
		}
		parts = append(parts, stringify(a))
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+stringify(kwargs[k]))
	}
	return strings.Join(parts, " "), nil
}

func registerCoreBuiltins(r *Registry) {
	r.Override("echo", func(args []any, kwargs map[string]any) (any, error) {
		line, err := echoLine(args, kwargs)
		if err != nil {
			return nil, err
		}
		fmt.Println(line)
		return nil, nil
	})
	r.Override("len", func(args []any, kwargs map[string]any) (any, error) {
		if err := wantArgs("len", args, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case string:
			return utf8.RuneCountInString(v), nil
		case []any:
			return len(v), nil
		case *Map:
			return v.Len(), nil
		case map[string]any:
			return len(v), nil
		}
		return nil, fmt.Errorf("len: unsupported type %s", typeName(args[0]))
	})
	r.Override("join", func(args []any, kwargs map[string]any) (any, error) {
		// join stringifies every positional argument and concatenates them.
		// It is the escape hatch for mixing strings and numbers, since +
		// refuses to concatenate across types.
		sep := ""
		if v, ok := kwargs["sep"]; ok {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("join: sep must be a string, got %s", typeName(v))
			}
			sep = s
		}
		parts := make([]string, len(args))
		for i, el := range args {
			parts[i] = stringify(el)
		}
		return strings.Join(parts, sep), nil
	})
	r.Override("jsonify", func(args []any, kwargs map[string]any) (any, error) {
		if err := wantArgs("jsonify", args, 1); err != nil {
			return nil, err
		}
		b, err := MarshalJSON(args[0])
		if err != nil {
			return nil, fmt.Errorf("jsonify: %w", err)
		}
		return string(b), nil
	})
	r.Override("sleep", func(args []any, kwargs map[string]any) (any, error) {
		var seconds float64
		switch {
		case len(args) == 1:
			f, ok := asFloat(args[0])
			if !ok {
				return nil, fmt.Errorf("sleep: argument must be a number, got %s", typeName(args[0]))
			}
			seconds = f
		case len(args) == 0:
			if v, ok := kwargs["seconds"]; ok {
				f, ok := asFloat(v)
				if !ok {
					return nil, fmt.Errorf("sleep: seconds must be a number, got %s", typeName(v))
				}
				seconds = f
			} else if v, ok := kwargs["ms"]; ok {
				f, ok := asFloat(v)
				if !ok {
					return nil, fmt.Errorf("sleep: ms must be a number, got %s", typeName(v))
				}
				seconds = f / 1000
			} else {
				return nil, fmt.Errorf("sleep expects a duration")
			}
		default:
			return nil, fmt.Errorf("sleep expects 1 argument, got %d", len(args))
		}
		if seconds < 0 {
			return nil, fmt.Errorf("sleep: duration must not be negative")
		}
		time.Sleep(time.Duration(seconds * float64(time.Second)))
		return nil, nil
	})
}

func registerStringBuiltins(r *Registry) {
	unary := func(name string, fn func(string) any) {
		r.Override(name, func(args []any, kwargs map[string]any) (any, error) {
			if err := wantArgs(name, args, 1); err != nil {
				return nil, err
			}
			s, err := wantString(name, args[0], 0)
			if err != nil {
				return nil, err
			}
			return fn(s), nil
		})
	}
	binary := func(name string, fn func(a, b string) any) {
		r.Override(name, func(args []any, kwargs map[string]any) (any, error) {
			if err := wantArgs(name, args, 2); err != nil {
				return nil, err
			}
			a, err := wantString(name, args[0], 0)
			if err != nil {
				return nil, err
			}
			b, err := wantString(name, args[1], 1)
			if err != nil {
				return nil, err
			}
			return fn(a, b), nil
		})
	}
	unary("upper", func(s string) any { return strings.ToUpper(s) })
	unary("lower", func(s string) any { return strings.ToLower(s) })
	unary("trim", func(s string) any { return strings.TrimSpace(s) })
	binary("contains", func(a, b string) any { return strings.Contains(a, b) })
	binary("starts_with", func(a, b string) any { return strings.HasPrefix(a, b) })
	binary("ends_with", func(a, b string) any { return strings.HasSuffix(a, b) })
	binary("split", func(a, b string) any {
		segs := strings.Split(a, b)
		out := make([]any, len(segs))
		for i, s := range segs {
			out[i] = s
		}
		return out
	})
	r.Override("replace", func(args []any, kwargs map[string]any) (any, error) {
		if err := wantArgs("replace", args, 3); err != nil {
			return nil, err
		}
		s, err := wantString("replace", args[0], 0)
		if err != nil {
			return nil, err
		}
		old, err := wantString("replace", args[1], 1)
		if err != nil {
			return nil, err
		}
		repl, err := wantString("replace", args[2], 2)
		if err != nil {
			return nil, err
		}
		return strings.ReplaceAll(s, old, repl), nil
	})
}

func registerTimeBuiltins(r *Registry) {
	r.Override("now", func(args []any, kwargs map[string]any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("now expects no arguments")
		}
		return time.Now().UTC().Format(time.RFC3339), nil
	})
	r.Override("date_parse", func(args []any, kwargs map[string]any) (any, error) {
		if err := wantArgs("date_parse", args, 1); err != nil {
			return nil, err
		}
		s, err := wantString("date_parse", args[0], 0)
		if err != nil {
			return nil, err
		}
		t, err := date.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("date_parse: cannot parse %q: %w", s, err)
		}
		out := NewMap()
		out.Set("iso", t.UTC().Format(time.RFC3339))
		out.Set("unix", int(t.Unix()))
		out.Set("year", t.Year())
		out.Set("month", int(t.Month()))
		out.Set("day", t.Day())
		return out, nil
	})
}
