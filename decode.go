package fluxion

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/oarkflow/date"
)

var timeType = reflect.TypeOf(time.Time{})

// DecodeVars copies variable bindings into a Go struct or map pointed to by
// target. Struct fields match by json tag first, then by case-insensitive
// field name. String values assign to time.Time fields via flexible date
// parsing.
func DecodeVars(vars map[string]any, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	return assignValue(reflect.ValueOf(normalizeValue(vars)), rv.Elem())
}

// Decode fills target from the run's final variable bindings.
func (r *Result) Decode(target any) error {
	return DecodeVars(r.Vars, target)
}

// normalizeValue flattens runtime values to plain Go data before reflection
// sees them.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case *Map:
		out := make(map[string]any, t.Len())
		for _, p := range t.Pairs() {
			out[p.Key] = normalizeValue(p.Value)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = normalizeValue(el)
		}
		return out
	case *Closure, *BuiltinRef:
		return stringify(t)
	}
	return v
}

func assignValue(src, dst reflect.Value) error {
	for src.Kind() == reflect.Interface {
		src = src.Elem()
	}
	if !src.IsValid() {
		return nil
	}
	switch dst.Kind() {
	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return assignValue(src, dst.Elem())
	case reflect.Interface:
		dst.Set(src)
		return nil
	case reflect.Struct:
		if dst.Type() == timeType {
			s, ok := src.Interface().(string)
			if !ok {
				return fmt.Errorf("cannot assign %s to time.Time", src.Kind())
			}
			t, err := date.Parse(s)
			if err != nil {
				return fmt.Errorf("parsing time %q: %w", s, err)
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
		m, ok := src.Interface().(map[string]any)
		if !ok {
			return fmt.Errorf("cannot assign %s to struct %s", src.Kind(), dst.Type())
		}
		return assignStruct(m, dst)
	case reflect.Map:
		m, ok := src.Interface().(map[string]any)
		if !ok {
			return fmt.Errorf("cannot assign %s to map %s", src.Kind(), dst.Type())
		}
		out := reflect.MakeMapWithSize(dst.Type(), len(m))
		elemType := dst.Type().Elem()
		for k, v := range m {
			elem := reflect.New(elemType).Elem()
			if err := assignValue(reflect.ValueOf(v), elem); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k), elem)
		}
		dst.Set(out)
		return nil
	case reflect.Slice:
		list, ok := src.Interface().([]any)
		if !ok {
			return fmt.Errorf("cannot assign %s to slice %s", src.Kind(), dst.Type())
		}
		out := reflect.MakeSlice(dst.Type(), len(list), len(list))
		for i, el := range list {
			if err := assignValue(reflect.ValueOf(el), out.Index(i)); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	case reflect.String:
		dst.SetString(stringify(src.Interface()))
		return nil
	case reflect.Bool:
		b, ok := src.Interface().(bool)
		if !ok {
			return fmt.Errorf("cannot assign %s to bool", src.Kind())
		}
		dst.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := asFloat(src.Interface())
		if !ok {
			return fmt.Errorf("cannot assign %s to %s", src.Kind(), dst.Kind())
		}
		dst.SetInt(int64(f))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok := asFloat(src.Interface())
		if !ok || f < 0 {
			return fmt.Errorf("cannot assign %s to %s", src.Kind(), dst.Kind())
		}
		dst.SetUint(uint64(f))
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := asFloat(src.Interface())
		if !ok {
			return fmt.Errorf("cannot assign %s to %s", src.Kind(), dst.Kind())
		}
		dst.SetFloat(f)
		return nil
	}
	return fmt.Errorf("unsupported decode target kind %s", dst.Kind())
}

func assignStruct(src map[string]any, dst reflect.Value) error {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		v, ok := src[name]
		if !ok {
			for k, kv := range src {
				if strings.EqualFold(k, field.Name) {
					v, ok = kv, true
					break
				}
			}
		}
		if !ok || v == nil {
			continue
		}
		if err := assignValue(reflect.ValueOf(v), dst.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}
