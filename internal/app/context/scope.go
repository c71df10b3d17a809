package context

import (
	"database/sql/driver"
	"fmt"
	"maps"
	"reflect"
)

// Well-known keys published by the HTTP boundary.
const (
	// KeyUser holds the identity value of the acting user, or nil.
	KeyUser = "user"

	// KeyURL holds the request path.
	KeyURL = "url"
)

// Entries is a set of history context values keyed by name.
// Values are serializable scalars: nil, string, bool, int64, uint64 or float64.
type Entries map[string]any

// Clone returns a shallow copy of e. A nil receiver yields an empty map.
func (e Entries) Clone() Entries {
	out := make(Entries, len(e))
	maps.Copy(out, e)
	return out
}

// normalize returns a copy of e with every value converted to its scalar form.
func (e Entries) normalize() (Entries, error) {
	out := make(Entries, len(e))
	for k, v := range e {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q has type %T", ErrUnsupportedValue, k, v)
		}
		out[k] = nv
	}
	return out, nil
}

// maxValuerDepth bounds driver.Valuer unwrapping.
const maxValuerDepth = 4

// normalizeValue converts v into one of the supported scalar types.
func normalizeValue(v any) (any, error) {
	return normalizeDepth(v, 0)
}

func normalizeDepth(v any, depth int) (any, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int64, uint64, float64:
		return tv, nil
	case int:
		return int64(tv), nil
	case int8:
		return int64(tv), nil
	case int16:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case uint:
		return uint64(tv), nil
	case uint8:
		return uint64(tv), nil
	case uint16:
		return uint64(tv), nil
	case uint32:
		return uint64(tv), nil
	case float32:
		return float64(tv), nil
	case []byte:
		return string(tv), nil
	}

	if isNilPointer(v) {
		return nil, nil
	}

	if valuer, ok := v.(driver.Valuer); ok && depth < maxValuerDepth {
		dv, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		return normalizeDepth(dv, depth+1)
	}

	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}

	// Named scalar types (type UserID int64 and friends).
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return nil, ErrUnsupportedValue
	}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
