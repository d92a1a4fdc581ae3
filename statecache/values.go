package statecache

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"sort"
)

// Values maps field names to values. Every Values returned by a Cache is a
// copy owned by the receiver.
type Values map[string]any

// Clone deep-copies v.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = cloneValue(val)
	}
	return out
}

// Keys returns the field names in v, sorted.
func (v Values) Keys() []string {
	keys := slices.Collect(maps.Keys(v))
	sort.Strings(keys)
	return keys
}

// cloneValue deep-copies v by a JSON round trip into its own type. Values
// held by a Cache are JSON-representable; anything that fails the round
// trip is returned as is.
func cloneValue(v any) any {
	switch v.(type) {
	case nil, string, bool, int64, float64:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return v
		}
	case reflect.Struct, reflect.Array, reflect.Interface:
	default:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	ptr := reflect.New(rv.Type())
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return v
	}
	return ptr.Elem().Interface()
}
