package statecache

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/kbukum/statekit/errors"
)

// Kind is the value type of a field.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	// KindTime holds unix milliseconds as int64. time.Time is accepted on Set.
	KindTime
	// KindJSON holds a value of Field.Type, stored as its JSON document.
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindTime:
		return "time"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	stringType = reflect.TypeFor[string]()
	boolType   = reflect.TypeFor[bool]()
	int64Type  = reflect.TypeFor[int64]()
	timeType   = reflect.TypeFor[time.Time]()
)

// Field declares one named slot.
type Field struct {
	Name string
	Kind Kind
	// Type is the Go type of a KindJSON field.
	Type reflect.Type
	// Default is the value after construction and after Clear. nil means absent.
	Default any
	// Preserve keeps the field across Clear(ctx, true).
	Preserve bool
}

func StringField(name string) Field { return Field{Name: name, Kind: KindString} }

func BoolField(name string, def bool) Field {
	return Field{Name: name, Kind: KindBool, Default: def}
}

func IntField(name string) Field { return Field{Name: name, Kind: KindInt} }

func TimeField(name string) Field { return Field{Name: name, Kind: KindTime} }

// JSONField declares a field holding a T.
func JSONField[T any](name string) Field {
	return Field{Name: name, Kind: KindJSON, Type: reflect.TypeFor[T]()}
}

// Preserved returns a copy of f that survives Clear(ctx, true).
func (f Field) Preserved() Field {
	f.Preserve = true
	return f
}

// WithDefault returns a copy of f with a default value.
func (f Field) WithDefault(v any) Field {
	f.Default = v
	return f
}

func (f Field) goType() reflect.Type {
	switch f.Kind {
	case KindString:
		return stringType
	case KindBool:
		return boolType
	case KindJSON:
		return f.Type
	default:
		return int64Type
	}
}

// Schema is the closed set of fields a Cache accepts.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema builds a schema. Names must be unique and non-empty, and
// defaults must match their field's kind.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("statecache: field name is empty")
		}
		if f.Name == ClearedKey {
			return nil, fmt.Errorf("statecache: field name %q is reserved", f.Name)
		}
		if _, dup := s.fields[f.Name]; dup {
			return nil, fmt.Errorf("statecache: duplicate field %q", f.Name)
		}
		if f.Kind == KindJSON && f.Type == nil {
			return nil, fmt.Errorf("statecache: json field %q has no type", f.Name)
		}
		if f.Default != nil {
			def, err := f.normalize(f.Default)
			if err != nil {
				return nil, fmt.Errorf("statecache: default for %q: %w", f.Name, err)
			}
			f.Default = def
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Names returns every field name in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Preserved returns the names of fields kept by Clear(ctx, true).
func (s *Schema) Preserved() []string {
	var out []string
	for _, name := range s.order {
		if s.fields[name].Preserve {
			out = append(out, name)
		}
	}
	return out
}

// Defaults returns a fresh Values holding every non-nil default.
func (s *Schema) Defaults() Values {
	out := make(Values, len(s.order))
	for _, name := range s.order {
		if def := s.fields[name].Default; def != nil {
			out[name] = cloneValue(def)
		}
	}
	return out
}

// Normalize checks updates against the schema and converts each value to
// its field's Go type. It does not modify updates.
func (s *Schema) Normalize(updates Values) (Values, error) {
	out := make(Values, len(updates))
	for name, v := range updates {
		f, ok := s.fields[name]
		if !ok {
			return nil, errors.UnknownField(name)
		}
		nv, err := f.normalize(v)
		if err != nil {
			return nil, errors.InvalidInput(name, err.Error())
		}
		out[name] = nv
	}
	return out, nil
}

// Encode renders a normalized value for the store.
func (s *Schema) Encode(name string, v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode parses a stored value. A JSON null decodes to nil.
func (s *Schema) Decode(name string, data []byte) (any, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, errors.UnknownField(name)
	}
	if string(data) == "null" {
		return nil, nil
	}
	ptr := reflect.New(f.goType())
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", name, f.Kind, err)
	}
	return ptr.Elem().Interface(), nil
}

func (f Field) normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	want := f.goType()
	rv := reflect.ValueOf(v)
	if rv.Type() == want {
		// the caller keeps its own slices and pointers
		return cloneValue(v), nil
	}

	switch f.Kind {
	case KindInt, KindTime:
		if rv.Type() == timeType {
			if f.Kind != KindTime {
				break
			}
			return v.(time.Time).UnixMilli(), nil
		}
		if n, ok := toInt64(rv); ok {
			return n, nil
		}
	}

	// Fall back to a JSON round trip so decoded request bodies
	// (map[string]any, []any, float64) convert to the declared type.
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("expected %s", f.Kind)
	}
	ptr := reflect.New(want)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("expected %s, got %T", f.Kind, v)
	}
	return ptr.Elem().Interface(), nil
}

func toInt64(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}
