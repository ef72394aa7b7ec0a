package agentm

import (
	"math"
	"reflect"
	"strings"
)

// ReadonlyField exposes a key for reading only.
type ReadonlyField[V any] struct {
	key string
}

// Readonly declares a read-only accessor over key.
func Readonly[V any](key string) ReadonlyField[V] {
	return ReadonlyField[V]{key}
}

func (f ReadonlyField[V]) Key() string { return f.key }

// Get returns the value at the key, or the zero V if it is absent or has an
// incompatible type.
func (f ReadonlyField[V]) Get(m Mapper) V {
	v, _ := f.Lookup(m)
	return v
}

func (f ReadonlyField[V]) Lookup(m Mapper) (V, bool) {
	return lookupAs[V](m.Record(), f.key)
}

// WritableField exposes a key for reading and writing, optionally guarded by
// a validator.
type WritableField[V any] struct {
	key       string
	validator func(V) bool
}

// Writable declares a read-write accessor over key. validator may be nil.
func Writable[V any](key string, validator func(V) bool) WritableField[V] {
	return WritableField[V]{key, validator}
}

func (f WritableField[V]) Key() string { return f.key }

func (f WritableField[V]) Get(m Mapper) V {
	v, _ := f.Lookup(m)
	return v
}

func (f WritableField[V]) Lookup(m Mapper) (V, bool) {
	return lookupAs[V](m.Record(), f.key)
}

// Set stores v unless the validator rejects it, in which case the record is
// left untouched and a *ValidationError is returned.
func (f WritableField[V]) Set(m Mapper, v V) error {
	if f.validator != nil && !f.validator(v) {
		return &ValidationError{Key: f.key, Value: v}
	}
	m.Record().Set(f.key, v)
	return nil
}

// ReferenceField exposes a nested mapping as a T. Raw data found at the key
// is replaced in place by its coerced form on first access.
type ReferenceField[T any] struct {
	key string
	to  Coercer[T]
}

func Reference[T any](key string, to Coercer[T]) ReferenceField[T] {
	if to == nil {
		panic("Reference(" + key + "): nil coercer")
	}
	return ReferenceField[T]{key, to}
}

func (f ReferenceField[T]) Key() string { return f.key }

// Get returns the coerced value, or the zero T when the key is absent or nil.
// Coercion errors are returned as is.
func (f ReferenceField[T]) Get(m Mapper) (T, error) {
	var zero T
	rec := m.Record()
	v, ok := rec.Get(f.key)
	if !ok || v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	t, err := f.to.Coerce(v)
	if err != nil {
		return zero, err
	}
	rec.Set(f.key, t)
	return t, nil
}

func (f ReferenceField[T]) Set(m Mapper, v T) {
	m.Record().Set(f.key, v)
}

// SetRaw coerces raw to T before storing it.
func (f ReferenceField[T]) SetRaw(m Mapper, raw any) error {
	t, err := f.to.Coerce(raw)
	if err != nil {
		return err
	}
	m.Record().Set(f.key, t)
	return nil
}

// ReferenceListField exposes a list of nested mappings, found at a dotted
// path, as []T. Elements are coerced in place on access, so edits made
// through returned elements are visible on the next Get.
type ReferenceListField[T any] struct {
	path []string
	to   Coercer[T]
}

// ReferenceList declares a list accessor. Every segment of the dotted path
// except the last names a nested mapping, created empty when missing.
func ReferenceList[T any](path string, to Coercer[T]) ReferenceListField[T] {
	if to == nil {
		panic("ReferenceList(" + path + "): nil coercer")
	}
	return ReferenceListField[T]{splitPath(path), to}
}

func (f ReferenceListField[T]) Path() string { return strings.Join(f.path, ".") }

func (f ReferenceListField[T]) Get(m Mapper) ([]T, error) {
	_, items, err := f.resolve(m)
	if err != nil {
		return nil, err
	}
	if items == nil {
		return []T{}, nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		t, ok := item.(T)
		if !ok {
			t, err = f.to.Coerce(item)
			if err != nil {
				return nil, err
			}
			items[i] = t
		}
		out[i] = t
	}
	return out, nil
}

// Set replaces the stored list with the given elements.
func (f ReferenceListField[T]) Set(m Mapper, elems []T) error {
	parent, err := m.Record().Walk(f.path[:len(f.path)-1]...)
	if err != nil {
		return err
	}
	items := make([]any, len(elems))
	for i, e := range elems {
		items[i] = e
	}
	parent.Set(f.path[len(f.path)-1], items)
	return nil
}

func (f ReferenceListField[T]) Append(m Mapper, elem T) error {
	parent, items, err := f.resolve(m)
	if err != nil {
		return err
	}
	parent.Set(f.path[len(f.path)-1], append(items, elem))
	return nil
}

// resolve returns the list's parent record and the stored list, which is nil
// when absent. A typed slice stored directly is converted to []any in place.
func (f ReferenceListField[T]) resolve(m Mapper) (*Record, []any, error) {
	last := len(f.path) - 1
	parent, err := m.Record().Walk(f.path[:last]...)
	if err != nil {
		return nil, nil, err
	}
	v, ok := parent.Get(f.path[last])
	if !ok || v == nil {
		return parent, nil, nil
	}
	if items, ok := v.([]any); ok {
		return parent, items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, nil, pathErrf(f.path, last, v, "not a list")
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	parent.Set(f.path[last], items)
	v, _ = parent.Get(f.path[last])
	return parent, v.([]any), nil
}

func lookupAs[V any](rec *Record, key string) (V, bool) {
	v, ok := rec.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return convertValue[V](v)
}

// convertValue returns v as a V. Besides plain type assertion it converts
// between numeric kinds, since decoded integers come back as int64/uint64,
// and turns stored records back into plain maps for map-typed fields.
// Conversions that would overflow or flip the sign fail.
func convertValue[V any](v any) (V, bool) {
	if t, ok := v.(V); ok {
		return t, true
	}
	var zero V
	if v == nil {
		return zero, false
	}
	switch any(zero).(type) {
	case map[string]any:
		if rec, ok := asRecord(v); ok {
			return any(rec.plainMap()).(V), true
		}
		return zero, false
	case []map[string]any:
		items, ok := v.([]any)
		if !ok {
			return zero, false
		}
		maps := make([]map[string]any, len(items))
		for i, item := range items {
			rec, ok := asRecord(item)
			if !ok {
				return zero, false
			}
			maps[i] = rec.plainMap()
		}
		return any(maps).(V), true
	}

	rv := reflect.ValueOf(v)
	tt := reflect.TypeFor[V]()
	src, dst := rv.Kind(), tt.Kind()
	out := reflect.New(tt).Elem()
	switch {
	case isSigned(src) && isSigned(dst):
		if out.OverflowInt(rv.Int()) {
			return zero, false
		}
	case isSigned(src) && isUnsigned(dst):
		if n := rv.Int(); n < 0 || out.OverflowUint(uint64(n)) {
			return zero, false
		}
	case isUnsigned(src) && isSigned(dst):
		if n := rv.Uint(); n > math.MaxInt64 || out.OverflowInt(int64(n)) {
			return zero, false
		}
	case isUnsigned(src) && isUnsigned(dst):
		if out.OverflowUint(rv.Uint()) {
			return zero, false
		}
	case isInteger(src) && isFloat(dst):
	case isFloat(src) && isFloat(dst):
		if out.OverflowFloat(rv.Float()) {
			return zero, false
		}
	default:
		return zero, false
	}
	return rv.Convert(tt).Interface().(V), true
}

func isInteger(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k)
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
