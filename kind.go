package agentm

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
)

// Coercer turns raw nested data into a T. Coerce must return an existing T
// unchanged.
type Coercer[T any] interface {
	Coerce(raw any) (T, error)
}

// CoerceFunc adapts a constructor to Coercer for types that are not
// documents (timestamps, enums and the like).
type CoerceFunc[T any] func(raw any) (T, error)

func (f CoerceFunc[T]) Coerce(raw any) (T, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}
	return f(raw)
}

// AnyKind is the type-erased view of a Kind used by Registry.
type AnyKind interface {
	Name() string
	Collection() string
	IsAbstract() bool
	NewAny(raw any) (any, error)
}

// Kind describes a document subtype: its Go type, its collection and how to
// wrap a Document into it.
type Kind[T any] struct {
	name       string
	collection string
	abstract   bool
	wrap       func(Document) T
}

type KindOption func(k *kindOptions)

type kindOptions struct {
	abstract bool
}

// Abstract marks a kind as a shared base. Abstract kinds can still build
// values (e.g. as reference targets) but are never registered.
func Abstract() KindOption {
	return func(o *kindOptions) { o.abstract = true }
}

func Define[T any](collection string, wrap func(d Document) T, opts ...KindOption) *Kind[T] {
	if wrap == nil {
		panic(fmt.Sprintf("Define(%q): nil wrap func", collection))
	}
	var o kindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Kind[T]{
		name:       reflect.TypeFor[T]().String(),
		collection: collection,
		abstract:   o.abstract,
		wrap:       wrap,
	}
}

func (k *Kind[T]) Name() string       { return k.name }
func (k *Kind[T]) Collection() string { return k.collection }
func (k *Kind[T]) IsAbstract() bool   { return k.abstract }
func (k *Kind[T]) String() string     { return k.name + "(" + k.collection + ")" }

// New wraps raw data as a T, stamping the namespace tag when the record has
// none.
func (k *Kind[T]) New(raw any) (T, error) {
	d, err := NewDocument(raw, k.collection)
	if err != nil {
		var zero T
		return zero, errors.Wrapf(err, "%s", k.name)
	}
	return k.wrap(d), nil
}

// Make builds a T from alternating keys and values.
func (k *Kind[T]) Make(keyvals ...any) (T, error) {
	var zero T
	if len(keyvals)%2 != 0 {
		return zero, errors.Newf("%s: odd number of key/value arguments (%d)", k.name, len(keyvals))
	}
	rec := NewRecord()
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			return zero, errors.Newf("%s: key %d is %T, wanted string", k.name, i/2, keyvals[i])
		}
		rec.Set(key, keyvals[i+1])
	}
	return k.New(rec)
}

// Coerce returns raw itself when it is already a T, and New(raw) otherwise.
func (k *Kind[T]) Coerce(raw any) (T, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}
	return k.New(raw)
}

func (k *Kind[T]) NewAny(raw any) (any, error) {
	return k.New(raw)
}
