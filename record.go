package agentm

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"
)

const (
	IDKey        = "_id"
	NamespaceKey = "_ns"
)

// Mapper is anything backed by a Record: records themselves, Documents and
// types embedding Document.
type Mapper interface {
	Record() *Record
}

// Record is an ordered string-keyed map. Nested mappings are stored as
// *Record (or a Mapper wrapping one), sequences as []any.
//
// A Record is not safe for concurrent mutation.
type Record struct {
	keys []string
	vals map[string]any
}

// NewRecord builds a record from alternating keys and values.
func NewRecord(keyvals ...any) *Record {
	if len(keyvals)%2 != 0 {
		panic(fmt.Sprintf("NewRecord: odd number of arguments (%d)", len(keyvals)))
	}
	rec := &Record{vals: make(map[string]any, len(keyvals)/2)}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			panic(fmt.Sprintf("NewRecord: key %d is %T, wanted string", i/2, keyvals[i]))
		}
		rec.Set(key, keyvals[i+1])
	}
	return rec
}

// RecordFrom returns the record behind raw. A *Record or Mapper is returned
// as is, without copying; a map[string]any is converted with its keys sorted;
// nil yields an empty record.
func RecordFrom(raw any) (*Record, error) {
	switch v := raw.(type) {
	case nil:
		return NewRecord(), nil
	case *Record:
		if v == nil {
			return NewRecord(), nil
		}
		return v, nil
	case Mapper:
		rec := v.Record()
		if rec == nil {
			return nil, errors.Newf("%T has no record", raw)
		}
		return rec, nil
	case map[string]any:
		return recordFromMap(v), nil
	default:
		return nil, errors.Newf("cannot build a record from %T", raw)
	}
}

func recordFromMap(m map[string]any) *Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rec := &Record{keys: make([]string, 0, len(keys)), vals: make(map[string]any, len(keys))}
	for _, k := range keys {
		rec.Set(k, m[k])
	}
	return rec
}

// Record implements Mapper.
func (rec *Record) Record() *Record { return rec }

func (rec *Record) Len() int {
	if rec == nil {
		return 0
	}
	return len(rec.keys)
}

// Keys returns the keys in insertion order.
func (rec *Record) Keys() []string {
	if rec == nil {
		return nil
	}
	return slices.Clone(rec.keys)
}

func (rec *Record) Get(key string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	v, ok := rec.vals[key]
	return v, ok
}

func (rec *Record) Has(key string) bool {
	_, ok := rec.Get(key)
	return ok
}

// Set stores value under key. A new key goes to the end; an existing key
// keeps its position.
func (rec *Record) Set(key string, value any) {
	if rec.vals == nil {
		rec.vals = make(map[string]any)
	}
	if _, exists := rec.vals[key]; !exists {
		rec.keys = append(rec.keys, key)
	}
	rec.vals[key] = normalize(value)
}

func (rec *Record) Delete(key string) {
	if _, exists := rec.vals[key]; !exists {
		return
	}
	delete(rec.vals, key)
	if i := slices.Index(rec.keys, key); i >= 0 {
		rec.keys = slices.Delete(rec.keys, i, i+1)
	}
}

// All iterates over key/value pairs in order.
func (rec *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if rec == nil {
			return
		}
		for _, k := range rec.keys {
			if !yield(k, rec.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy. Nested records, wrapped documents and lists are
// copied; wrapped documents come back as plain records.
func (rec *Record) Clone() *Record {
	if rec == nil {
		return nil
	}
	c := &Record{keys: slices.Clone(rec.keys), vals: make(map[string]any, len(rec.vals))}
	for k, v := range rec.vals {
		c.vals[k] = cloneValue(v)
	}
	return c
}

func (rec *Record) String() string {
	data, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<record: %v>", err)
	}
	return string(data)
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case *Record:
		return v.Clone()
	case Mapper:
		return v.Record().Clone()
	case []any:
		c := make([]any, len(v))
		for i, item := range v {
			c[i] = cloneValue(item)
		}
		return c
	case []byte:
		return slices.Clone(v)
	default:
		return v
	}
}

func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return recordFromMap(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = normalize(item)
		}
		return items
	case []map[string]any:
		items := make([]any, len(v))
		for i, m := range v {
			items[i] = recordFromMap(m)
		}
		return items
	default:
		return v
	}
}

// plainMap returns a detached copy of rec as a map, with nested records and
// lists of them turned into maps as well.
func (rec *Record) plainMap() map[string]any {
	m := make(map[string]any, len(rec.keys))
	for k, v := range rec.vals {
		m[k] = plainValue(v)
	}
	return m
}

func plainValue(v any) any {
	if rec, ok := asRecord(v); ok {
		return rec.plainMap()
	}
	switch v := v.(type) {
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = plainValue(item)
		}
		return items
	case []byte:
		return slices.Clone(v)
	default:
		return v
	}
}

// asRecord returns the mapping behind a nested value, if it is one.
func asRecord(v any) (*Record, bool) {
	switch v := v.(type) {
	case *Record:
		return v, v != nil
	case Mapper:
		rec := v.Record()
		return rec, rec != nil
	default:
		return nil, false
	}
}
