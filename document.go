package agentm

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Document is a Record with a collection name. Application types embed it:
//
//	type Person struct{ agentm.Document }
//
//	var People = agentm.Define("people", func(d agentm.Document) *Person {
//		return &Person{d}
//	})
//
// Copies of a Document share the underlying record.
type Document struct {
	rec        *Record
	collection string
}

var idField = Readonly[any](IDKey)

// NewDocument wraps raw (see RecordFrom) without copying it. If collection is
// non-empty and the record has no namespace tag yet, the tag is set to
// collection. Otherwise an existing tag becomes the document's collection.
func NewDocument(raw any, collection string) (Document, error) {
	rec, err := RecordFrom(raw)
	if err != nil {
		return Document{}, err
	}
	d := Document{rec: rec, collection: collection}
	ns, tagged := namespaceOf(rec)
	if collection != "" && !tagged {
		rec.Set(NamespaceKey, collection)
	} else if tagged {
		d.collection = ns
	}
	return d, nil
}

func namespaceOf(rec *Record) (string, bool) {
	v, ok := rec.Get(NamespaceKey)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return s, s != ""
}

func (d Document) Record() *Record { return d.rec }

// ID returns the identifier key's current value. Identifiers are assigned by
// the store; there is no setter.
func (d Document) ID() any { return idField.Get(d) }

func (d Document) Collection() string { return d.collection }

func (d Document) Get(key string) (any, bool) { return d.rec.Get(key) }

func (d Document) IsZero() bool { return d.rec == nil }

func (d Document) EncodeMsgpack(enc *msgpack.Encoder) error {
	return d.rec.EncodeMsgpack(enc)
}

func (d Document) MarshalJSON() ([]byte, error) {
	return d.rec.MarshalJSON()
}

func (d Document) String() string {
	return d.collection + d.rec.String()
}
