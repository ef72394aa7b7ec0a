package agentm

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
	"gopkg.in/yaml.v3"
)

var (
	_ msgpack.CustomEncoder = (*Record)(nil)
	_ msgpack.CustomDecoder = (*Record)(nil)
	_ json.Marshaler        = (*Record)(nil)
	_ yaml.Unmarshaler      = (*Record)(nil)
)

// EncodeMsgpack writes the record as a msgpack map, keeping key order.
func (rec *Record) EncodeMsgpack(enc *msgpack.Encoder) error {
	if rec == nil {
		return enc.EncodeNil()
	}
	if err := enc.EncodeMapLen(len(rec.keys)); err != nil {
		return err
	}
	for _, k := range rec.keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.Encode(rec.vals[k]); err != nil {
			return errors.Wrapf(err, "key %q", k)
		}
	}
	return nil
}

// DecodeMsgpack reads a msgpack map into the record, replacing its contents.
// Nested maps become *Record and arrays become []any; integers decode as
// int64 or uint64 and floats as float64.
func (rec *Record) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	rec.keys = nil
	rec.vals = make(map[string]any, max(n, 0))
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			return errors.Wrap(err, "record key")
		}
		v, err := decodeMsgpackValue(dec)
		if err != nil {
			return errors.Wrapf(err, "key %q", k)
		}
		rec.Set(k, v)
	}
	return nil
}

func decodeMsgpackValue(dec *msgpack.Decoder) (any, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		sub := &Record{}
		if err := sub.DecodeMsgpack(dec); err != nil {
			return nil, err
		}
		return sub, nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, max(n, 0))
		for range n {
			item, err := decodeMsgpackValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return dec.DecodeInterfaceLoose()
	}
}

// MarshalJSON writes the record as a JSON object, keeping key order.
func (rec *Record) MarshalJSON() ([]byte, error) {
	if rec == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range rec.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(rec.vals[k])
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML loads a YAML (or JSON) mapping into the record, keeping the
// order in which keys appear in the source.
func (rec *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	v, err := yamlValue(node)
	if err != nil {
		return err
	}
	sub, ok := v.(*Record)
	if !ok {
		return errors.Newf("line %d: expected a mapping, got %T", node.Line, v)
	}
	*rec = *sub
	return nil
}

func yamlValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.MappingNode:
		rec := &Record{vals: make(map[string]any, len(node.Content)/2)}
		for i := 0; i+1 < len(node.Content); i += 2 {
			kn, vn := node.Content[i], node.Content[i+1]
			if kn.Kind != yaml.ScalarNode {
				return nil, errors.Newf("line %d: mapping keys must be scalars", kn.Line)
			}
			v, err := yamlValue(vn)
			if err != nil {
				return nil, err
			}
			rec.Set(kn.Value, v)
		}
		return rec, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, n := range node.Content {
			v, err := yamlValue(n)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d", node.Line)
		}
		if i, ok := v.(int); ok {
			return int64(i), nil
		}
		return v, nil
	default:
		return nil, errors.Newf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}
