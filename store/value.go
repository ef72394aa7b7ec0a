package store

import (
	"bytes"
	"encoding/binary"

	"github.com/jasonbaker/agentm"
	"github.com/vmihailenco/msgpack/v5"
)

// Value layout: flags (uvarint), modification count (uvarint), then the
// msgpack encoding of the record.

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3

	vfVerMask       = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1          = vfVerBit0
	vfSupportedMask = vfVer1
	vfDefault       = vfVer1

	minValueSize = 3
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

// ValueMeta is the bookkeeping stored next to every record.
type ValueMeta struct {
	ModCount uint64
}

type value struct {
	Flags    valueFlags
	ModCount uint64
	Data     []byte
}

func (vle value) ValueMeta() ValueMeta {
	return ValueMeta{ModCount: vle.ModCount}
}

func appendValue(buf []byte, flags valueFlags, modCount uint64, rec *agentm.Record) ([]byte, error) {
	buf = binary.AppendUvarint(buf, uint64(flags))
	buf = binary.AppendUvarint(buf, modCount)
	bb := bytes.NewBuffer(buf)
	enc := msgpack.GetEncoder()
	enc.Reset(bb)
	err := enc.Encode(rec)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, err
	}
	return bb.Bytes(), nil
}

func (vle *value) decode(data []byte) error {
	orig := data
	if len(data) < minValueSize {
		return dataErrf(orig, 0, nil, "invalid value: at least %d bytes required", minValueSize)
	}

	v, n := binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(orig, 0, nil, "invalid value: bad flags")
	}
	if (v & ^uint64(vfSupportedMask)) != 0 {
		return dataErrf(orig, 0, nil, "invalid value: unsupported flags %x", v)
	}
	vle.Flags, data = valueFlags(v), data[n:]

	v, n = binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(orig, len(orig)-len(data), nil, "invalid value: bad mod count")
	}
	vle.ModCount, data = v, data[n:]

	vle.Data = data
	return nil
}

func (vle *value) record() (*agentm.Record, error) {
	var r bytes.Reader
	r.Reset(vle.Data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	rec := &agentm.Record{}
	err := dec.Decode(rec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(vle.Data, 0, err, "failed to decode record")
	}
	return rec, nil
}

func decodeRecord(raw []byte) (*agentm.Record, ValueMeta, error) {
	var vle value
	if err := vle.decode(raw); err != nil {
		return nil, ValueMeta{}, err
	}
	rec, err := vle.record()
	return rec, vle.ValueMeta(), err
}
