package store

import (
	"fmt"
	"io"
	"strings"

	"github.com/jasonbaker/agentm"
)

type DumpFlags uint64

const (
	DumpHeaders = DumpFlags(1 << iota)
	DumpRecords
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

type CollectionStats struct {
	Records   int
	DataSize  int64
	DataAlloc int64
}

func (tx *Tx) Stats(coll string) CollectionStats {
	b := tx.stx.Bucket(coll)
	if b == nil {
		return CollectionStats{}
	}
	bs := b.Stats()
	return CollectionStats{
		Records:   bs.KeyN,
		DataSize:  bs.LeafInuse,
		DataAlloc: bs.TotalAlloc(),
	}
}

// Dump writes a human-readable listing of the given collections, or of all
// collections when none are named. Records are shown raw, without the
// outgoing chain.
func (tx *Tx) Dump(w io.Writer, f DumpFlags, colls ...string) error {
	if len(colls) == 0 {
		var err error
		colls, err = tx.Collections()
		if err != nil {
			return err
		}
	}
	for _, coll := range colls {
		if err := tx.dumpCollection(w, f, coll); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) dumpCollection(w io.Writer, f DumpFlags, coll string) error {
	s := tx.Stats(coll)
	if f.Contains(DumpHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d records)\n", coll, s.Records)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: data_size = %d, data_alloc = %d\n", coll, s.DataSize, s.DataAlloc)
	}
	if !f.Contains(DumpRecords) {
		return nil
	}
	if f.Contains(DumpStats) {
		fmt.Fprintln(w, dumpSep2)
	}
	b := tx.stx.Bucket(coll)
	if b == nil {
		return nil
	}
	c := b.Cursor()
	var pos int
	for k, v := c.First(); k != nil; k, v = c.Next() {
		pos++
		dumpRecord(w, coll, pos, v)
	}
	return nil
}

func dumpRecord(w io.Writer, coll string, pos int, raw []byte) {
	rec, meta, err := decodeRecord(raw)
	if err != nil {
		fmt.Fprintf(w, "%s.%d = (m%d) ** ERROR: %v\n", coll, pos, meta.ModCount, err)
		return
	}
	fmt.Fprintf(w, "%s.%d = (m%d) %s\n", coll, pos, meta.ModCount, loggableRecord(rec))
}

func loggableRecord(rec *agentm.Record) string {
	if rec == nil {
		return "<none>"
	}
	data, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
