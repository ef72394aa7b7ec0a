package agentm

import "strings"

func splitPath(path string) []string {
	if path == "" {
		panic("empty key path")
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			panic("empty segment in key path " + path)
		}
	}
	return segs
}

// Walk descends into rec along path, creating an empty nested record for
// every missing segment, and returns the innermost record. A segment that
// holds anything other than a mapping fails with *PathError.
func (rec *Record) Walk(path ...string) (*Record, error) {
	cur := rec
	for i, seg := range path {
		v, ok := cur.Get(seg)
		if !ok || v == nil {
			sub := NewRecord()
			cur.Set(seg, sub)
			cur = sub
			continue
		}
		sub, ok := asRecord(v)
		if !ok {
			return nil, pathErrf(path, i, v, "not a mapping")
		}
		cur = sub
	}
	return cur, nil
}

// Lookup follows a dotted path without creating anything.
func (rec *Record) Lookup(path string) (any, bool) {
	segs := splitPath(path)
	cur := rec
	for i, seg := range segs {
		v, ok := cur.Get(seg)
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			return v, true
		}
		if cur, ok = asRecord(v); !ok {
			return nil, false
		}
	}
	return nil, false
}
