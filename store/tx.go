package store

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/jasonbaker/agentm"
	"go.uber.org/zap"
)

// Tx is a transaction handed to Store.Read and Store.Update callbacks. It
// must not be used after the callback returns.
type Tx struct {
	st      *Store
	stx     storageTx
	gen     uint64
	touched []cacheKey
}

func (tx *Tx) Store() *Store {
	return tx.st
}

func (tx *Tx) IsWritable() bool {
	return tx.stx.Writable()
}

// GetRecord returns the stored record with its metadata, bypassing the
// outgoing chain. The record is private to the caller.
func (tx *Tx) GetRecord(coll string, id any) (*agentm.Record, ValueMeta, error) {
	rec, meta, shared, err := tx.load(coll, id)
	if err != nil {
		return nil, ValueMeta{}, err
	}
	if shared {
		rec = rec.Clone()
	}
	return rec, meta, nil
}

// Get returns the record stored under id, passed through the outgoing
// chain. With a typed outgoing hook installed, that is the registered kind
// for coll.
func (tx *Tx) Get(coll string, id any) (any, error) {
	rec, _, shared, err := tx.load(coll, id)
	if err != nil {
		return nil, err
	}
	if shared {
		if _, needsCopy := tx.st.outgoingChain(); needsCopy {
			rec = rec.Clone()
		}
	}
	out, err := tx.st.transform(coll, rec)
	if err != nil {
		return nil, collErrf(coll, nil, err, "outgoing")
	}
	return out, nil
}

// load reads and decodes a record. shared reports whether the returned
// record is also held by the cache.
func (tx *Tx) load(coll string, id any) (rec *agentm.Record, meta ValueMeta, shared bool, err error) {
	if coll == "" {
		return nil, ValueMeta{}, false, ErrNoCollection
	}
	key, err := encodeID(id)
	if err != nil {
		return nil, ValueMeta{}, false, collErrf(coll, nil, err, "get")
	}

	ck := cacheKey{coll, string(key)}
	useCache := tx.st.cache != nil && !tx.IsWritable()
	if useCache {
		if e, ok := tx.st.cache.get(ck); ok {
			if tx.st.verbose {
				tx.st.logger.Debug("db: GET.CACHED", zap.String("collection", coll), zap.String("key", keyString(key)))
			}
			return e.rec, e.meta, true, nil
		}
	}

	var raw []byte
	if b := tx.stx.Bucket(coll); b != nil {
		raw = b.Get(key)
	}
	if raw == nil {
		if tx.st.verbose {
			tx.st.logger.Debug("db: GET.NOTFOUND", zap.String("collection", coll), zap.String("key", keyString(key)))
		}
		return nil, ValueMeta{}, false, collErrf(coll, key, ErrNotFound, "")
	}
	rec, meta, err = decodeRecord(raw)
	if err != nil {
		return nil, ValueMeta{}, false, collErrf(coll, key, err, "")
	}
	if tx.st.verbose {
		tx.st.logger.Debug("db: GET", zap.String("collection", coll), zap.String("key", keyString(key)), zap.Uint64("mod", meta.ModCount))
	}
	if useCache {
		tx.st.cache.put(ck, cacheEntry{rec, meta}, tx.gen)
		return rec, meta, true, nil
	}
	return rec, meta, false, nil
}

// Put stores m in coll. A record without an _id gets a fresh UUID, written
// back into m's record. Storing data identical to what is already there
// leaves the modification count alone.
func (tx *Tx) Put(coll string, m agentm.Mapper) (any, error) {
	if coll == "" {
		return nil, ErrNoCollection
	}
	if !tx.IsWritable() {
		return nil, collErrf(coll, nil, errTxNotWritable, "put")
	}
	rec := m.Record()
	id, ok := rec.Get(agentm.IDKey)
	if !ok || id == nil {
		id = newID()
		rec.Set(agentm.IDKey, id)
	}
	key, err := encodeID(id)
	if err != nil {
		return nil, collErrf(coll, nil, err, "put")
	}

	b, err := tx.stx.CreateBucket(coll)
	if err != nil {
		return nil, collErrf(coll, nil, err, "create collection")
	}

	var old value
	oldRaw := b.Get(key)
	if oldRaw != nil {
		if err := old.decode(oldRaw); err != nil {
			return nil, collErrf(coll, key, err, "decoding old value")
		}
	}

	modCount := old.ModCount + 1
	valueRaw, err := appendValue(nil, vfDefault, modCount, rec)
	if err != nil {
		return nil, collErrf(coll, key, err, "encode")
	}
	if oldRaw != nil {
		var fresh value
		if err := fresh.decode(valueRaw); err != nil {
			return nil, collErrf(coll, key, err, "encode")
		}
		if bytes.Equal(fresh.Data, old.Data) {
			if tx.st.verbose {
				tx.st.logger.Debug("db: PUT.NOOP", zap.String("collection", coll), zap.String("key", keyString(key)), zap.Uint64("mod", old.ModCount))
			}
			return id, nil
		}
	}

	if err := b.Put(key, valueRaw); err != nil {
		return nil, collErrf(coll, key, err, "put")
	}
	tx.touched = append(tx.touched, cacheKey{coll, string(key)})

	if tx.st.verbose {
		tx.st.logger.Debug("db: PUT", zap.String("collection", coll), zap.String("key", keyString(key)), zap.Uint64("mod", modCount), zap.Stringer("record", rec))
	}
	return id, nil
}

// Save is Put into the collection m belongs to: its Collection method when
// it has one, its namespace tag otherwise.
func (tx *Tx) Save(m agentm.Mapper) (any, error) {
	var coll string
	if c, ok := m.(interface{ Collection() string }); ok {
		coll = c.Collection()
	}
	if coll == "" {
		if v, ok := m.Record().Get(agentm.NamespaceKey); ok {
			coll, _ = v.(string)
		}
	}
	if coll == "" {
		return nil, ErrNoCollection
	}
	return tx.Put(coll, m)
}

// Delete removes the record stored under id. Deleting a missing record
// returns an error wrapping ErrNotFound.
func (tx *Tx) Delete(coll string, id any) error {
	if coll == "" {
		return ErrNoCollection
	}
	key, err := encodeID(id)
	if err != nil {
		return collErrf(coll, nil, err, "delete")
	}
	b := tx.stx.Bucket(coll)
	if b == nil || b.Get(key) == nil {
		if tx.st.verbose {
			tx.st.logger.Debug("db: DELETE.NOOP", zap.String("collection", coll), zap.String("key", keyString(key)))
		}
		return collErrf(coll, key, ErrNotFound, "")
	}
	if err := b.Delete(key); err != nil {
		return collErrf(coll, key, err, "delete")
	}
	tx.touched = append(tx.touched, cacheKey{coll, string(key)})
	if tx.st.verbose {
		tx.st.logger.Debug("db: DELETE", zap.String("collection", coll), zap.String("key", keyString(key)))
	}
	return nil
}

// Each calls f for every record of coll in key order, without running the
// outgoing chain. Iteration stops at the first error.
func (tx *Tx) Each(coll string, f func(rec *agentm.Record, meta ValueMeta) error) error {
	b := tx.stx.Bucket(coll)
	if b == nil {
		return nil
	}
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		rec, meta, err := decodeRecord(v)
		if err != nil {
			return collErrf(coll, k, err, "")
		}
		if err := f(rec, meta); err != nil {
			return err
		}
	}
	return nil
}

// All returns every record of coll in key order, passed through the
// outgoing chain. A missing collection yields an empty result.
func (tx *Tx) All(coll string) ([]any, error) {
	if coll == "" {
		return nil, ErrNoCollection
	}
	out := []any{}
	err := tx.Each(coll, func(rec *agentm.Record, _ ValueMeta) error {
		v, err := tx.st.transform(coll, rec)
		if err != nil {
			return collErrf(coll, nil, err, "outgoing")
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *Tx) Count(coll string) int {
	b := tx.stx.Bucket(coll)
	if b == nil {
		return 0
	}
	return b.Stats().KeyN
}

// Collections lists the collections that hold or have held records.
func (tx *Tx) Collections() ([]string, error) {
	var names []string
	err := tx.stx.ForEachBucket(func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "collections")
	}
	return names, nil
}

func (tx *Tx) Size() int64 {
	return tx.stx.Size()
}
