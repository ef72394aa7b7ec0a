package store

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/jasonbaker/agentm"
	"go.uber.org/zap"
)

// OutgoingTransformer rewrites records on their way out of the store.
// WillCopy reports whether the transformer needs a private copy of each
// record, which matters when records are served from the cache.
type OutgoingTransformer interface {
	TransformOutgoing(rec *agentm.Record, collection string) (any, error)
	WillCopy() bool
}

type Options struct {
	Logger    *zap.Logger
	Verbose   bool
	IsTesting bool
	MmapSize  int

	// CacheRecords keeps decoded records in memory between read transactions.
	CacheRecords bool
	CacheLimit   int
}

type Store struct {
	stg     storage
	logger  *zap.Logger
	verbose bool
	cache   *recordCache

	outgoingLock sync.RWMutex
	outgoing     []OutgoingTransformer
	needsCopy    bool

	closed     atomic.Bool
	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

// Open opens (creating if needed) a Bolt-backed store at path.
func Open(path string, opt Options) (*Store, error) {
	stg, err := openBoltStorage(path, opt)
	if err != nil {
		return nil, errors.Wrap(err, "store")
	}
	return newStore(stg, opt), nil
}

// OpenMemory returns a store that lives in memory only.
func OpenMemory(opt Options) *Store {
	return newStore(newMemStorage(), opt)
}

func newStore(stg storage, opt Options) *Store {
	st := &Store{
		stg:     stg,
		logger:  opt.Logger,
		verbose: opt.Verbose,
	}
	if st.logger == nil {
		st.logger = zap.NewNop()
	}
	if opt.CacheRecords {
		st.cache = newRecordCache(opt.CacheLimit)
	}
	return st
}

func (st *Store) Close() error {
	if !st.closed.CompareAndSwap(false, true) {
		return nil
	}
	return st.stg.Close()
}

// AddOutgoing appends t to the outgoing chain. Transformers run in the order
// they were added; the chain stops at the first one that returns something
// other than a *agentm.Record.
func (st *Store) AddOutgoing(t OutgoingTransformer) {
	st.outgoingLock.Lock()
	defer st.outgoingLock.Unlock()
	st.outgoing = append(st.outgoing, t)
	if t.WillCopy() {
		st.needsCopy = true
	}
}

func (st *Store) outgoingChain() ([]OutgoingTransformer, bool) {
	st.outgoingLock.RLock()
	defer st.outgoingLock.RUnlock()
	return slices.Clone(st.outgoing), st.needsCopy
}

func (st *Store) transform(coll string, rec *agentm.Record) (any, error) {
	chain, _ := st.outgoingChain()
	var out any = rec
	for _, t := range chain {
		r, ok := out.(*agentm.Record)
		if !ok {
			break
		}
		v, err := t.TransformOutgoing(r, coll)
		if err != nil {
			return nil, err
		}
		out = v
	}
	return out, nil
}

// Read runs f in a read-only transaction.
func (st *Store) Read(f func(tx *Tx) error) error {
	if st.closed.Load() {
		return ErrClosed
	}
	var gen uint64
	if st.cache != nil {
		gen = st.cache.generation()
	}
	stx, err := st.stg.BeginTx(false)
	if err != nil {
		return errors.Wrap(err, "begin read")
	}
	defer stx.Rollback()
	st.ReadCount.Add(1)
	return safelyCall(f, &Tx{st: st, stx: stx, gen: gen})
}

// Update runs f in a writable transaction, committing if f returns nil and
// rolling back otherwise. A panic inside f is returned as an error.
func (st *Store) Update(f func(tx *Tx) error) error {
	if st.closed.Load() {
		return ErrClosed
	}
	stx, err := st.stg.BeginTx(true)
	if err != nil {
		return errors.Wrap(err, "begin update")
	}
	defer stx.Rollback()
	st.WriteCount.Add(1)

	tx := &Tx{st: st, stx: stx}
	if err := safelyCall(f, tx); err != nil {
		return err
	}
	if st.cache != nil && len(tx.touched) > 0 {
		st.cache.beginCommit(tx.touched)
		defer st.cache.endCommit(tx.touched)
	}
	if err := stx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// Insert stores m in coll, assigning an identifier if it has none, and
// returns the identifier.
func (st *Store) Insert(coll string, m agentm.Mapper) (any, error) {
	var id any
	err := st.Update(func(tx *Tx) error {
		var err error
		id, err = tx.Put(coll, m)
		return err
	})
	return id, err
}

// Find returns the record with the given id after the outgoing chain.
func (st *Store) Find(coll string, id any) (any, error) {
	var out any
	err := st.Read(func(tx *Tx) error {
		var err error
		out, err = tx.Get(coll, id)
		return err
	})
	return out, err
}

func (st *Store) FindAll(coll string) ([]any, error) {
	var out []any
	err := st.Read(func(tx *Tx) error {
		var err error
		out, err = tx.All(coll)
		return err
	})
	return out, err
}

func (st *Store) Remove(coll string, id any) error {
	return st.Update(func(tx *Tx) error {
		return tx.Delete(coll, id)
	})
}

func (st *Store) Collections() ([]string, error) {
	var out []string
	err := st.Read(func(tx *Tx) error {
		var err error
		out, err = tx.Collections()
		return err
	})
	return out, err
}

// FindAs is Find with the result asserted to T, typically the kind
// registered for coll.
func FindAs[T any](st *Store, coll string, id any) (T, error) {
	var zero T
	v, err := st.Find(coll, id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Newf("%s/%v: got %T, wanted %T", coll, id, v, zero)
	}
	return t, nil
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}
