package store

import "github.com/cockroachdb/errors"

// errTxNotWritable is returned by backends when a read-only transaction
// attempts a mutation.
var errTxNotWritable = errors.New("tx not writable")

// storage represents a key-value storage backend (Bolt or in-memory).
type storage interface {
	// BeginTx starts a new transaction.
	BeginTx(writable bool) (storageTx, error)
	// Close closes the storage.
	Close() error
}

// storageTx represents a storage transaction.
type storageTx interface {
	Writable() bool

	// Bucket returns the named root bucket, or nil if it doesn't exist.
	Bucket(name string) storageBucket

	// CreateBucket creates a root bucket if it doesn't exist.
	CreateBucket(name string) (storageBucket, error)

	// ForEachBucket calls f for each root bucket name in sorted order.
	ForEachBucket(f func(name string) error) error

	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times,
	// including after Commit.
	Rollback() error

	// Size returns the database size in bytes (0 if not applicable).
	Size() int64
}

// storageBucket represents a sorted key-value collection.
type storageBucket interface {
	// Get retrieves a value by key. Returns nil if not found. The returned slice
	// is only valid until the end of the transaction.
	Get(key []byte) []byte

	Put(key, value []byte) error

	Delete(key []byte) error

	Cursor() storageCursor

	// Stats returns storage-specific bucket statistics. Backends that don't
	// track allocation sizes report the in-use size as allocated.
	Stats() bucketStats
}

type bucketStats struct {
	KeyN        int
	LeafInuse   int64
	LeafAlloc   int64
	BranchAlloc int64
}

func (s bucketStats) TotalAlloc() int64 { return s.BranchAlloc + s.LeafAlloc }

// storageCursor iterates over a sorted bucket.
type storageCursor interface {
	First() (key, value []byte)
	Next() (key, value []byte)
}
