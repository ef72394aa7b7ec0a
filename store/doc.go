/*
Package store persists agentm records in collections on top of a key-value
store (Bolt for files, an in-memory backend for tests).

Each collection is a root bucket. Records are keyed by their _id; a record
stored without one gets a random UUID.

Records leave the store through the outgoing chain (see AddOutgoing), which
typically re-wraps them as the kind registered for their collection.

# Technical Details

**Key encoding.**
A one-byte tag followed by the identifier as text: 's' for strings and UUIDs,
'i' for integers in decimal. Integers of every width share one key space, so
an id stored as int is found again when it decodes as int64 or uint64.

**Value**: value header, then the msgpack encoding of the record with key
order preserved.

**Value header**:
1. Flags (uvarint). The low four bits hold the format version.
2. Modification count (uvarint), bumped on every put that changes the data.

**Record cache.**
With Options.CacheRecords, read transactions keep decoded records in memory.
Commits drop the records they touched. When any outgoing transformer reports
WillCopy, every cached record is cloned before it is handed out.
*/
package store
