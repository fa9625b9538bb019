package kv

import (
	"github.com/dgraph-io/badger/v4"
)

// Batch is an atomic write batch scoped to commit-or-discard-on-drop.
// Unlike Txn, a Batch does not track a read snapshot — it is meant for
// bulk, non-conflicting writes (index rebuild, bulk changefeed backfill)
// where no read-then-write invariant needs to be enforced.
type Batch struct {
	raw *badger.WriteBatch
}

// NewBatch opens a fresh write batch.
func (s *Store) NewBatch() (*Batch, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return &Batch{raw: s.db.NewWriteBatch()}, nil
}

// Put buffers a write.
func (b *Batch) Put(key, value []byte) error {
	return wrap("kv.Batch.Put", b.raw.Set(key, value))
}

// Delete buffers a delete.
func (b *Batch) Delete(key []byte) error {
	return wrap("kv.Batch.Delete", b.raw.Delete(key))
}

// Commit flushes every buffered mutation.
func (b *Batch) Commit() error {
	return wrap("kv.Batch.Commit", b.raw.Flush())
}

// Discard abandons the batch without flushing it.
func (b *Batch) Discard() {
	b.raw.Cancel()
}
