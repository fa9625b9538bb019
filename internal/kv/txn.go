package kv

import (
	"github.com/dgraph-io/badger/v4"
)

// Txn is an MVCC transaction: a consistent snapshot for reads, buffered
// mutations for writes, committed or rolled back as a unit. Badger's own
// SSI transaction provides the snapshot-isolation and conflict-detection
// semantics; Commit surfaces badger.ErrConflict as ErrConflictRetryable so
// callers know to retry with fresh reads.
type Txn struct {
	raw *badger.Txn
	rw  bool
}

// Begin starts a new transaction. update=true yields a read-write
// transaction; update=false yields a read-only snapshot.
func (s *Store) Begin(update bool) (*Txn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return &Txn{raw: s.db.NewTransaction(update), rw: update}, nil
}

// Get reads a key within the transaction's snapshot.
func (t *Txn) Get(key []byte) ([]byte, error) {
	item, err := t.raw.Get(key)
	if err != nil {
		return nil, wrap("kv.Txn.Get", err)
	}
	var out []byte
	err = item.Value(func(val []byte) error {
		out = append([]byte(nil), val...)
		return nil
	})
	if err != nil {
		return nil, wrap("kv.Txn.Get", err)
	}
	return out, nil
}

// Has reports key existence within the transaction's snapshot.
func (t *Txn) Has(key []byte) (bool, error) {
	_, err := t.raw.Get(key)
	if err == nil {
		return true, nil
	}
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return false, wrap("kv.Txn.Has", err)
}

// Put buffers a write in this transaction.
func (t *Txn) Put(key, value []byte) error {
	if err := t.raw.Set(key, value); err != nil {
		return wrap("kv.Txn.Put", err)
	}
	return nil
}

// Delete buffers a delete in this transaction.
func (t *Txn) Delete(key []byte) error {
	if err := t.raw.Delete(key); err != nil {
		return wrap("kv.Txn.Delete", err)
	}
	return nil
}

// ScanPrefix iterates every key under prefix in ascending order, calling fn
// for each. fn returning false stops iteration early without error.
func (t *Txn) ScanPrefix(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.raw.NewIterator(opts)
	defer it.Close()

	var ferr error
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		k := append([]byte(nil), item.Key()...)
		var v []byte
		if err := item.Value(func(val []byte) error {
			v = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return wrap("kv.Txn.ScanPrefix", err)
		}
		cont, err := fn(k, v)
		if err != nil {
			ferr = err
			break
		}
		if !cont {
			break
		}
	}
	return ferr
}

// Commit applies every buffered mutation atomically. Returns
// ErrConflictRetryable if a concurrent writer invalidated this
// transaction's read set (SSI conflict).
func (t *Txn) Commit() error {
	return wrap("kv.Txn.Commit", t.raw.Commit())
}

// Discard abandons the transaction without applying its mutations. Safe to
// call after Commit (a no-op in that case, per badger's contract).
func (t *Txn) Discard() {
	t.raw.Discard()
}
