// Package kv is the thin capability layer over an embedded LSM key/value
// store. Themis uses github.com/dgraph-io/badger/v4 as the concrete LSM
// engine: point get/put/del, ordered prefix/range iteration via a
// stoppable callback, atomic write batches, MVCC transactions with
// snapshot reads and conflict detection, and filesystem-level checkpoint
// and restore.
package kv

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a single badger.DB. Manager instances (index, graph, vector,
// changefeed) borrow a *Store and must not outlive it — the store owns
// the underlying handle and its iterators.
type Store struct {
	db     *badger.DB
	opts   Options
	log    *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// Open creates or opens the store at opts.DBPath.
func Open(opts Options) (*Store, error) {
	bo := opts.toBadger()
	db, err := badger.Open(bo)
	if err != nil {
		return nil, wrap("kv.Open", err)
	}
	return &Store{
		db:   db,
		opts: opts,
		log:  slog.Default().With("component", "kv"),
	}, nil
}

// Close releases the underlying badger handle. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return wrap("kv.Close", err)
	}
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("kv: %w: store is closed", ErrStoreUnavailable)
	}
	return nil
}

// Get returns the value stored at key, or ErrNotFound if absent.
func (s *Store) Get(key []byte) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, wrap("kv.Get", err)
	}
	return out, nil
}

// Has reports whether a key exists.
func (s *Store) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Put writes a single key/value pair outside of any explicit batch.
func (s *Store) Put(key, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return wrap("kv.Put", err)
}

// Delete removes a single key outside of any explicit batch.
func (s *Store) Delete(key []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	return wrap("kv.Delete", err)
}

// DB exposes the underlying badger handle for advanced callers (checkpoint,
// transaction wrapper) that need direct access.
func (s *Store) DB() *badger.DB { return s.db }

// EnsureDir creates the data directory ahead of Open if needed.
func EnsureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
