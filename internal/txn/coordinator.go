// Package txn implements the write coordinator: one kv.Txn per logical
// write, binding the primary mutation, every affected secondary index
// entry, and a changefeed record into a single atomic commit.
package txn

import (
	"fmt"
	"time"

	"github.com/themis-db/themis/internal/changefeed"
	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/index"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// Coordinator ties together the primary table, the secondary index manager,
// and the changefeed for one store. It does not own graph or vector
// mutations; those managers commit their own batches as independent
// operations, separate from the generic put/erase path this package
// implements.
type Coordinator struct {
	store *kv.Store
	index *index.Manager
	feed  *changefeed.Manager
}

// NewCoordinator wires store's primary table to idx's secondary indexes and
// feed's changefeed.
func NewCoordinator(store *kv.Store, idx *index.Manager, feed *changefeed.Manager) *Coordinator {
	return &Coordinator{store: store, index: idx, feed: feed}
}

// Put writes table/pk's fields, recomputing every declared index entry and
// appending a PUT changefeed event, all in one commit. On
// ErrConflictRetryable from a concurrent writer it retries with fresh
// reads, per the store's MVCC conflict-detection contract.
func (c *Coordinator) Put(table, pk string, fields map[string]entity.Value, metadata map[string]string) error {
	return RunWithConflictRetry(func() error {
		txn, err := c.store.Begin(true)
		if err != nil {
			return err
		}

		old, err := readEntity(txn, table, pk)
		if err != nil {
			txn.Discard()
			return err
		}

		newEnt := entity.New(pk)
		for field, v := range fields {
			if err := newEnt.Set(field, v); err != nil {
				txn.Discard()
				return err
			}
		}
		blob, err := newEnt.Serialize()
		if err != nil {
			txn.Discard()
			return fmt.Errorf("txn.Put: %w", err)
		}

		if err := c.index.ApplyPut(txn, table, pk, old, newEnt); err != nil {
			txn.Discard()
			return err
		}
		if err := txn.Put(keyschema.Primary(table, pk), blob); err != nil {
			txn.Discard()
			return err
		}
		if _, err := changefeed.AppendInTxn(txn, changefeed.Event{
			Type:     changefeed.EventPut,
			Key:      string(keyschema.Primary(table, pk)),
			Metadata: metadata,
		}, time.Now().UnixMilli()); err != nil {
			txn.Discard()
			return err
		}

		return txn.Commit()
	})
}

// Erase removes table/pk's record, its index entries, and appends a DELETE
// changefeed event, all in one commit.
func (c *Coordinator) Erase(table, pk string, metadata map[string]string) error {
	return RunWithConflictRetry(func() error {
		txn, err := c.store.Begin(true)
		if err != nil {
			return err
		}

		old, err := readEntity(txn, table, pk)
		if err != nil {
			txn.Discard()
			return err
		}
		if old == nil {
			txn.Discard()
			return kv.ErrNotFound
		}

		if err := c.index.ApplyErase(txn, table, pk, old); err != nil {
			txn.Discard()
			return err
		}
		if err := txn.Delete(keyschema.Primary(table, pk)); err != nil {
			txn.Discard()
			return err
		}
		if _, err := changefeed.AppendInTxn(txn, changefeed.Event{
			Type:     changefeed.EventDelete,
			Key:      string(keyschema.Primary(table, pk)),
			Metadata: metadata,
		}, time.Now().UnixMilli()); err != nil {
			txn.Discard()
			return err
		}

		return txn.Commit()
	})
}

func readEntity(txn *kv.Txn, table, pk string) (*entity.Entity, error) {
	raw, err := txn.Get(keyschema.Primary(table, pk))
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return entity.FromBytes(pk, raw), nil
}
