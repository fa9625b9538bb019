package changefeed

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// Manager owns sequence allocation and event persistence for one database's
// changefeed.
type Manager struct {
	store *kv.Store
	log   *slog.Logger
}

// NewManager wraps store. There is no separate init step: the sequence
// counter simply defaults to 0 when absent.
func NewManager(store *kv.Store) *Manager {
	return &Manager{store: store, log: slog.Default().With("component", "changefeed")}
}

// AppendInTxn allocates the next sequence and writes ev's record inside txn,
// the same transaction as the mutation it describes, guaranteeing gapless
// ordering between the mutation and its changefeed record.
// ev.Sequence and ev.TimestampMs are overwritten; callers pass TimestampMs=0.
func AppendInTxn(txn *kv.Txn, ev Event, timestampMs int64) (uint64, error) {
	seq, err := nextSequenceInTxn(txn)
	if err != nil {
		return 0, err
	}
	ev.Sequence = seq
	ev.TimestampMs = timestampMs
	raw, err := ev.marshal()
	if err != nil {
		return 0, fmt.Errorf("changefeed.AppendInTxn: %w", err)
	}
	if err := txn.Put(keyschema.ChangefeedEvent(seq), raw); err != nil {
		return 0, err
	}
	return seq, nil
}

// nextSequenceInTxn reads the counter, parses it (defaulting to 0 if
// absent), increments, and writes it back, all inside txn's snapshot —
// badger's SSI conflict detection makes the read-modify-write race-free
// across concurrent transactions without an external lock.
func nextSequenceInTxn(txn *kv.Txn) (uint64, error) {
	raw, err := txn.Get(keyschema.ChangefeedCounter())
	var cur uint64
	if err != nil {
		if !kv.IsNotFound(err) {
			return 0, err
		}
	} else {
		cur, err = strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSequenceCorruption, err)
		}
	}
	next := cur + 1
	if err := txn.Put(keyschema.ChangefeedCounter(), []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}

// Append allocates a sequence and persists ev in its own single-writer
// transaction. Used by standalone producers and tests; AppendInTxn is the
// write-coordinator's entry point for atomic mutation+CDC commits.
func (m *Manager) Append(ev Event, timestampMs int64) (uint64, error) {
	txn, err := m.store.Begin(true)
	if err != nil {
		return 0, err
	}
	seq, err := AppendInTxn(txn, ev, timestampMs)
	if err != nil {
		txn.Discard()
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

// GetLatestSequence returns the counter's current value, or 0 if no event
// has ever been appended.
func (m *Manager) GetLatestSequence() (uint64, error) {
	raw, err := m.store.Get(keyschema.ChangefeedCounter())
	if err != nil {
		if kv.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	seq, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSequenceCorruption, err)
	}
	return seq, nil
}

// Clear deletes every event record and resets the sequence counter to 0.
func (m *Manager) Clear() error {
	batch, err := m.store.NewBatch()
	if err != nil {
		return err
	}
	if err := m.store.ScanPrefix(keyschema.ChangefeedPrefix(), func(k, _ []byte) (bool, error) {
		if err := batch.Delete(k); err != nil {
			return false, err
		}
		return true, nil
	}); err != nil {
		batch.Discard()
		return err
	}
	if err := batch.Delete(keyschema.ChangefeedCounter()); err != nil {
		batch.Discard()
		return err
	}
	return batch.Commit()
}

// DeleteOldEvents implements retention: it removes every event with
// sequence <= beforeSeq and returns the count removed.
func (m *Manager) DeleteOldEvents(beforeSeq uint64) (int, error) {
	batch, err := m.store.NewBatch()
	if err != nil {
		return 0, err
	}
	deleted := 0
	if err := m.store.ScanPrefix(keyschema.ChangefeedPrefix(), func(k, v []byte) (bool, error) {
		ev, perr := unmarshalEvent(v)
		if perr != nil {
			m.log.Warn("skipping corrupt changefeed record during retention", "key", string(k))
			return true, nil
		}
		if ev.Sequence > beforeSeq {
			return false, nil // sequences ordered lexicographically == numerically; stop early
		}
		if err := batch.Delete(k); err != nil {
			return false, err
		}
		deleted++
		return true, nil
	}); err != nil {
		batch.Discard()
		return 0, err
	}
	if err := batch.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}
