package index

import (
	"time"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

func ttlFieldEncoded(e *entity.Entity, col string) (expBE []byte, ok bool, err error) {
	if e == nil {
		return nil, false, nil
	}
	v, present, gerr := e.Get(col)
	if gerr != nil {
		return nil, false, gerr
	}
	if !present || v.IsNull() {
		return nil, false, nil
	}
	i, intOk := v.AsInt()
	if !intOk {
		return nil, false, nil
	}
	return keyschema.EncodeSortableInt64(i), true, nil
}

func applyTTL(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	col := meta.Columns[0]
	oldExp, oldOk, err := ttlFieldEncoded(old, col)
	if err != nil {
		return err
	}
	newExp, newOk, err := ttlFieldEncoded(newEnt, col)
	if err != nil {
		return err
	}
	changed := oldOk != newOk || (oldOk && newOk && string(oldExp) != string(newExp))
	if oldOk && changed {
		if err := txn.Delete(keyschema.TTL(meta.Table, col, oldExp, pk)); err != nil {
			return err
		}
	}
	if newOk && changed {
		if err := txn.Put(keyschema.TTL(meta.Table, col, newExp, pk), nil); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpiredEntities scans table.col's TTL index for expiry timestamps
// at or before now, erasing both the primary entity and all of its index
// entries for each expired pk. Returns the count erased.
func (m *Manager) CleanupExpiredEntities(table, col string, now time.Time) (int, error) {
	if !m.HasIndex(table, col) {
		return 0, ErrNoSuchIndex
	}

	cutoff := keyschema.EncodeSortableInt64(now.Unix())
	prefix := keyschema.TTLColPrefix(table, col)

	// Keys are "<expiry>:<pk>"; ending the bound in ';' (the byte after ':')
	// keeps every pk whose expiry equals now.
	var pks []string
	err := m.store.ScanRange(kv.RangeOptions{
		Prefix:      prefix,
		Hi:          append(append(append([]byte(nil), prefix...), cutoff...), ';'),
		HiInclusive: false,
	}, func(k, _ []byte) (bool, error) {
		pks = append(pks, lastSegment(k))
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	erased := 0
	for _, pk := range pks {
		txn, err := m.store.Begin(true)
		if err != nil {
			return erased, err
		}
		raw, err := txn.Get(keyschema.Primary(table, pk))
		if err != nil && !kv.IsNotFound(err) {
			txn.Discard()
			return erased, err
		}
		var oldEnt *entity.Entity
		if err == nil {
			oldEnt = entity.FromBytes(pk, raw)
		}
		if err := txn.Delete(keyschema.Primary(table, pk)); err != nil {
			txn.Discard()
			return erased, err
		}
		if oldEnt != nil {
			if err := m.ApplyErase(txn, table, pk, oldEnt); err != nil {
				txn.Discard()
				return erased, err
			}
		}
		if err := txn.Commit(); err != nil {
			return erased, err
		}
		erased++
	}
	return erased, nil
}
