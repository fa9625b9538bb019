package index

import (
	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

func applyEquality(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	col := meta.Columns[0]
	oldVal, oldOk, err := fieldString(old, col)
	if err != nil {
		return err
	}
	newVal, newOk, err := fieldString(newEnt, col)
	if err != nil {
		return err
	}
	if oldOk && (!newOk || oldVal != newVal) {
		if err := txn.Delete(keyschema.Equality(meta.Table, col, oldVal, pk)); err != nil {
			return err
		}
		if meta.Unique {
			if err := clearUnique(txn, meta.Table, col, oldVal); err != nil {
				return err
			}
		}
	}
	if newOk && (!oldOk || oldVal != newVal) {
		if meta.Unique {
			if err := checkUnique(txn, meta.Table, col, newVal, pk); err != nil {
				return err
			}
		}
		if err := txn.Put(keyschema.Equality(meta.Table, col, newVal, pk), nil); err != nil {
			return err
		}
		if meta.Unique {
			if err := setUnique(txn, meta.Table, col, newVal, pk); err != nil {
				return err
			}
		}
	}
	return nil
}

// ScanKeysEqual returns every pk with col == val in table.
func (m *Manager) ScanKeysEqual(table, col, val string) ([]string, error) {
	var pks []string
	prefix := keyschema.EqualityPrefix(table, col, val)
	err := m.store.ScanPrefix(prefix, func(k, _ []byte) (bool, error) {
		pks = append(pks, pkSuffix(k, prefix))
		return true, nil
	})
	return pks, err
}

// EstimateCountEqual walks up to cap+1 keys; capped is true iff it hit the
// cap.
func (m *Manager) EstimateCountEqual(table, col, val string, cap int) (count int, capped bool, err error) {
	prefix := keyschema.EqualityPrefix(table, col, val)
	err = m.store.ScanPrefix(prefix, func(k, _ []byte) (bool, error) {
		count++
		return count <= cap, nil
	})
	capped = count > cap
	if capped {
		count = cap
	}
	return count, capped, err
}

// pkSuffix strips prefix from a full key to recover the trailing pk.
func pkSuffix(key, prefix []byte) string {
	if len(key) < len(prefix) {
		return string(key)
	}
	return string(key[len(prefix):])
}
