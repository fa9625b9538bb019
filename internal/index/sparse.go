package index

import (
	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// applySparse is identical to equality except entries are omitted when the
// value is absent or empty, enabling efficient has-field scans.
func applySparse(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	col := meta.Columns[0]

	oldVal, oldPresent, err := sparseValue(old, col)
	if err != nil {
		return err
	}
	newVal, newPresent, err := sparseValue(newEnt, col)
	if err != nil {
		return err
	}

	if oldPresent && (!newPresent || oldVal != newVal) {
		if err := txn.Delete(keyschema.Equality(meta.Table, col, oldVal, pk)); err != nil {
			return err
		}
	}
	if newPresent && (!oldPresent || oldVal != newVal) {
		if err := txn.Put(keyschema.Equality(meta.Table, col, newVal, pk), nil); err != nil {
			return err
		}
	}
	return nil
}

func sparseValue(e *entity.Entity, col string) (string, bool, error) {
	if e == nil {
		return "", false, nil
	}
	v, ok, err := e.Get(col)
	if err != nil || !ok || v.IsEmpty() {
		return "", false, err
	}
	s, err := v.AsString()
	if err != nil {
		return "", false, nil
	}
	return s, true, nil
}

// ScanSparse returns every pk with a present, non-empty value equal to val.
// Sharing the equality key layout, this reuses ScanKeysEqual.
func (m *Manager) ScanSparse(table, col, val string) ([]string, error) {
	return m.ScanKeysEqual(table, col, val)
}

// ScanHasField returns every pk that has a present (non-empty) value for
// col, by scanning the whole column prefix and deduping pks across values.
func (m *Manager) ScanHasField(table, col string) ([]string, error) {
	seen := map[string]bool{}
	var pks []string
	prefix := keyschema.EqualityColPrefix(table, col)
	err := m.store.ScanPrefix(prefix, func(k, _ []byte) (bool, error) {
		// key shape: idx:table:col:val:pk -- the pk is the final segment.
		pk := lastSegment(k)
		if !seen[pk] {
			seen[pk] = true
			pks = append(pks, pk)
		}
		return true, nil
	})
	return pks, err
}

func lastSegment(key []byte) string {
	i := len(key) - 1
	for ; i >= 0; i-- {
		if key[i] == ':' {
			break
		}
	}
	return string(key[i+1:])
}
