package index

import (
	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

func compositeValues(e *entity.Entity, cols []string) (vals []string, complete bool, err error) {
	if e == nil {
		return nil, false, nil
	}
	vals = make([]string, len(cols))
	for i, c := range cols {
		v, ok, gerr := e.Get(c)
		if gerr != nil {
			return nil, false, gerr
		}
		if !ok {
			return nil, false, nil
		}
		s, serr := v.AsString()
		if serr != nil {
			return nil, false, nil
		}
		vals[i] = s
	}
	return vals, true, nil
}

func sameValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func applyComposite(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	oldVals, oldOk, err := compositeValues(old, meta.Columns)
	if err != nil {
		return err
	}
	newVals, newOk, err := compositeValues(newEnt, meta.Columns)
	if err != nil {
		return err
	}
	if oldOk && (!newOk || !sameValues(oldVals, newVals)) {
		if err := txn.Delete(keyschema.Composite(meta.Table, meta.Columns, oldVals, pk)); err != nil {
			return err
		}
		if meta.Unique {
			if err := clearUnique(txn, meta.Table, meta.colKey(), joinForUnique(oldVals)); err != nil {
				return err
			}
		}
	}
	if newOk && (!oldOk || !sameValues(oldVals, newVals)) {
		if meta.Unique {
			if err := checkUnique(txn, meta.Table, meta.colKey(), joinForUnique(newVals), pk); err != nil {
				return err
			}
		}
		if err := txn.Put(keyschema.Composite(meta.Table, meta.Columns, newVals, pk), nil); err != nil {
			return err
		}
		if meta.Unique {
			if err := setUnique(txn, meta.Table, meta.colKey(), joinForUnique(newVals), pk); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinForUnique(vals []string) string {
	out := make([]byte, 0, len(vals)*8)
	for i, v := range vals {
		if i > 0 {
			out = append(out, 0x1F)
		}
		out = append(out, v...)
	}
	return string(out)
}

// ScanKeysEqualComposite returns every pk whose k fields equal vals, in the
// declared column order.
func (m *Manager) ScanKeysEqualComposite(table string, cols []string, vals []string) ([]string, error) {
	var pks []string
	prefix := keyschema.CompositePrefix(table, cols, vals)
	err := m.store.ScanPrefix(prefix, func(k, _ []byte) (bool, error) {
		pks = append(pks, pkSuffix(k, prefix))
		return true, nil
	})
	return pks, err
}
