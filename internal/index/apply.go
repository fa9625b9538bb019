package index

import (
	"fmt"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// ApplyPut recomputes and writes every declared index entry affected by
// writing pk's record in table, given its prior value (old, nil if this is
// a fresh insert) and its new value. All mutations are buffered on txn so
// the caller can commit them atomically alongside the primary write and
// changefeed event.
//
// If any declared unique index on this write's value would collide with a
// different pk's existing value, ApplyPut returns ErrUniqueViolation and
// writes nothing further (the whole batch must then be abandoned by the
// caller).
func (m *Manager) ApplyPut(txn *kv.Txn, table, pk string, old, newEnt *entity.Entity) error {
	for _, meta := range m.IndexesForTable(table) {
		if err := applyOneIndex(txn, meta, pk, old, newEnt); err != nil {
			return err
		}
	}
	return nil
}

// ApplyErase removes every declared index entry for pk's previously stored
// value, symmetric to ApplyPut's insertion side.
func (m *Manager) ApplyErase(txn *kv.Txn, table, pk string, old *entity.Entity) error {
	if old == nil {
		return nil
	}
	for _, meta := range m.IndexesForTable(table) {
		if err := applyOneIndex(txn, meta, pk, old, nil); err != nil {
			return err
		}
	}
	return nil
}

func applyOneIndex(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	switch meta.Flavor {
	case FlavorEquality:
		return applyEquality(txn, meta, pk, old, newEnt)
	case FlavorSparse:
		return applySparse(txn, meta, pk, old, newEnt)
	case FlavorComposite:
		return applyComposite(txn, meta, pk, old, newEnt)
	case FlavorRange:
		return applyRange(txn, meta, pk, old, newEnt)
	case FlavorGeo:
		return applyGeo(txn, meta, pk, old, newEnt)
	case FlavorTTL:
		return applyTTL(txn, meta, pk, old, newEnt)
	case FlavorFulltext:
		return applyFulltext(txn, meta, pk, old, newEnt)
	default:
		return fmt.Errorf("%w: unknown flavor %q", ErrNoSuchIndex, meta.Flavor)
	}
}

// fieldString reads a field as its string key-form, or ("", false) if the
// entity is nil or the field is absent.
func fieldString(e *entity.Entity, field string) (string, bool, error) {
	if e == nil {
		return "", false, nil
	}
	v, ok, err := e.Get(field)
	if err != nil || !ok {
		return "", false, err
	}
	s, err := v.AsString()
	if err != nil {
		return "", false, nil
	}
	return s, true, nil
}

// checkUnique probes the uniq: guard within txn's snapshot and, if the
// value is already owned by a different pk, returns ErrUniqueViolation.
// A put that reassigns a pk's own value is a no-op for the guard.
func checkUnique(txn *kv.Txn, table, col, val, pk string) error {
	key := keyschema.Unique(table, col, val)
	owner, err := txn.Get(key)
	if err != nil {
		if kv.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("index.checkUnique: %w", err)
	}
	if string(owner) != pk {
		return fmt.Errorf("%w: table=%s col=%s val=%s owned by %s", ErrUniqueViolation, table, col, val, owner)
	}
	return nil
}

func setUnique(txn *kv.Txn, table, col, val, pk string) error {
	return txn.Put(keyschema.Unique(table, col, val), []byte(pk))
}

func clearUnique(txn *kv.Txn, table, col, val string) error {
	return txn.Delete(keyschema.Unique(table, col, val))
}
