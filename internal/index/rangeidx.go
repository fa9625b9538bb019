package index

import (
	"fmt"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// encodeRangeValue produces the sortable byte-string encoding for a field
// value: integers and floats get fixed-width sortable encodings, strings
// pass through. Mismatched types at scan time raise InvalidInput rather
// than silently sorting lexicographically.
func encodeRangeValue(v entity.Value) ([]byte, error) {
	switch v.Kind() {
	case entity.KindInt:
		i, _ := v.AsInt()
		return keyschema.EncodeSortableInt64(i), nil
	case entity.KindFloat:
		f, _ := v.AsFloat()
		return keyschema.EncodeSortableFloat64(f), nil
	case entity.KindString:
		s, _ := v.AsStr()
		return keyschema.EncodeSortableString(s), nil
	default:
		return nil, fmt.Errorf("%w: range index cannot encode kind %s", ErrRangeEncodingFailure, v.Kind())
	}
}

func rangeFieldEncoded(e *entity.Entity, col string) (sval []byte, ok bool, err error) {
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
	sval, err = encodeRangeValue(v)
	if err != nil {
		return nil, false, err
	}
	return sval, true, nil
}

func applyRange(txn *kv.Txn, meta Meta, pk string, old, newEnt *entity.Entity) error {
	col := meta.Columns[0]
	oldVal, oldOk, err := rangeFieldEncoded(old, col)
	if err != nil {
		return err
	}
	newVal, newOk, err := rangeFieldEncoded(newEnt, col)
	if err != nil {
		return err
	}
	changed := oldOk != newOk || (oldOk && newOk && string(oldVal) != string(newVal))
	if oldOk && changed {
		if err := txn.Delete(keyschema.Range(meta.Table, col, oldVal, pk)); err != nil {
			return err
		}
	}
	if newOk && changed {
		if err := txn.Put(keyschema.Range(meta.Table, col, newVal, pk), nil); err != nil {
			return err
		}
	}
	return nil
}

// RangeQuery bounds a ScanKeysRange call. Lo/Hi are raw field values
// (int64, float64, or string); nil means unbounded.
type RangeQuery struct {
	Lo, Hi                   interface{}
	LoInclusive, HiInclusive bool
	Limit                    int
	Reverse                  bool
}

func toRangeValue(x interface{}) (entity.Value, error) {
	switch t := x.(type) {
	case int64:
		return entity.Int(t), nil
	case int:
		return entity.Int(int64(t)), nil
	case float64:
		return entity.Float(t), nil
	case string:
		return entity.String(t), nil
	default:
		return entity.Value{}, fmt.Errorf("%w: unsupported range bound type %T", ErrInvalidInput, x)
	}
}

// ScanKeysRange streams up to q.Limit pks from table.col whose encoded
// value falls within [q.Lo, q.Hi] (respecting inclusivity), ascending or
// descending per q.Reverse.
func (m *Manager) ScanKeysRange(table, col string, q RangeQuery) ([]string, error) {
	prefix := keyschema.RangeColPrefix(table, col)

	// Every key continues with ":<pk>" after the encoded value, so a bound
	// ending in ':' sorts just before all pks of that value and one ending
	// in ';' (the byte after ':') just after them.
	loSep, hiSep := byte(';'), byte(':')
	if q.LoInclusive {
		loSep = ':'
	}
	if q.HiInclusive {
		hiSep = ';'
	}

	var lo, hi []byte
	if q.Lo != nil {
		v, err := toRangeValue(q.Lo)
		if err != nil {
			return nil, err
		}
		sval, err := encodeRangeValue(v)
		if err != nil {
			return nil, err
		}
		lo = append(append(append([]byte(nil), prefix...), sval...), loSep)
	}
	if q.Hi != nil {
		v, err := toRangeValue(q.Hi)
		if err != nil {
			return nil, err
		}
		sval, err := encodeRangeValue(v)
		if err != nil {
			return nil, err
		}
		hi = append(append(append([]byte(nil), prefix...), sval...), hiSep)
	}

	var pks []string
	err := m.store.ScanRange(kv.RangeOptions{
		Prefix: prefix, Lo: lo, Hi: hi,
		LoInclusive: true, HiInclusive: false,
		Limit: q.Limit, Reverse: q.Reverse,
	}, func(k, _ []byte) (bool, error) {
		pks = append(pks, lastSegment(k))
		return true, nil
	})
	return pks, err
}
