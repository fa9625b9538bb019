package kv

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"
)

// ScanPrefix iterates every key under prefix in ascending order, outside
// any explicit transaction (a fresh read-only snapshot is used). fn
// returning false or an error stops iteration; an error propagates to the
// caller and is treated as fatal to the scan.
func (s *Store) ScanPrefix(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := append([]byte(nil), item.Key()...)
			var v []byte
			if err := item.Value(func(val []byte) error {
				v = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			cont, err := fn(k, v)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

// RangeOptions bounds a ScanRange call. Lo/Hi are nil for an unbounded end.
type RangeOptions struct {
	Prefix       []byte // shared prefix all keys in the family start with
	Lo, Hi       []byte // full keys, not just the varying suffix
	LoInclusive  bool
	HiInclusive  bool
	Limit        int // 0 means unbounded
	Reverse      bool
}

// ScanRange streams up to Limit keys within [Lo, Hi] (respecting
// inclusivity) under Prefix, in ascending or descending order. Shared by
// every ordered family: range index, TTL index, changefeed.
func (s *Store) ScanRange(ro RangeOptions, fn func(key, value []byte) (bool, error)) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = ro.Prefix
		opts.Reverse = ro.Reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := ro.Lo
		if ro.Reverse {
			seek = ro.Hi
			if seek == nil {
				// badger reverse iteration seeks from the prefix's upper bound;
				// append 0xFF to land past every key sharing the prefix.
				seek = append(append([]byte(nil), ro.Prefix...), 0xFF)
			}
		} else if seek == nil {
			seek = ro.Prefix
		}

		count := 0
		for it.Seek(seek); it.ValidForPrefix(ro.Prefix); it.Next() {
			item := it.Item()
			k := item.Key()

			if !ro.Reverse && ro.Lo != nil {
				c := bytes.Compare(k, ro.Lo)
				if c < 0 || (c == 0 && !ro.LoInclusive) {
					continue
				}
			}
			if ro.Reverse && ro.Hi != nil {
				c := bytes.Compare(k, ro.Hi)
				if c > 0 || (c == 0 && !ro.HiInclusive) {
					continue
				}
			}
			if ro.Hi != nil && !ro.Reverse {
				c := bytes.Compare(k, ro.Hi)
				if c > 0 || (c == 0 && !ro.HiInclusive) {
					break
				}
			}
			if ro.Lo != nil && ro.Reverse {
				c := bytes.Compare(k, ro.Lo)
				if c < 0 || (c == 0 && !ro.LoInclusive) {
					break
				}
			}

			kc := append([]byte(nil), k...)
			var v []byte
			if err := item.Value(func(val []byte) error {
				v = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			cont, err := fn(kc, v)
			if err != nil {
				return err
			}
			count++
			if !cont || (ro.Limit > 0 && count >= ro.Limit) {
				return nil
			}
		}
		return nil
	})
}
