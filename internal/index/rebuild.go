package index

import (
	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
)

// ProgressFunc reports rebuild progress; returning false stops the rebuild
// cleanly after the current entity.
type ProgressFunc func(done, total int) bool

// RebuildIndex first deletes every entry in this index's data range
// (including residue left by an earlier drop or by values no longer
// present), then scans every primary record in table and recomputes this
// index's entries, treating each record as a fresh insert (old=nil) so
// running it twice converges on the same entries (idempotent). Unique
// guard keys live outside the data range and are not purged.
func (m *Manager) RebuildIndex(table, colKey string, progress ProgressFunc) error {
	m.mu.RLock()
	meta, ok := m.meta[metaCacheKey(table, colKey)]
	m.mu.RUnlock()
	if !ok {
		return ErrNoSuchIndex
	}

	purge, err := m.store.NewBatch()
	if err != nil {
		return err
	}
	if err := m.store.ScanPrefix(dataPrefixFor(meta), func(k, _ []byte) (bool, error) {
		return true, purge.Delete(k)
	}); err != nil {
		purge.Discard()
		return err
	}
	if err := purge.Commit(); err != nil {
		return err
	}

	total := 0
	if err := m.store.ScanPrefix(keyschema.PrimaryPrefix(table), func(_, _ []byte) (bool, error) {
		total++
		return true, nil
	}); err != nil {
		return err
	}

	done := 0
	return m.store.ScanPrefix(keyschema.PrimaryPrefix(table), func(k, v []byte) (bool, error) {
		pk := lastSegment(k)
		ent := entity.FromBytes(pk, v)

		txn, err := m.store.Begin(true)
		if err != nil {
			return false, err
		}
		if err := applyOneIndex(txn, meta, pk, nil, ent); err != nil {
			txn.Discard()
			return false, err
		}
		if err := txn.Commit(); err != nil {
			return false, err
		}

		done++
		if progress != nil && !progress(done, total) {
			return false, nil
		}
		return true, nil
	})
}

// ReindexTable runs RebuildIndex over every index declared on table.
func (m *Manager) ReindexTable(table string, progress ProgressFunc) error {
	for _, meta := range m.IndexesForTable(table) {
		if err := m.RebuildIndex(table, meta.colKey(), progress); err != nil {
			return err
		}
	}
	return nil
}
