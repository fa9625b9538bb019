// Package index implements the secondary index manager: seven index
// flavors maintained on (table, column) with identical declare/put/erase/
// rebuild lifecycle and distinct scan semantics.
package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// Flavor identifies one of the seven index families.
type Flavor string

const (
	FlavorEquality Flavor = "equality"
	FlavorComposite Flavor = "composite"
	FlavorRange     Flavor = "range"
	FlavorSparse    Flavor = "sparse"
	FlavorGeo       Flavor = "geo"
	FlavorTTL       Flavor = "ttl"
	FlavorFulltext  Flavor = "fulltext"
)

// Params carries flavor-specific declaration options: TTL seconds,
// fulltext config, geo precision.
type Params struct {
	TTLSeconds    int64          `json:"ttl_seconds,omitempty"`
	GeoPrecision  int            `json:"geo_precision,omitempty"` // hex chars, default 12
	Fulltext      FulltextConfig `json:"fulltext,omitempty"`
}

// Meta is the declared-index metadata record stored at
// "idxmeta:<table>:<col-or-composite>".
type Meta struct {
	Flavor  Flavor   `json:"flavor"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Params  Params   `json:"params"`
}

// colKey returns the metadata key suffix for this index: the single column
// name, or "+"-joined column list for composites.
func (m Meta) colKey() string {
	return strings.Join(m.Columns, "+")
}

// Manager maintains every declared index against a shared kv.Store. It
// caches declared metadata in memory so "hasX" queries never depend on the
// existence of data keys.
type Manager struct {
	store *kv.Store
	log   *slog.Logger

	mu   sync.RWMutex
	meta map[string]Meta // key: table + "\x00" + colKey
}

// NewManager wraps store with a fresh (empty-cache) index manager. Callers
// should call LoadMeta once after construction to populate the cache from
// whatever indexes were previously declared.
func NewManager(store *kv.Store) *Manager {
	return &Manager{
		store: store,
		log:   slog.Default().With("component", "index"),
		meta:  map[string]Meta{},
	}
}

func metaCacheKey(table, colKey string) string { return table + "\x00" + colKey }

// LoadMeta scans idxmeta: and populates the in-memory cache. Call this once
// after opening an existing store.
func (m *Manager) LoadMeta() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ScanPrefix([]byte("idxmeta:"), func(k, v []byte) (bool, error) {
		var meta Meta
		if err := json.Unmarshal(v, &meta); err != nil {
			m.log.Warn("skipping corrupt index metadata", "key", string(k), "err", err)
			return true, nil
		}
		m.meta[metaCacheKey(meta.Table, meta.colKey())] = meta
		return true, nil
	})
}

// DeclareIndex registers a new index and persists its metadata. It does
// not populate data keys; call RebuildIndex afterward to backfill from existing
// primary records.
func (m *Manager) DeclareIndex(table string, columns []string, flavor Flavor, unique bool, params Params) error {
	if table == "" || len(columns) == 0 {
		return fmt.Errorf("%w: table and columns are required", ErrInvalidInput)
	}
	if flavor == FlavorGeo && params.GeoPrecision == 0 {
		params.GeoPrecision = defaultGeoPrecisionHexChars
	}
	meta := Meta{Flavor: flavor, Table: table, Columns: columns, Unique: unique, Params: params}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("index.DeclareIndex: %w", err)
	}
	if err := m.store.Put(keyschema.IndexMeta(table, meta.colKey()), raw); err != nil {
		return fmt.Errorf("index.DeclareIndex: %w", err)
	}
	m.mu.Lock()
	m.meta[metaCacheKey(table, meta.colKey())] = meta
	m.mu.Unlock()
	return nil
}

// DropIndex deletes an index's metadata. Residual data keys are removed
// lazily, by the next RebuildIndex of an index redeclared on the same
// columns.
func (m *Manager) DropIndex(table, colKey string) error {
	if err := m.store.Delete(keyschema.IndexMeta(table, colKey)); err != nil {
		return fmt.Errorf("index.DropIndex: %w", err)
	}
	m.mu.Lock()
	delete(m.meta, metaCacheKey(table, colKey))
	m.mu.Unlock()
	return nil
}

// HasIndex reports whether (table, colKey) has declared metadata, without
// ever consulting data keys.
func (m *Manager) HasIndex(table, colKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.meta[metaCacheKey(table, colKey)]
	return ok
}

// IndexesForTable returns every declared index touching table.
func (m *Manager) IndexesForTable(table string) []Meta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Meta
	for _, meta := range m.meta {
		if meta.Table == table {
			out = append(out, meta)
		}
	}
	return out
}

// indexesTouchingField returns declared indexes whose column set includes
// field (equality/sparse/range/geo/ttl/fulltext all key on a single column;
// composite indexes key on several).
func (m *Manager) indexesTouchingField(table, field string) []Meta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Meta
	for _, meta := range m.meta {
		if meta.Table != table {
			continue
		}
		for _, c := range meta.Columns {
			if c == field {
				out = append(out, meta)
				break
			}
		}
	}
	return out
}

const defaultGeoPrecisionHexChars = 12
