package index

import "github.com/themis-db/themis/internal/keyschema"

// Stats reports entry count, type, unique flag, and type-specific info for
// one declared index.
type Stats struct {
	Table      string
	ColKey     string
	Flavor     Flavor
	Unique     bool
	EntryCount int
	TypeInfo   map[string]any
}

// GetIndexStats walks every data key for (table, colKey) and reports the
// declared metadata alongside the live entry count.
func (m *Manager) GetIndexStats(table, colKey string) (Stats, error) {
	m.mu.RLock()
	meta, ok := m.meta[metaCacheKey(table, colKey)]
	m.mu.RUnlock()
	if !ok {
		return Stats{}, ErrNoSuchIndex
	}

	prefix := dataPrefixFor(meta)
	count := 0
	if err := m.store.ScanPrefix(prefix, func(_, _ []byte) (bool, error) {
		count++
		return true, nil
	}); err != nil {
		return Stats{}, err
	}

	return Stats{
		Table:      table,
		ColKey:     colKey,
		Flavor:     meta.Flavor,
		Unique:     meta.Unique,
		EntryCount: count,
		TypeInfo:   typeInfoFor(meta),
	}, nil
}

func dataPrefixFor(meta Meta) []byte {
	col := meta.colKey()
	switch meta.Flavor {
	case FlavorEquality, FlavorSparse:
		return keyschema.EqualityColPrefix(meta.Table, col)
	case FlavorComposite:
		return keyschema.CompositeColPrefix(meta.Table, meta.Columns)
	case FlavorRange:
		return keyschema.RangeColPrefix(meta.Table, col)
	case FlavorGeo:
		return keyschema.GeoPrefix(meta.Table, col, "")
	case FlavorTTL:
		return keyschema.TTLColPrefix(meta.Table, col)
	case FlavorFulltext:
		return keyschema.FulltextColPrefix(meta.Table, col)
	default:
		return keyschema.IndexMeta(meta.Table, col)
	}
}

func typeInfoFor(meta Meta) map[string]any {
	info := map[string]any{"columns": meta.Columns}
	switch meta.Flavor {
	case FlavorGeo:
		info["geo_precision_hex_chars"] = meta.Params.GeoPrecision
	case FlavorTTL:
		info["ttl_seconds"] = meta.Params.TTLSeconds
	case FlavorFulltext:
		info["fulltext"] = meta.Params.Fulltext
	}
	return info
}
