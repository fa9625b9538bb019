package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

const (
	metaFileName   = "meta.txt"
	labelsFileName = "labels.txt"
	indexFileName  = "index.bin"
)

// SaveIndex writes meta.txt (object config), labels.txt (one pk per line,
// line number = HNSW id), and index.bin (each label's normalized vector, in
// the same order). LoadIndex rebuilds the graph from these three files by
// re-adding every vector rather than depending on the ANN library's own
// byte layout, since the vectors alone fully determine the graph.
func (m *Manager) SaveIndex(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vector.SaveIndex: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, err := m.cfg.marshal()
	if err != nil {
		return fmt.Errorf("vector.SaveIndex: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), raw, 0o644); err != nil {
		return fmt.Errorf("vector.SaveIndex: %w", err)
	}

	labelsFile, err := os.Create(filepath.Join(dir, labelsFileName))
	if err != nil {
		return fmt.Errorf("vector.SaveIndex: %w", err)
	}
	defer labelsFile.Close()
	indexFile, err := os.Create(filepath.Join(dir, indexFileName))
	if err != nil {
		return fmt.Errorf("vector.SaveIndex: %w", err)
	}
	defer indexFile.Close()

	labelsW := bufio.NewWriter(labelsFile)
	indexW := bufio.NewWriter(indexFile)
	for id := uint64(0); id < m.nextID; id++ {
		pk, ok := m.idToPK[id]
		if !ok {
			continue // tombstoned
		}
		if _, err := fmt.Fprintln(labelsW, pk); err != nil {
			return fmt.Errorf("vector.SaveIndex: %w", err)
		}
		vec := m.cache[pk]
		if err := binary.Write(indexW, binary.LittleEndian, uint32(len(vec))); err != nil {
			return fmt.Errorf("vector.SaveIndex: %w", err)
		}
		if err := binary.Write(indexW, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("vector.SaveIndex: %w", err)
		}
	}
	if err := labelsW.Flush(); err != nil {
		return fmt.Errorf("vector.SaveIndex: %w", err)
	}
	return indexW.Flush()
}

// LoadIndex restores meta.txt/labels.txt/index.bin into a fresh manager and
// re-persists the config to store, re-inserting every vector into a new ANN
// graph.
func LoadIndex(store *kv.Store, dir string) (*Manager, error) {
	rawCfg, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("vector.LoadIndex: %w", err)
	}
	cfg, err := unmarshalObjectConfig(rawCfg)
	if err != nil {
		return nil, fmt.Errorf("vector.LoadIndex: %w", err)
	}

	labelsFile, err := os.Open(filepath.Join(dir, labelsFileName))
	if err != nil {
		return nil, fmt.Errorf("vector.LoadIndex: %w", err)
	}
	defer labelsFile.Close()
	indexFile, err := os.Open(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("vector.LoadIndex: %w", err)
	}
	defer indexFile.Close()

	m := &Manager{
		store:  store,
		log:    slog.Default().With("component", "vector", "object", cfg.ObjectName),
		cfg:    cfg,
		cache:  map[string][]float32{},
		pkToID: map[string]uint64{},
		idToPK: map[uint64]string{},
	}
	m.ann = newHNSWGraph(cfg.Metric, cfg.EfSearch, cfg.M, cfg.EfConstruction)

	scanner := bufio.NewScanner(labelsFile)
	var id uint64
	for scanner.Scan() {
		pk := scanner.Text()
		var dimLen uint32
		if err := binary.Read(indexFile, binary.LittleEndian, &dimLen); err != nil {
			return nil, fmt.Errorf("vector.LoadIndex: %w", err)
		}
		vec := make([]float32, dimLen)
		if err := binary.Read(indexFile, binary.LittleEndian, &vec); err != nil {
			return nil, fmt.Errorf("vector.LoadIndex: %w", err)
		}
		m.pkToID[pk] = id
		m.idToPK[id] = pk
		m.cache[pk] = vec
		m.ann.Add(id, vec)
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vector.LoadIndex: %w", err)
	}
	m.nextID = id

	if err := store.Put(keyschema.VectorConfig(cfg.ObjectName), rawCfg); err != nil {
		return nil, err
	}
	return m, nil
}

// RebuildFromStorage repopulates the in-memory index from the object's
// primary table alone, ignoring any on-disk meta/labels/index files. Used
// by Open and as the recovery path when persistence files are stale or
// absent.
func (m *Manager) RebuildFromStorage() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ann = newHNSWGraph(m.cfg.Metric, m.cfg.EfSearch, m.cfg.M, m.cfg.EfConstruction)
	m.cache = map[string][]float32{}
	m.pkToID = map[string]uint64{}
	m.idToPK = map[uint64]string{}
	m.nextID = 0

	prefix := keyschema.VectorObjectPrefix(m.cfg.ObjectName)
	return m.store.ScanPrefix(prefix, func(k, v []byte) (bool, error) {
		pk := string(k[len(prefix):])
		ent := entity.FromBytes(pk, v)
		vec, ok, err := m.vectorField(ent, m.cfg.VectorField)
		if err != nil || !ok {
			return true, nil // skip malformed or unset vectors rather than aborting the scan
		}
		m.insertLocked(pk, vec)
		return true, nil
	})
}
