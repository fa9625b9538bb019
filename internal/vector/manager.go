package vector

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// Result is one searchKnn hit.
type Result struct {
	PK       string
	Distance float32
}

// Manager owns one vector object's HNSW graph (or brute-force fallback),
// pk<->internal-id bookkeeping, and the re-ranking cache.
type Manager struct {
	store *kv.Store
	log   *slog.Logger

	mu     sync.RWMutex
	cfg    ObjectConfig
	ann    annGraph // nil means HNSW unavailable; every op falls back to bruteForce
	cache  map[string][]float32
	pkToID map[string]uint64
	idToPK map[uint64]string
	nextID uint64
}

// Init creates (or reopens) the manager for one vector object with cfg,
// persisting cfg to "config:vector:<objectName>". A vector object must be
// configured this way before any entity can be added to it.
func Init(store *kv.Store, cfg ObjectConfig) (*Manager, error) {
	raw, err := cfg.marshal()
	if err != nil {
		return nil, fmt.Errorf("vector.Init: %w", err)
	}
	if err := store.Put(keyschema.VectorConfig(cfg.ObjectName), raw); err != nil {
		return nil, err
	}
	m := &Manager{
		store:  store,
		log:    slog.Default().With("component", "vector", "object", cfg.ObjectName),
		cfg:    cfg,
		cache:  map[string][]float32{},
		pkToID: map[string]uint64{},
		idToPK: map[uint64]string{},
	}
	m.ann = newHNSWGraph(cfg.Metric, cfg.EfSearch, cfg.M, cfg.EfConstruction)
	return m, nil
}

// Open reopens an existing vector object by reading its persisted config
// and rebuilding the in-memory index from primary storage.
func Open(store *kv.Store, objectName string) (*Manager, error) {
	raw, err := store.Get(keyschema.VectorConfig(objectName))
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrNoSuchObject
		}
		return nil, err
	}
	cfg, err := unmarshalObjectConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("vector.Open: %w", err)
	}
	m := &Manager{
		store:  store,
		log:    slog.Default().With("component", "vector", "object", objectName),
		cfg:    cfg,
		cache:  map[string][]float32{},
		pkToID: map[string]uint64{},
		idToPK: map[uint64]string{},
	}
	m.ann = newHNSWGraph(cfg.Metric, cfg.EfSearch, cfg.M, cfg.EfConstruction)
	if err := m.RebuildFromStorage(); err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the object's current configuration.
func (m *Manager) Config() ObjectConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// vectorField reads e's configured vector field, erroring with
// ErrDimensionMismatch if present but wrong-length.
func (m *Manager) vectorField(e *entity.Entity, field string) ([]float32, bool, error) {
	v, ok, err := e.Get(field)
	if err != nil || !ok {
		return nil, ok, err
	}
	vec, isVec := v.AsVector()
	if !isVec {
		return nil, false, nil
	}
	if len(vec) != m.cfg.Dim {
		return nil, false, fmt.Errorf("%w: object %q expects dim %d, got %d", ErrDimensionMismatch, m.cfg.ObjectName, m.cfg.Dim, len(vec))
	}
	return vec, true, nil
}

// AddEntity serializes e to the object's primary table and, if its
// vectorField is well-formed, inserts it into the ANN graph (or brute-force
// cache) under a freshly allocated internal id.
func (m *Manager) AddEntity(e *entity.Entity, vectorField string) error {
	vec, ok, err := m.vectorField(e, vectorField)
	if err != nil {
		return err
	}

	raw, err := e.Serialize()
	if err != nil {
		return fmt.Errorf("vector.AddEntity: %w", err)
	}
	if err := m.store.Put(keyschema.VectorObject(m.cfg.ObjectName, e.PK()), raw); err != nil {
		return err
	}
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(e.PK(), vec)
	return nil
}

// insertLocked assumes mu is held. A pk already present is replaced in
// place, reusing its existing internal id.
func (m *Manager) insertLocked(pk string, vec []float32) {
	norm := normalize(m.cfg.Metric, vec)
	id, existing := m.pkToID[pk]
	if existing {
		if m.ann != nil {
			m.ann.Delete(id)
		}
	} else {
		id = m.nextID
		m.nextID++
		m.pkToID[pk] = id
		m.idToPK[id] = pk
	}
	if m.ann != nil {
		m.ann.Add(id, norm)
	}
	m.cache[pk] = norm
}

// AddEntitiesBatch adds every entity's vector under one logical operation:
// all primary writes go into one kv write batch committed once, and the
// in-memory structures are then updated under a single lock acquisition to
// avoid lock churn.
func (m *Manager) AddEntitiesBatch(entities []*entity.Entity, vectorField string) error {
	batch, err := m.store.NewBatch()
	if err != nil {
		return err
	}
	type pending struct {
		pk  string
		vec []float32
	}
	var toInsert []pending
	for _, e := range entities {
		vec, ok, err := m.vectorField(e, vectorField)
		if err != nil {
			batch.Discard()
			return err
		}
		raw, err := e.Serialize()
		if err != nil {
			batch.Discard()
			return fmt.Errorf("vector.AddEntitiesBatch: %w", err)
		}
		if err := batch.Put(keyschema.VectorObject(m.cfg.ObjectName, e.PK()), raw); err != nil {
			batch.Discard()
			return err
		}
		if ok {
			toInsert = append(toInsert, pending{pk: e.PK(), vec: vec})
		}
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range toInsert {
		m.insertLocked(p.pk, p.vec)
	}
	return nil
}

// UpdateEntity is remove+add treated as a single logical operation.
func (m *Manager) UpdateEntity(e *entity.Entity, vectorField string) error {
	if err := m.RemoveByPk(e.PK()); err != nil && err != ErrNotFound {
		return err
	}
	return m.AddEntity(e, vectorField)
}

// RemoveByPk deletes the primary record and tombstones the HNSW id; the
// cache entry is removed too.
func (m *Manager) RemoveByPk(pk string) error {
	if err := m.store.Delete(keyschema.VectorObject(m.cfg.ObjectName, pk)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.pkToID[pk]
	if !ok {
		return ErrNotFound
	}
	if m.ann != nil {
		m.ann.Delete(id)
	}
	delete(m.pkToID, pk)
	delete(m.idToPK, id)
	delete(m.cache, pk)
	return nil
}

// Len returns the number of live (non-tombstoned) vectors.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
