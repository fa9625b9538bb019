// Package graph implements the graph index: edge storage, adjacency
// maintenance, and BFS/Dijkstra/A* traversals over a shared kv.Store.
package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// Edge is the denormalized edge record stored at "edge:<eid>". ValidFrom/
// ValidTo are epoch milliseconds; nil means unbounded.
type Edge struct {
	ID        string  `json:"id"`
	From      string  `json:"_from"`
	To        string  `json:"_to"`
	Type      string  `json:"_type,omitempty"`
	Weight    float64 `json:"_weight,omitempty"`
	ValidFrom *int64  `json:"valid_from,omitempty"`
	ValidTo   *int64  `json:"valid_to,omitempty"`
}

func (e Edge) weightOrDefault() float64 {
	if e.Weight == 0 {
		return 1.0
	}
	return e.Weight
}

// Manager maintains edges and their adjacency indexes for one or more named
// graphs sharing a kv.Store.
type Manager struct {
	store *kv.Store
	log   *slog.Logger
	topo  *topology
}

// NewManager wraps store with a fresh graph manager. The in-memory topology
// is not loaded until RebuildTopology is called.
func NewManager(store *kv.Store) *Manager {
	return &Manager{
		store: store,
		log:   slog.Default().With("component", "graph"),
	}
}

// AddEdge writes the edge record plus its out/in adjacency entries (and, if
// typed, its type-index entry) in one batch. A blank e.ID is replaced with
// a freshly generated id.
func (m *Manager) AddEdge(graphID string, e Edge) (Edge, error) {
	if e.ID == "" {
		id, err := newEdgeID()
		if err != nil {
			return Edge{}, fmt.Errorf("graph.AddEdge: %w", err)
		}
		e.ID = id
	}
	if e.From == "" || e.To == "" {
		return Edge{}, fmt.Errorf("graph.AddEdge: _from and _to are required")
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return Edge{}, fmt.Errorf("graph.AddEdge: %w", err)
	}

	batch, err := m.store.NewBatch()
	if err != nil {
		return Edge{}, err
	}
	if err := batch.Put(keyschema.Edge(e.ID), raw); err != nil {
		batch.Discard()
		return Edge{}, err
	}
	if err := batch.Put(keyschema.AdjacencyOut(graphID, e.From, e.ID), []byte(e.To)); err != nil {
		batch.Discard()
		return Edge{}, err
	}
	if err := batch.Put(keyschema.AdjacencyIn(graphID, e.To, e.ID), []byte(e.From)); err != nil {
		batch.Discard()
		return Edge{}, err
	}
	if e.Type != "" {
		if err := batch.Put(keyschema.EdgeType(graphID, e.Type, e.ID), nil); err != nil {
			batch.Discard()
			return Edge{}, err
		}
	}
	if err := batch.Commit(); err != nil {
		return Edge{}, err
	}

	if m.topo != nil {
		m.topo.addEdge(graphID, e)
	}
	return e, nil
}

// AddEdgesBatch adds every edge in one shared write batch.
func (m *Manager) AddEdgesBatch(graphID string, edges []Edge) ([]Edge, error) {
	batch, err := m.store.NewBatch()
	if err != nil {
		return nil, err
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		if e.ID == "" {
			id, err := newEdgeID()
			if err != nil {
				batch.Discard()
				return nil, fmt.Errorf("graph.AddEdgesBatch: %w", err)
			}
			e.ID = id
		}
		raw, err := json.Marshal(e)
		if err != nil {
			batch.Discard()
			return nil, err
		}
		if err := batch.Put(keyschema.Edge(e.ID), raw); err != nil {
			batch.Discard()
			return nil, err
		}
		if err := batch.Put(keyschema.AdjacencyOut(graphID, e.From, e.ID), []byte(e.To)); err != nil {
			batch.Discard()
			return nil, err
		}
		if err := batch.Put(keyschema.AdjacencyIn(graphID, e.To, e.ID), []byte(e.From)); err != nil {
			batch.Discard()
			return nil, err
		}
		if e.Type != "" {
			if err := batch.Put(keyschema.EdgeType(graphID, e.Type, e.ID), nil); err != nil {
				batch.Discard()
				return nil, err
			}
		}
		out[i] = e
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	if m.topo != nil {
		for _, e := range out {
			m.topo.addEdge(graphID, e)
		}
	}
	return out, nil
}

// GetEdge reads and deserializes the edge record for eid.
func (m *Manager) GetEdge(eid string) (Edge, error) {
	raw, err := m.store.Get(keyschema.Edge(eid))
	if err != nil {
		if kv.IsNotFound(err) {
			return Edge{}, ErrEdgeNotFound
		}
		return Edge{}, err
	}
	var e Edge
	if err := json.Unmarshal(raw, &e); err != nil {
		return Edge{}, fmt.Errorf("graph.GetEdge: %w", err)
	}
	return e, nil
}

// DeleteEdge reads the edge to recover its endpoints and type, then removes
// the record and all adjacency entries in one batch. Deleting a missing
// edge is a no-op.
func (m *Manager) DeleteEdge(graphID, eid string) error {
	e, err := m.GetEdge(eid)
	if err != nil {
		if err == ErrEdgeNotFound {
			return nil
		}
		return err
	}

	batch, err := m.store.NewBatch()
	if err != nil {
		return err
	}
	if err := batch.Delete(keyschema.Edge(eid)); err != nil {
		batch.Discard()
		return err
	}
	if err := batch.Delete(keyschema.AdjacencyOut(graphID, e.From, eid)); err != nil {
		batch.Discard()
		return err
	}
	if err := batch.Delete(keyschema.AdjacencyIn(graphID, e.To, eid)); err != nil {
		batch.Discard()
		return err
	}
	if e.Type != "" {
		if err := batch.Delete(keyschema.EdgeType(graphID, e.Type, eid)); err != nil {
			batch.Discard()
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	if m.topo != nil {
		m.topo.deleteEdge(graphID, e)
	}
	return nil
}
