// Package propertygraph layers node labels and edge types over
// internal/graph's plain adjacency structure: multiple named graphs sharing
// one store, each node carrying zero or more labels, each edge optionally
// carrying a type, and federated queries spanning graphs.
package propertygraph

import (
	"encoding/json"
	"fmt"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/graph"
	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// Node is a labeled vertex living at "node:<graphID>:<pk>".
type Node struct {
	PK     string                  `json:"pk"`
	Labels []string                `json:"labels,omitempty"`
	Fields map[string]entity.Value `json:"fields,omitempty"`
}

// Manager maintains node/label bookkeeping on top of a graph.Manager sharing
// the same kv.Store.
type Manager struct {
	store *kv.Store
	edges *graph.Manager
}

// NewManager wraps store with a fresh property-graph manager.
func NewManager(store *kv.Store) *Manager {
	return &Manager{store: store, edges: graph.NewManager(store)}
}

// Edges exposes the underlying edge/adjacency manager for callers that need
// BFS/Dijkstra/A* or aggregation directly.
func (m *Manager) Edges() *graph.Manager { return m.edges }

// AddNode stores the node record and one label entry per label in a single
// batch.
func (m *Manager) AddNode(graphID string, n Node) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("propertygraph.AddNode: %w", err)
	}

	batch, err := m.store.NewBatch()
	if err != nil {
		return err
	}
	if err := batch.Put(keyschema.Node(graphID, n.PK), raw); err != nil {
		batch.Discard()
		return err
	}
	for _, label := range n.Labels {
		if err := batch.Put(keyschema.NodeLabel(graphID, label, n.PK), nil); err != nil {
			batch.Discard()
			return err
		}
	}
	return batch.Commit()
}

// AddNodesBatch adds every node in one shared write batch.
func (m *Manager) AddNodesBatch(graphID string, nodes []Node) error {
	batch, err := m.store.NewBatch()
	if err != nil {
		return err
	}
	for _, n := range nodes {
		raw, err := json.Marshal(n)
		if err != nil {
			batch.Discard()
			return fmt.Errorf("propertygraph.AddNodesBatch: %w", err)
		}
		if err := batch.Put(keyschema.Node(graphID, n.PK), raw); err != nil {
			batch.Discard()
			return err
		}
		for _, label := range n.Labels {
			if err := batch.Put(keyschema.NodeLabel(graphID, label, n.PK), nil); err != nil {
				batch.Discard()
				return err
			}
		}
	}
	return batch.Commit()
}

// GetNode reads and deserializes the node record for pk.
func (m *Manager) GetNode(graphID, pk string) (Node, error) {
	raw, err := m.store.Get(keyschema.Node(graphID, pk))
	if err != nil {
		if kv.IsNotFound(err) {
			return Node{}, ErrNodeNotFound
		}
		return Node{}, err
	}
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return Node{}, fmt.Errorf("propertygraph.GetNode: %w", err)
	}
	return n, nil
}

// ListGraphs discovers every distinct graph id by scanning node keys.
func (m *Manager) ListGraphs() ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	err := m.store.ScanPrefix(keyschema.AllNodesPrefix(), func(k, _ []byte) (bool, error) {
		graphID := nodeKeyGraphID(k)
		if graphID != "" && !seen[graphID] {
			seen[graphID] = true
			ids = append(ids, graphID)
		}
		return true, nil
	})
	return ids, err
}

// nodeKeyGraphID extracts <graphID> from a "node:<graphID>:<pk>" key.
func nodeKeyGraphID(k []byte) string {
	s := string(k)
	start := len("node:")
	if start >= len(s) {
		return ""
	}
	end := start
	for end < len(s) && s[end] != ':' {
		end++
	}
	return s[start:end]
}
