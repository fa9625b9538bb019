package graph

import "github.com/themis-db/themis/internal/keyschema"

// Neighbor is one adjacency hop: the edge that was traversed and the node
// reached.
type Neighbor struct {
	EdgeID string
	Node   string
}

// OutNeighbors returns every (eid, to) pair reachable from `from` via a
// single out-edge, using the in-memory topology when loaded, else a
// prefix scan.
func (m *Manager) OutNeighbors(graphID, from string) ([]Neighbor, error) {
	if m.topo != nil {
		return m.topo.outNeighbors(graphID, from), nil
	}
	var out []Neighbor
	err := m.store.ScanPrefix(keyschema.AdjacencyOutPrefix(graphID, from), func(k, v []byte) (bool, error) {
		out = append(out, Neighbor{EdgeID: lastSegment(k), Node: string(v)})
		return true, nil
	})
	return out, err
}

// InNeighbors is OutNeighbors' mirror over "graph:in:".
func (m *Manager) InNeighbors(graphID, to string) ([]Neighbor, error) {
	if m.topo != nil {
		return m.topo.inNeighbors(graphID, to), nil
	}
	var out []Neighbor
	err := m.store.ScanPrefix(keyschema.AdjacencyInPrefix(graphID, to), func(k, v []byte) (bool, error) {
		out = append(out, Neighbor{EdgeID: lastSegment(k), Node: string(v)})
		return true, nil
	})
	return out, err
}

// OutNeighborsByType is OutNeighbors filtered to edges of typeFilter; an
// empty typeFilter returns every out-neighbor.
func (m *Manager) OutNeighborsByType(graphID, from, typeFilter string) ([]Neighbor, error) {
	return m.filteredNeighbors(graphID, from, typeFilter)
}

func lastSegment(key []byte) string {
	i := len(key) - 1
	for ; i >= 0; i-- {
		if key[i] == ':' {
			break
		}
	}
	return string(key[i+1:])
}
