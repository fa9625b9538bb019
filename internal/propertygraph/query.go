package propertygraph

import (
	"github.com/themis-db/themis/internal/graph"
	"github.com/themis-db/themis/internal/keyschema"
)

// GetEdgesByType returns every edge of edgeType in graphID, resolved to full
// edge records.
func (m *Manager) GetEdgesByType(graphID, edgeType string) ([]graph.Edge, error) {
	var eids []string
	err := m.store.ScanPrefix(keyschema.EdgeTypePrefix(graphID, edgeType), func(k, _ []byte) (bool, error) {
		eids = append(eids, lastColonSegment(k))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	edges := make([]graph.Edge, 0, len(eids))
	for _, eid := range eids {
		e, err := m.edges.GetEdge(eid)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// GetTypedOutEdges returns from's out-neighbors restricted to edgeType.
func (m *Manager) GetTypedOutEdges(graphID, from, edgeType string) ([]graph.Neighbor, error) {
	return m.edges.OutNeighborsByType(graphID, from, edgeType)
}

// PatternKind selects what a FederatedPattern resolves against.
type PatternKind string

const (
	PatternNode PatternKind = "node"
	PatternEdge PatternKind = "edge"
)

// FederatedPattern names one (graph, label-or-type) lookup to resolve
// independently of the others.
type FederatedPattern struct {
	GraphID     string
	LabelOrType string
	Kind        PatternKind
}

// FederatedResult pairs a pattern with the keys it resolved to: pks for
// PatternNode, eids for PatternEdge.
type FederatedResult struct {
	Pattern FederatedPattern
	Keys    []string
}

// FederatedQuery independently resolves each pattern and concatenates the
// results. A pattern missing GraphID or LabelOrType is rejected outright
// rather than silently matching everything.
func (m *Manager) FederatedQuery(patterns []FederatedPattern) ([]FederatedResult, error) {
	results := make([]FederatedResult, 0, len(patterns))
	for _, p := range patterns {
		if p.GraphID == "" || p.LabelOrType == "" {
			return nil, ErrInvalidPattern
		}
		var keys []string
		var err error
		switch p.Kind {
		case PatternEdge:
			err = m.store.ScanPrefix(keyschema.EdgeTypePrefix(p.GraphID, p.LabelOrType), func(k, _ []byte) (bool, error) {
				keys = append(keys, lastColonSegment(k))
				return true, nil
			})
		default:
			keys, err = m.GetNodesByLabel(p.GraphID, p.LabelOrType)
		}
		if err != nil {
			return nil, err
		}
		results = append(results, FederatedResult{Pattern: p, Keys: keys})
	}
	return results, nil
}
