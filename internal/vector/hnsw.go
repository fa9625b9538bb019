package vector

import (
	"github.com/coder/hnsw"
)

// scored is one search hit: the internal HNSW id and its distance to the
// query.
type scored struct {
	id   uint64
	dist float32
}

// annGraph is the small interface the manager programs against. Its
// methods return no errors; a Manager whose ann is nil serves every
// operation from the brute-force cache instead.
type annGraph interface {
	Add(id uint64, vec []float32)
	Search(query []float32, k int) []scored
	Delete(id uint64) bool
	Len() int
}

// hnswGraph wraps github.com/coder/hnsw's generic Graph behind annGraph.
type hnswGraph struct {
	g *hnsw.Graph[uint64]
}

func newHNSWGraph(m Metric, efSearch, M, efConstruction int) *hnswGraph {
	g := hnsw.NewGraph[uint64]()
	g.M = M
	g.EfSearch = efSearch
	g.Ml = 1 / float64(M)
	switch m {
	case MetricCosine:
		g.Distance = hnsw.CosineDistance
	case MetricDot:
		g.Distance = func(a, b []float32) float32 { return dotDistance(a, b) }
	default:
		g.Distance = hnsw.EuclideanDistance
	}
	_ = efConstruction // coder/hnsw derives construction beam size from Ml/M, not a separate knob
	return &hnswGraph{g: g}
}

func (h *hnswGraph) Add(id uint64, vec []float32) {
	h.g.Add(hnsw.Node[uint64]{Key: id, Value: vec})
}

func (h *hnswGraph) Search(query []float32, k int) []scored {
	nodes := h.g.Search(query, k)
	out := make([]scored, len(nodes))
	for i, n := range nodes {
		out[i] = scored{id: n.Key, dist: h.g.Distance(query, n.Value)}
	}
	return out
}

func (h *hnswGraph) Delete(id uint64) bool { return h.g.Delete(id) }

func (h *hnswGraph) Len() int { return h.g.Len() }
