package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/themis-db/themis/internal/kv"
)

func openTestStore(t *testing.T) *kv.Store {
	t.Helper()
	opts := kv.DefaultOptions(t.TempDir())
	s, err := kv.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddEdgeAndAdjacency(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	e, err := mgr.AddEdge("g1", Edge{From: "a", To: "b", Type: "FOLLOWS"})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)

	out, err := mgr.OutNeighbors("g1", "a")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "b", out[0].Node)

	in, err := mgr.InNeighbors("g1", "b")
	require.NoError(t, err)
	require.Len(t, in, 1)
	require.Equal(t, "a", in[0].Node)

	require.NoError(t, mgr.DeleteEdge("g1", e.ID))
	out, err = mgr.OutNeighbors("g1", "a")
	require.NoError(t, err)
	require.Empty(t, out)

	// deleting an already-deleted edge is a no-op
	require.NoError(t, mgr.DeleteEdge("g1", e.ID))
}

func TestDijkstraShortestPathWithTypeFilter(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	_, err := mgr.AddEdge("g1", Edge{ID: "e1", From: "a", To: "b", Type: "FOLLOWS", Weight: 1})
	require.NoError(t, err)
	_, err = mgr.AddEdge("g1", Edge{ID: "e2", From: "b", To: "c", Type: "FOLLOWS", Weight: 1})
	require.NoError(t, err)
	_, err = mgr.AddEdge("g1", Edge{ID: "e3", From: "a", To: "d", Type: "LIKES", Weight: 1})
	require.NoError(t, err)
	_, err = mgr.AddEdge("g1", Edge{ID: "e4", From: "d", To: "c", Type: "LIKES", Weight: 1})
	require.NoError(t, err)

	path, cost, err := mgr.Dijkstra("g1", "a", "c", "FOLLOWS")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, path)
	require.Equal(t, 2.0, cost)

	path, cost, err = mgr.Dijkstra("g1", "a", "c", "LIKES")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "d", "c"}, path)
	require.Equal(t, 2.0, cost)

	_, cost, err = mgr.Dijkstra("g1", "a", "c", "")
	require.NoError(t, err)
	require.Equal(t, 2.0, cost)
}

func TestBFSRespectsMaxDepthAndTypeFilter(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	_, err := mgr.AddEdge("g1", Edge{From: "a", To: "b", Type: "FOLLOWS"})
	require.NoError(t, err)
	_, err = mgr.AddEdge("g1", Edge{From: "b", To: "c", Type: "FOLLOWS"})
	require.NoError(t, err)

	order, err := mgr.BFS("g1", "a", 1, "")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, order)

	order, err = mgr.BFS("g1", "a", 5, "")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestDijkstraNoPath(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)
	_, err := mgr.AddEdge("g1", Edge{From: "a", To: "b"})
	require.NoError(t, err)

	_, _, err = mgr.Dijkstra("g1", "a", "z", "")
	require.ErrorIs(t, err, ErrNoSuchPath)
}

func TestRebuildTopologyMatchesScanResults(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)
	_, err := mgr.AddEdge("g1", Edge{From: "a", To: "b"})
	require.NoError(t, err)

	scanned, err := mgr.OutNeighbors("g1", "a")
	require.NoError(t, err)

	require.NoError(t, mgr.RebuildTopology())
	cached, err := mgr.OutNeighbors("g1", "a")
	require.NoError(t, err)

	require.Equal(t, scanned, cached)
}

func TestAggregateEdgePropertyInTimeRange(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	from1, to1 := int64(0), int64(1000)
	from2, to2 := int64(500), int64(2000)
	_, err := mgr.AddEdge("g1", Edge{From: "a", To: "b", Weight: 2, ValidFrom: &from1, ValidTo: &to1})
	require.NoError(t, err)
	_, err = mgr.AddEdge("g1", Edge{From: "b", To: "c", Weight: 4, ValidFrom: &from2, ValidTo: &to2})
	require.NoError(t, err)

	sum, err := mgr.AggregateEdgePropertyInTimeRange("weight", AggSum, 0, 2000, false, "")
	require.NoError(t, err)
	require.Equal(t, 6.0, sum)

	count, err := mgr.AggregateEdgePropertyInTimeRange("weight", AggCount, 0, 2000, false, "")
	require.NoError(t, err)
	require.Equal(t, 2.0, count)

	stats, err := mgr.GetTemporalStats(0, 2000, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.EdgeCount)
	require.Equal(t, 2, stats.BoundedEdgeCount)
}
