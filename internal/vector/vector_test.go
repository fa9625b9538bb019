package vector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/themis-db/themis/internal/entity"
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

func newEntityWithVector(pk string, vec []float32) *entity.Entity {
	e := entity.New(pk)
	_ = e.Set("embedding", entity.Vector(vec))
	return e
}

func TestSearchKnnCosineScenario(t *testing.T) {
	// dim=3, COSINE; doc1=[1,0,0], doc2=[0,1,0], doc3=[0.9,0.1,0].
	// searchKnn([1,0,0], k=2) returns {doc1, doc3} with doc1 first.
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 3, MetricCosine)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("doc1", []float32{1, 0, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("doc2", []float32{0, 1, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("doc3", []float32{0.9, 0.1, 0}), "embedding"))

	results, err := m.SearchKnn([]float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "doc1", results[0].PK)
	got := map[string]bool{results[0].PK: true, results[1].PK: true}
	require.True(t, got["doc1"] && got["doc3"])
}

func TestSearchKnnL2Metric(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("points", 2, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("origin", []float32{0, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("near", []float32{1, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("far", []float32{10, 10}), "embedding"))

	results, err := m.SearchKnn([]float32{0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "origin", results[0].PK)
}

func TestSearchKnnDotMetric(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("dotdocs", 2, MetricDot)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("a", []float32{1, 1}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("b", []float32{0, 0}), "embedding"))

	results, err := m.SearchKnn([]float32{1, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].PK)
}

func TestAddEntityDimensionMismatch(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 3, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	err = m.AddEntity(newEntityWithVector("bad", []float32{1, 2}), "embedding")
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestUpdateEntityReplacesVector(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 2, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("doc1", []float32{0, 0}), "embedding"))
	require.NoError(t, m.UpdateEntity(newEntityWithVector("doc1", []float32{5, 5}), "embedding"))
	require.Equal(t, 1, m.Len())

	results, err := m.SearchKnn([]float32{5, 5}, 1, nil)
	require.NoError(t, err)
	require.Equal(t, "doc1", results[0].PK)
	require.InDelta(t, 0, results[0].Distance, 1e-6)
}

func TestRemoveByPkTombstones(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 2, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("doc1", []float32{1, 1}), "embedding"))
	require.NoError(t, m.RemoveByPk("doc1"))
	require.Equal(t, 0, m.Len())

	err = m.RemoveByPk("doc1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchKnnBruteForceFallback(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 2, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)
	m.ann = nil // force brute-force path

	require.NoError(t, m.AddEntity(newEntityWithVector("doc1", []float32{0, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("doc2", []float32{3, 4}), "embedding"))

	results, err := m.SearchKnn([]float32{0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "doc1", results[0].PK)
	require.Equal(t, "doc2", results[1].PK)
}

func TestSearchKnnFilteredIntersectsAttrFilters(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 2, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("doc1", []float32{0, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("doc2", []float32{0.1, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("doc3", []float32{0.2, 0}), "embedding"))

	resolve := func(col, val string) ([]string, error) {
		if col == "status" && val == "published" {
			return []string{"doc1", "doc3"}, nil
		}
		return nil, nil
	}

	results, err := m.SearchKnnFiltered([]float32{0, 0}, 2, resolve, map[string]string{"status": "published"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NotEqual(t, "doc2", r.PK)
	}
}

func TestAddEntitiesBatchAtomicity(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 2, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	entities := []*entity.Entity{
		newEntityWithVector("doc1", []float32{0, 0}),
		newEntityWithVector("doc2", []float32{1, 1}),
		newEntityWithVector("doc3", []float32{2, 2}),
	}
	require.NoError(t, m.AddEntitiesBatch(entities, "embedding"))
	require.Equal(t, 3, m.Len())
}

func TestSaveAndLoadIndexRoundTrip(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 2, MetricCosine)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("doc1", []float32{1, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("doc2", []float32{0, 1}), "embedding"))

	want, err := m.SearchKnn([]float32{1, 0}, 2, nil)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "snapshot")
	require.NoError(t, m.SaveIndex(dir))

	loaded, err := LoadIndex(store, dir)
	require.NoError(t, err)
	got, err := loaded.SearchKnn([]float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRebuildFromStoragePopulatesFromPrimaryTable(t *testing.T) {
	store := openTestStore(t)
	cfg := DefaultObjectConfig("docs", 2, MetricL2)
	m, err := Init(store, cfg)
	require.NoError(t, err)

	require.NoError(t, m.AddEntity(newEntityWithVector("doc1", []float32{0, 0}), "embedding"))
	require.NoError(t, m.AddEntity(newEntityWithVector("doc2", []float32{5, 5}), "embedding"))

	fresh, err := Open(store, "docs")
	require.NoError(t, err)
	require.Equal(t, 2, fresh.Len())

	results, err := fresh.SearchKnn([]float32{0, 0}, 1, nil)
	require.NoError(t, err)
	require.Equal(t, "doc1", results[0].PK)
}
