package index

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/themis-db/themis/internal/entity"
	"github.com/themis-db/themis/internal/keyschema"
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

// putRecord stands in for the not-yet-built write coordinator: read old,
// write primary, apply index mutations, commit as one batch.
func putRecord(t *testing.T, store *kv.Store, mgr *Manager, table, pk string, fields map[string]entity.Value) error {
	t.Helper()
	txn, err := store.Begin(true)
	require.NoError(t, err)

	var old *entity.Entity
	raw, err := txn.Get(keyschema.Primary(table, pk))
	if err == nil {
		old = entity.FromBytes(pk, raw)
	} else if !kv.IsNotFound(err) {
		txn.Discard()
		return err
	}

	newEnt := entity.New(pk)
	for k, v := range fields {
		require.NoError(t, newEnt.Set(k, v))
	}
	blob, err := newEnt.Serialize()
	require.NoError(t, err)

	if err := mgr.ApplyPut(txn, table, pk, old, newEnt); err != nil {
		txn.Discard()
		return err
	}
	if err := txn.Put(keyschema.Primary(table, pk), blob); err != nil {
		txn.Discard()
		return err
	}
	return txn.Commit()
}

func TestSecondaryUniqueScenario(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	require.NoError(t, mgr.DeclareIndex("users", []string{"email"}, FlavorEquality, true, Params{}))

	require.NoError(t, putRecord(t, store, mgr, "users", "u1", map[string]entity.Value{"email": entity.String("a@x")}))

	err := putRecord(t, store, mgr, "users", "u2", map[string]entity.Value{"email": entity.String("a@x")})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUniqueViolation))

	require.NoError(t, putRecord(t, store, mgr, "users", "u1", map[string]entity.Value{"email": entity.String("b@x")}))

	pks, err := mgr.ScanKeysEqual("users", "email", "a@x")
	require.NoError(t, err)
	require.Empty(t, pks)

	pks, err = mgr.ScanKeysEqual("users", "email", "b@x")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, pks)
}

func TestRangeEncodingScenario(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	require.NoError(t, mgr.DeclareIndex("users", []string{"age"}, FlavorRange, false, Params{}))

	for pk, age := range map[string]int64{"u20": 20, "u25": 25, "u30": 30, "u35": 35} {
		require.NoError(t, putRecord(t, store, mgr, "users", pk, map[string]entity.Value{"age": entity.Int(age)}))
	}

	pks, err := mgr.ScanKeysRange("users", "age", RangeQuery{
		Lo: int64(25), Hi: int64(30), LoInclusive: true, HiInclusive: true, Limit: 100,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"u25", "u30"}, pks)

	pks, err = mgr.ScanKeysRange("users", "age", RangeQuery{
		Lo: int64(25), Hi: int64(30), LoInclusive: false, HiInclusive: false, Limit: 100,
	})
	require.NoError(t, err)
	require.Empty(t, pks)

	pks, err = mgr.ScanKeysRange("users", "age", RangeQuery{Reverse: true, Limit: 100})
	require.NoError(t, err)
	require.Equal(t, []string{"u35", "u30", "u25", "u20"}, pks)
}

func TestCompositeIndex(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	require.NoError(t, mgr.DeclareIndex("orders", []string{"region", "status"}, FlavorComposite, false, Params{}))
	require.NoError(t, putRecord(t, store, mgr, "orders", "o1", map[string]entity.Value{
		"region": entity.String("us"), "status": entity.String("open"),
	}))
	require.NoError(t, putRecord(t, store, mgr, "orders", "o2", map[string]entity.Value{
		"region": entity.String("us"), "status": entity.String("closed"),
	}))

	pks, err := mgr.ScanKeysEqualComposite("orders", []string{"region", "status"}, []string{"us", "open"})
	require.NoError(t, err)
	require.Equal(t, []string{"o1"}, pks)
}

func TestSparseHasField(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	require.NoError(t, mgr.DeclareIndex("users", []string{"nickname"}, FlavorSparse, false, Params{}))
	require.NoError(t, putRecord(t, store, mgr, "users", "u1", map[string]entity.Value{"nickname": entity.String("al")}))
	require.NoError(t, putRecord(t, store, mgr, "users", "u2", map[string]entity.Value{}))

	pks, err := mgr.ScanHasField("users", "nickname")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, pks)
}

func TestGeoBoxAndRadius(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	require.NoError(t, mgr.DeclareIndex("places", []string{"loc"}, FlavorGeo, false, Params{GeoPrecision: 12}))
	require.NoError(t, putRecord(t, store, mgr, "places", "p1", map[string]entity.Value{
		"loc_lat": entity.Float(37.7749), "loc_lon": entity.Float(-122.4194),
	}))
	require.NoError(t, putRecord(t, store, mgr, "places", "p2", map[string]entity.Value{
		"loc_lat": entity.Float(40.7128), "loc_lon": entity.Float(-74.0060),
	}))

	pks, err := mgr.ScanGeoBox("places", "loc", 37.0, -123.0, 38.0, -122.0, 12)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, pks)

	pks, err = mgr.ScanGeoRadius("places", "loc", 37.7749, -122.4194, 50, 12)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, pks)
}

func TestTTLSweep(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	require.NoError(t, mgr.DeclareIndex("sessions", []string{"expires_at"}, FlavorTTL, false, Params{}))
	require.NoError(t, putRecord(t, store, mgr, "sessions", "s1", map[string]entity.Value{"expires_at": entity.Int(100)}))
	require.NoError(t, putRecord(t, store, mgr, "sessions", "s2", map[string]entity.Value{"expires_at": entity.Int(9999999999)}))

	erased, err := mgr.CleanupExpiredEntities("sessions", "expires_at", time.Unix(1000, 0))
	require.NoError(t, err)
	require.Equal(t, 1, erased)

	_, err = store.Get(keyschema.Primary("sessions", "s1"))
	require.True(t, kv.IsNotFound(err))
	_, err = store.Get(keyschema.Primary("sessions", "s2"))
	require.NoError(t, err)
}

func TestFulltextAndPhraseQuery(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	cfg := FulltextConfig{CaseFold: true, NormalizeAccents: true, RemoveStopwords: true}
	require.NoError(t, mgr.DeclareIndex("docs", []string{"body"}, FlavorFulltext, false, Params{Fulltext: cfg}))
	require.NoError(t, putRecord(t, store, mgr, "docs", "d1", map[string]entity.Value{"body": entity.String("the quick brown fox")}))
	require.NoError(t, putRecord(t, store, mgr, "docs", "d2", map[string]entity.Value{"body": entity.String("brown quick the fox")}))

	pks, err := mgr.ScanFulltext("docs", "body", "quick brown", false)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"d1", "d2"}, pks)

	pks, err = mgr.ScanFulltext("docs", "body", "quick brown", true)
	require.NoError(t, err)
	require.Equal(t, []string{"d1"}, pks)
}

func TestRebuildIndexIdempotent(t *testing.T) {
	store := openTestStore(t)
	mgr := NewManager(store)

	require.NoError(t, mgr.DeclareIndex("users", []string{"email"}, FlavorEquality, false, Params{}))
	require.NoError(t, putRecord(t, store, mgr, "users", "u1", map[string]entity.Value{"email": entity.String("a@x")}))

	require.NoError(t, mgr.RebuildIndex("users", "email", nil))
	pks, err := mgr.ScanKeysEqual("users", "email", "a@x")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, pks)

	require.NoError(t, mgr.RebuildIndex("users", "email", nil))
	pks, err = mgr.ScanKeysEqual("users", "email", "a@x")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, pks)

	stats, err := mgr.GetIndexStats("users", "email")
	require.NoError(t, err)
	require.Equal(t, 1, stats.EntryCount)
	require.False(t, stats.Unique)
}
