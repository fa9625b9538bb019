package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	opts := DefaultOptions(t.TempDir())
	opts.InMemory = false
	s, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGetDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, "1", string(v))

	require.NoError(t, s.Delete([]byte("a")))
	_, err = s.Get([]byte("a"))
	require.True(t, IsNotFound(err))
}

func TestTxnCommitIsAtomic(t *testing.T) {
	s := openTestStore(t)

	txn, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, txn.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, txn.Commit())

	v1, err := s.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, "v1", string(v1))
	v2, err := s.Get([]byte("k2"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(v2))
}

func TestTxnConflictRetryable(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("x"), []byte("0")))

	t1, err := s.Begin(true)
	require.NoError(t, err)
	_, err = t1.Get([]byte("x")) // establish read dependency
	require.NoError(t, err)

	t2, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, t2.Put([]byte("x"), []byte("1")))
	require.NoError(t, t2.Commit())

	require.NoError(t, t1.Put([]byte("x"), []byte("2")))
	err = t1.Commit()
	require.Error(t, err)
	require.True(t, IsConflict(err))
}

func TestScanPrefix(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("t:a"), []byte("1")))
	require.NoError(t, s.Put([]byte("t:b"), []byte("2")))
	require.NoError(t, s.Put([]byte("u:c"), []byte("3")))

	var keys []string
	err := s.ScanPrefix([]byte("t:"), func(k, v []byte) (bool, error) {
		keys = append(keys, string(k))
		return true, nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"t:a", "t:b"}, keys)
}

func TestScanRangeBoundsAndReverse(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"r:1", "r:2", "r:3", "r:4"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	var fwd []string
	err := s.ScanRange(RangeOptions{
		Prefix: []byte("r:"), Lo: []byte("r:2"), Hi: []byte("r:3"),
		LoInclusive: true, HiInclusive: true,
	}, func(k, v []byte) (bool, error) {
		fwd = append(fwd, string(k))
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"r:2", "r:3"}, fwd)

	var rev []string
	err = s.ScanRange(RangeOptions{Prefix: []byte("r:"), Reverse: true}, func(k, v []byte) (bool, error) {
		rev = append(rev, string(k))
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"r:4", "r:3", "r:2", "r:1"}, rev)
}

func TestCheckpointRestore(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("k"), []byte("v")))

	ckptDir := t.TempDir()
	require.NoError(t, s.Checkpoint(ckptDir))

	newOpts := DefaultOptions(t.TempDir())
	restored, err := Restore(ckptDir, newOpts)
	require.NoError(t, err)
	defer restored.Close()

	v, err := restored.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, "v", string(v))
}
