package changefeed

import (
	"bytes"
	"context"
	"testing"
	"time"

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

func TestAppendAllocatesGaplessSequences(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)

	seq1, err := m.Append(Event{Type: EventPut, Key: "users/1"}, 100)
	require.NoError(t, err)
	seq2, err := m.Append(Event{Type: EventPut, Key: "users/2"}, 101)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq1)
	require.Equal(t, uint64(2), seq2)

	latest, err := m.GetLatestSequence()
	require.NoError(t, err)
	require.Equal(t, uint64(2), latest)
}

func TestAppendInTxnSharesCallerTransaction(t *testing.T) {
	store := openTestStore(t)
	txn, err := store.Begin(true)
	require.NoError(t, err)

	seq, err := AppendInTxn(txn, Event{Type: EventTxCommit, Key: "orders/7"}, 200)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
	require.NoError(t, txn.Commit())

	m := NewManager(store)
	events, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "orders/7", events[0].Key)
}

func TestListEventsAppliesFilters(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)

	_, err := m.Append(Event{Type: EventPut, Key: "users/1"}, 1)
	require.NoError(t, err)
	_, err = m.Append(Event{Type: EventDelete, Key: "users/1"}, 2)
	require.NoError(t, err)
	_, err = m.Append(Event{Type: EventPut, Key: "orders/9"}, 3)
	require.NoError(t, err)

	byType, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0, Type: EventPut})
	require.NoError(t, err)
	require.Len(t, byType, 2)
	for _, ev := range byType {
		require.Equal(t, EventPut, ev.Type)
	}

	byPrefix, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0, KeyPrefix: "orders/"})
	require.NoError(t, err)
	require.Len(t, byPrefix, 1)
	require.Equal(t, "orders/9", byPrefix[0].Key)

	limited, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, uint64(1), limited[0].Sequence)

	fromMiddle, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 1})
	require.NoError(t, err)
	require.Len(t, fromMiddle, 2)
	require.Equal(t, uint64(2), fromMiddle[0].Sequence)
}

func TestListEventsLongPollReturnsOnNewEvent(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)

	done := make(chan struct{})
	go func() {
		time.Sleep(75 * time.Millisecond)
		_, _ = m.Append(Event{Type: EventPut, Key: "late/1"}, 1)
		close(done)
	}()

	events, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0, LongPollMs: 2000})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "late/1", events[0].Key)
	<-done
}

func TestListEventsLongPollTimesOutEmpty(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)

	start := time.Now()
	events, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0, LongPollMs: 150})
	require.NoError(t, err)
	require.Empty(t, events)
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestGetStatsCountsAndBytes(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)

	_, err := m.Append(Event{Type: EventPut, Key: "a"}, 1)
	require.NoError(t, err)
	_, err = m.Append(Event{Type: EventPut, Key: "b"}, 2)
	require.NoError(t, err)

	stats, err := m.GetStats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.Count)
	require.Equal(t, uint64(2), stats.LatestSeq)
	require.Positive(t, stats.TotalBytes)
}

func TestClearResetsCounterAndEvents(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)

	_, err := m.Append(Event{Type: EventPut, Key: "a"}, 1)
	require.NoError(t, err)
	require.NoError(t, m.Clear())

	latest, err := m.GetLatestSequence()
	require.NoError(t, err)
	require.Equal(t, uint64(0), latest)

	events, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0})
	require.NoError(t, err)
	require.Empty(t, events)

	seq, err := m.Append(Event{Type: EventPut, Key: "b"}, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
}

func TestDeleteOldEventsRetention(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)

	for i := 0; i < 5; i++ {
		_, err := m.Append(Event{Type: EventPut, Key: "k"}, int64(i))
		require.NoError(t, err)
	}

	deleted, err := m.DeleteOldEvents(3)
	require.NoError(t, err)
	require.Equal(t, 3, deleted)

	remaining, err := m.ListEvents(context.Background(), ListOptions{FromSeq: 0})
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	require.Equal(t, uint64(4), remaining[0].Sequence)
}

func TestWriteStreamRendersSSEFormat(t *testing.T) {
	store := openTestStore(t)
	m := NewManager(store)
	_, err := m.Append(Event{Type: EventPut, Key: "x"}, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	err = m.WriteStream(ctx, &buf, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, buf.String(), "id: 1\n")
	require.Contains(t, buf.String(), `"key":"x"`)
}
