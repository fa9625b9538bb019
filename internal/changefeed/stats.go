package changefeed

import "github.com/themis-db/themis/internal/keyschema"

// Stats summarizes the current changefeed: event count, latest sequence,
// and total on-disk byte size of event records (keys+values).
type Stats struct {
	Count      int
	LatestSeq  uint64
	TotalBytes int64
}

// GetStats scans the full changefeed once, tallying count and byte size;
// LatestSeq comes from the counter so it's accurate even with no events
// retained (e.g. right after Clear).
func (m *Manager) GetStats() (Stats, error) {
	var stats Stats
	err := m.store.ScanPrefix(keyschema.ChangefeedPrefix(), func(k, v []byte) (bool, error) {
		stats.Count++
		stats.TotalBytes += int64(len(k) + len(v))
		return true, nil
	})
	if err != nil {
		return Stats{}, err
	}
	latest, err := m.GetLatestSequence()
	if err != nil {
		return Stats{}, err
	}
	stats.LatestSeq = latest
	return stats, nil
}
