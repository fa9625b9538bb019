package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// heartbeatInterval is how often WriteStream emits ": heartbeat" while idle,
// so intermediaries (proxies, browsers) don't time out the connection.
const heartbeatInterval = 15 * time.Second

// WriteStream renders events from fromSeq onward to w as an SSE stream:
// "id: <seq>\ndata: <json>\n\n" per event, ": heartbeat\n\n" comments while
// idle. It runs until ctx is cancelled or a write fails. Clients resume by
// passing the last "id:" they saw back as fromSeq (the Last-Event-ID
// equivalent).
func (m *Manager) WriteStream(ctx context.Context, w io.Writer, fromSeq uint64) error {
	for {
		events, err := m.scanFrom(ListOptions{FromSeq: fromSeq})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(heartbeatInterval):
			}
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return err
			}
			continue
		}
		for _, ev := range events {
			raw, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", ev.Sequence, raw); err != nil {
				return err
			}
			fromSeq = ev.Sequence
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
