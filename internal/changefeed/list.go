package changefeed

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/themis-db/themis/internal/keyschema"
	"github.com/themis-db/themis/internal/kv"
)

// longPollInterval is how often a blocked ListEvents call rechecks for new
// events.
const longPollInterval = 50 * time.Millisecond

// ListOptions filters and bounds one listEvents call.
type ListOptions struct {
	FromSeq    uint64
	Limit      int
	KeyPrefix  string
	Type       EventType // empty means no type filter
	LongPollMs int64
}

// ListEvents seeks to FromSeq+1, applies KeyPrefix/Type filters, and stops
// at Limit. If LongPollMs > 0 and no event is yet available past FromSeq,
// it blocks (respecting ctx) polling every 50ms via backoff.ConstantBackOff
// until one arrives or the deadline passes.
func (m *Manager) ListEvents(ctx context.Context, opts ListOptions) ([]Event, error) {
	events, err := m.scanFrom(opts)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 || opts.LongPollMs <= 0 {
		return events, nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.LongPollMs)*time.Millisecond)
	defer cancel()
	bo := backoff.WithContext(newLongPollBackoff(), pollCtx)

	err = backoff.Retry(func() error {
		events, err = m.scanFrom(opts)
		if err != nil {
			return backoff.Permanent(err)
		}
		if len(events) > 0 {
			return nil
		}
		return errNoEventsYet
	}, bo)
	if err != nil && err != errNoEventsYet {
		if err == context.DeadlineExceeded || pollCtx.Err() != nil {
			return events, nil // timed out with nothing new, not an error
		}
		return nil, err
	}
	return events, nil
}

func newLongPollBackoff() backoff.BackOff {
	return backoff.NewConstantBackOff(longPollInterval)
}

// errNoEventsYet is a sentinel, never surfaced to callers, telling
// backoff.Retry to keep polling.
var errNoEventsYet = errTransient("changefeed: no events yet")

type errTransient string

func (e errTransient) Error() string { return string(e) }

// scanFrom seeks directly to the first event past opts.FromSeq and streams
// forward, applying filters before Limit is checked.
func (m *Manager) scanFrom(opts ListOptions) ([]Event, error) {
	var out []Event
	ro := kv.RangeOptions{
		Prefix:      keyschema.ChangefeedPrefix(),
		Lo:          keyschema.ChangefeedEvent(opts.FromSeq + 1),
		LoInclusive: true,
	}
	err := m.store.ScanRange(ro, func(k, v []byte) (bool, error) {
		ev, perr := unmarshalEvent(v)
		if perr != nil {
			m.log.Warn("skipping corrupt changefeed record", "key", string(k))
			return true, nil
		}
		if opts.KeyPrefix != "" && !strings.HasPrefix(ev.Key, opts.KeyPrefix) {
			return true, nil
		}
		if opts.Type != "" && ev.Type != opts.Type {
			return true, nil
		}
		out = append(out, ev)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			return false, nil
		}
		return true, nil
	})
	return out, err
}
