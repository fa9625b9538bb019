// Package changefeed implements an append-only, strictly ordered log of
// committed mutations: gapless sequence allocation, filtered listing,
// long-poll, and SSE-style stream rendering.
package changefeed

import "encoding/json"

// EventType classifies what kind of mutation an event records.
type EventType string

const (
	EventPut        EventType = "PUT"
	EventDelete     EventType = "DELETE"
	EventTxCommit   EventType = "TX_COMMIT"
	EventTxRollback EventType = "TX_ROLLBACK"
)

// Event is one changefeed record, JSON-encoded under
// "changefeed:<20-digit zero-padded sequence>".
type Event struct {
	Sequence    uint64            `json:"sequence"`
	Type        EventType         `json:"type"`
	Key         string            `json:"key"`
	Value       json.RawMessage   `json:"value,omitempty"`
	TimestampMs int64             `json:"timestamp_ms"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (e Event) marshal() ([]byte, error) { return json.Marshal(e) }

func unmarshalEvent(raw []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
