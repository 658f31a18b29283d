// Package event holds the canonical attendance event and its upload wire form.
package event

import (
	"encoding/json"
	"fmt"
)

// Event is one card swipe. Timestamp is unix seconds; OriginID tags the
// device or site that recorded it.
type Event struct {
	Card      string
	Timestamp int64
	OriginID  int
}

// Triple returns the upload form (card, timestamp, origin_id).
func (e Event) Triple() [3]any {
	return [3]any{e.Card, e.Timestamp, e.OriginID}
}

// MarshalJSON encodes the event as [card, timestamp, origin_id].
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Triple())
}

// UnmarshalJSON decodes the [card, timestamp, origin_id] form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("event must be a JSON array: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("event must have 3 elements, got %d", len(raw))
	}

	var out Event
	if err := json.Unmarshal(raw[0], &out.Card); err != nil {
		return fmt.Errorf("invalid event card: %w", err)
	}
	if err := json.Unmarshal(raw[1], &out.Timestamp); err != nil {
		return fmt.Errorf("invalid event timestamp: %w", err)
	}
	if err := json.Unmarshal(raw[2], &out.OriginID); err != nil {
		return fmt.Errorf("invalid event origin_id: %w", err)
	}

	*e = out
	return nil
}
