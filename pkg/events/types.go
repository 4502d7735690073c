package events

import "encoding/json"

// Event name constants
const (
	SignificanceComputed = "significance.computed"
	ModeChanged          = "mode.changed"
	ConfigChanged        = "config.changed"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// SignificanceComputedEvent is the typed payload for significance.computed.
type SignificanceComputedEvent struct {
	ID              string  `json:"id"`
	Species         string  `json:"species"`
	Variant         string  `json:"variant"`
	Mode            string  `json:"mode"`
	Computed        float64 `json:"computed"`
	Applied         float64 `json:"applied"`
	OverrideApplied bool    `json:"overrideApplied"`
	Ts              int64   `json:"ts"`
}

// ModeChangedEvent is the typed payload for mode.changed.
type ModeChangedEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
	Ts   int64  `json:"ts"`
}

// ConfigChangedEvent is the typed payload for config.changed. Reason is
// "reload" after SIGHUP, or the API path that changed it.
type ConfigChangedEvent struct {
	Reason string `json:"reason"`
	Ts     int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
//	payload, err := events.DecodeAs[events.ModeChangedEvent](ev)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
