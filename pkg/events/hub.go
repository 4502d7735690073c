package events

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind
// before events are dropped for it.
const subscriberBuffer = 16

// EventHub fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type EventHub struct {
	log logrus.FieldLogger

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventHub returns a hub logging through log, or the logrus standard
// logger when log is nil.
func NewEventHub(log logrus.FieldLogger) *EventHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EventHub{log: log, subs: map[chan Event]struct{}{}}
}

// Subscribe registers a new buffered subscription.
func (h *EventHub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
}

// Subscribers returns the number of active subscriptions.
func (h *EventHub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish sends payload to every subscriber and returns how many received it.
func (h *EventHub) Publish(name string, payload any) int {
	if h == nil {
		return 0
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithField("event", name).Warnf("dropping event, payload cannot be encoded: %v", err)
		return 0
	}
	ev := Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs {
		select {
		case ch <- ev:
			delivered++
		default:
			h.log.WithField("event", name).Debug("subscriber is lagging, event dropped")
		}
	}
	return delivered
}
