// Package events fans committed dispatch events out to live subscribers and
// an optional external sink.
package events

import (
	"sync"

	"freshdock/metrics"
	"freshdock/models"
	"freshdock/types"

	"go.uber.org/zap"
)

// Sink receives every published event after local delivery.
type Sink interface {
	Enqueue(events ...models.DispatchEvent)
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[types.SnowflakeID]map[uint64]chan models.DispatchEvent
	nextID uint64
	buffer int
	sink   Sink
	log    *zap.Logger
}

func NewHub(buffer int, sink Sink, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		subs:   make(map[types.SnowflakeID]map[uint64]chan models.DispatchEvent),
		buffer: buffer,
		sink:   sink,
		log:    log,
	}
}

// Subscribe returns a channel of events for one dispatch and a function that
// ends the subscription and closes the channel. Calling it twice is safe.
func (h *Hub) Subscribe(dispatchID types.SnowflakeID) (<-chan models.DispatchEvent, func()) {
	ch := make(chan models.DispatchEvent, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[dispatchID] == nil {
		h.subs[dispatchID] = make(map[uint64]chan models.DispatchEvent)
	}
	h.subs[dispatchID][id] = ch
	h.mu.Unlock()
	metrics.StreamSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[dispatchID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(h.subs, dispatchID)
				}
			}
			close(ch)
			h.mu.Unlock()
			metrics.StreamSubscribers.Dec()
		})
	}
}

// Publish never blocks. A subscriber whose buffer is full misses the event
// and is expected to refetch the timeline.
func (h *Hub) Publish(events ...models.DispatchEvent) {
	h.mu.RLock()
	for _, ev := range events {
		for _, ch := range h.subs[ev.DispatchID] {
			select {
			case ch <- ev:
			default:
				h.log.Warn("event subscriber lagging, dropping event",
					zap.String("dispatch_id", ev.DispatchID.String()),
					zap.String("event_id", ev.ID.String()))
			}
		}
	}
	h.mu.RUnlock()

	if h.sink != nil {
		h.sink.Enqueue(events...)
	}
}

func (h *Hub) Subscribers(dispatchID types.SnowflakeID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[dispatchID])
}
