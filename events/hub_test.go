package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"freshdock/models"
	"freshdock/types"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func event(dispatch types.SnowflakeID, kind models.EventType) models.DispatchEvent {
	ev := models.NewEvent(dispatch, kind, models.AnonymousActor(), nil)
	ev.ID = types.SnowflakeID(time.Now().UnixNano())
	ev.CreatedAt = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	return ev
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.DispatchEvent
}

func (s *recordingSink) Enqueue(events ...models.DispatchEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func TestHubRoutesByDispatch(t *testing.T) {
	sink := &recordingSink{}
	hub := NewHub(4, sink, zap.NewNop())

	a, cancelA := hub.Subscribe(1)
	b, cancelB := hub.Subscribe(2)
	defer cancelB()
	assert.Equal(t, 1, hub.Subscribers(1))

	hub.Publish(event(1, models.EventArrived), event(2, models.EventReceived))

	got := <-a
	assert.Equal(t, models.EventArrived, got.EventType)
	got = <-b
	assert.Equal(t, models.EventReceived, got.EventType)
	assert.Len(t, sink.events, 2)

	cancelA()
	cancelA()
	assert.Zero(t, hub.Subscribers(1))
	_, open := <-a
	assert.False(t, open)

	// publishing to a dispatch without listeners still reaches the sink
	hub.Publish(event(1, models.EventQRScanned))
	assert.Len(t, sink.events, 3)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(1, nil, zap.NewNop())
	ch, cancel := hub.Subscribe(9)
	defer cancel()

	hub.Publish(event(9, models.EventArrived), event(9, models.EventReceived))
	first := <-ch
	assert.Equal(t, models.EventArrived, first.EventType)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.EventType)
	default:
	}
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	fail   bool
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaSinkFlushesOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(w, 16, zap.NewNop())
	sink.Start(context.Background())

	sink.Enqueue(event(42, models.EventCreated), event(42, models.EventSubmitted))
	require.NoError(t, sink.Shutdown())
	require.NoError(t, sink.Shutdown())

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.closed)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "42", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[1].Headers[0].Key)
	assert.Equal(t, "submitted", string(w.msgs[1].Headers[0].Value))

	var decoded models.DispatchEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventCreated, decoded.EventType)
}

func TestKafkaSinkSurvivesWriteFailure(t *testing.T) {
	w := &fakeWriter{fail: true}
	sink := NewKafkaSink(w, 1, zap.NewNop())

	// queue of one: the second event is dropped before the loop starts
	sink.Enqueue(event(1, models.EventCreated), event(1, models.EventSubmitted))
	sink.Start(context.Background())
	assert.NoError(t, sink.Shutdown())
	assert.Empty(t, w.msgs)
}
