package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"freshdock/metrics"
	"freshdock/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards events to a topic keyed by dispatch id, so every
// dispatch stays ordered within its partition. Delivery is best effort.
type KafkaSink struct {
	writer    MessageWriter
	queue     chan models.DispatchEvent
	batchSize int
	timeout   time.Duration
	log       *zap.Logger

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaSink(writer MessageWriter, queueSize int, log *zap.Logger) *KafkaSink {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &KafkaSink{
		writer:    writer,
		queue:     make(chan models.DispatchEvent, queueSize),
		batchSize: 50,
		timeout:   200 * time.Millisecond,
		log:       log,
		done:      make(chan struct{}),
	}
}

func (s *KafkaSink) Enqueue(events ...models.DispatchEvent) {
	for _, ev := range events {
		select {
		case s.queue <- ev:
		default:
			metrics.SideEffectFailuresTotal.WithLabelValues("event_sink").Inc()
			s.log.Warn("event sink queue full, dropping event", zap.String("event_id", ev.ID.String()))
		}
	}
}

// Start launches the writer loop. It stops on ctx cancellation or Shutdown.
func (s *KafkaSink) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *KafkaSink) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.timeout)
	defer ticker.Stop()

	batch := make([]kafka.Message, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.writer.WriteMessages(writeCtx, batch...); err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("event_sink").Add(float64(len(batch)))
			s.log.Error("event sink write failed", zap.Int("messages", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-s.queue:
			msg, err := encodeEvent(ev)
			if err != nil {
				s.log.Error("event encode failed", zap.Error(err))
				continue
			}
			batch = append(batch, msg)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			s.drain(&batch)
			flush()
			return
		case <-ctx.Done():
			s.drain(&batch)
			flush()
			return
		}
	}
}

func (s *KafkaSink) drain(batch *[]kafka.Message) {
	for {
		select {
		case ev := <-s.queue:
			if msg, err := encodeEvent(ev); err == nil {
				*batch = append(*batch, msg)
			}
		default:
			return
		}
	}
}

// Shutdown flushes queued events and closes the writer.
func (s *KafkaSink) Shutdown() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.writer.Close()
	})
	return err
}

func encodeEvent(ev models.DispatchEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.DispatchID.String()),
		Value: value,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}, nil
}
