package notify

import (
	"context"
	"sync"
	"time"

	"freshdock/metrics"

	"go.uber.org/zap"
)

// Notifier sends mail on background workers. Failures are logged and
// counted; callers never see them.
type Notifier struct {
	mailer      Mailer
	workerCount int
	sendTimeout time.Duration
	log         *zap.Logger

	queue      chan Message
	shutdownCh chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
}

func NewNotifier(mailer Mailer, workerCount, queueSize int, log *zap.Logger) *Notifier {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Notifier{
		mailer:      mailer,
		workerCount: workerCount,
		sendTimeout: 30 * time.Second,
		log:         log,
		queue:       make(chan Message, queueSize),
		shutdownCh:  make(chan struct{}),
	}
}

func (n *Notifier) Start(ctx context.Context) {
	for i := 0; i < n.workerCount; i++ {
		n.wg.Add(1)
		go n.runWorker(ctx, i)
	}
}

// Enqueue drops messages without recipients and messages that do not fit
// in the queue.
func (n *Notifier) Enqueue(msg Message) {
	to := msg.To[:0:0]
	for _, addr := range msg.To {
		if addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return
	}
	msg.To = to

	select {
	case n.queue <- msg:
		metrics.NotificationQueueDepth.Inc()
	default:
		metrics.SideEffectFailuresTotal.WithLabelValues("email").Inc()
		n.log.Warn("notification queue full, dropping message", zap.String("subject", msg.Subject))
	}
}

func (n *Notifier) runWorker(ctx context.Context, id int) {
	defer n.wg.Done()
	for {
		select {
		case msg := <-n.queue:
			n.deliver(id, msg)
		case <-n.shutdownCh:
			n.drain(id)
			return
		case <-ctx.Done():
			n.drain(id)
			return
		}
	}
}

func (n *Notifier) drain(id int) {
	for {
		select {
		case msg := <-n.queue:
			n.deliver(id, msg)
		default:
			return
		}
	}
}

func (n *Notifier) deliver(worker int, msg Message) {
	metrics.NotificationQueueDepth.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), n.sendTimeout)
	defer cancel()

	if err := n.mailer.Send(ctx, msg); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("email").Inc()
		n.log.Error("notification failed",
			zap.Int("worker", worker),
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}
}

// Shutdown waits for queued messages to go out or for ctx to expire.
func (n *Notifier) Shutdown(ctx context.Context) {
	n.once.Do(func() {
		close(n.shutdownCh)

		done := make(chan struct{})
		go func() {
			n.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			n.log.Warn("notifier shutdown interrupted", zap.Int("pending", len(n.queue)))
		}
	})
}
