package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vibhor121/mastersunion/internal/metrics"
)

var ErrQueueFull = errors.New("email queue is full")

const sendTimeout = 30 * time.Second

// AsyncQueue delivers messages from an in-process buffered channel with a
// fixed set of workers. It is the fallback when no task broker is available;
// queued mail is lost on shutdown.
type AsyncQueue struct {
	sender Sender
	jobs   chan Message
	logger *slog.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewAsyncQueue(sender Sender, workers, buffer int, logger *slog.Logger) *AsyncQueue {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 100
	}

	q := &AsyncQueue{
		sender: sender,
		jobs:   make(chan Message, buffer),
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

func (q *AsyncQueue) work() {
	defer q.wg.Done()
	for msg := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		Deliver(ctx, q.sender, msg, q.logger)
		cancel()
	}
}

func (q *AsyncQueue) Enqueue(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueFull
	}

	select {
	case q.jobs <- msg:
		metrics.EmailsTotal.WithLabelValues("enqueued").Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be sent.
func (q *AsyncQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}
