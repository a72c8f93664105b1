package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"eventos-backend/internal/metrics"
	"eventos-backend/internal/models"
)

var (
	ErrQueueFull   = errors.New("cola de avisos llena")
	ErrQueueClosed = errors.New("cola de avisos cerrada")
)

// Queue hands notices to a single worker goroutine so callers never wait on
// sinks. Notices are delivered in the order they were accepted.
type Queue struct {
	next    Notifier
	timeout time.Duration
	logger  *log.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan models.Notice
	done   chan struct{}
}

// NewQueue buffers up to size notices; each delivery gets its own timeout
func NewQueue(next Notifier, size int, timeout time.Duration, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	if size < 1 {
		size = 1
	}
	return &Queue{
		next:    next,
		timeout: timeout,
		logger:  logger,
		ch:      make(chan models.Notice, size),
		done:    make(chan struct{}),
	}
}

// Notify never blocks. A full buffer drops the notice.
func (q *Queue) Notify(_ context.Context, n models.Notice) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- n:
		return nil
	default:
		metrics.NotificationFailures.WithLabelValues("cola").Inc()
		return ErrQueueFull
	}
}

// Run delivers until Close, finishing the backlog first
func (q *Queue) Run() {
	defer close(q.done)
	for n := range q.ch {
		q.deliver(n)
	}
}

func (q *Queue) deliver(n models.Notice) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.Notify(ctx, n); err != nil {
		q.logger.Printf("[Avisos] %s del evento %d no entregado: %v", n.Tipo, n.EventoID, err)
	}
}

// Close stops accepting notices and waits for the worker to drain, or for ctx
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
