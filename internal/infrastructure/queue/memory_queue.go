package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/infrastructure/metrics"
)

// MemoryQueue is a bounded channel-backed EventQueue.
type MemoryQueue struct {
	events chan reconcile.Outcome
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue builds a queue holding at most capacity pending events.
func NewMemoryQueue(capacity int, log zerolog.Logger) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryQueue{
		events: make(chan reconcile.Outcome, capacity),
		log:    log.With().Str("component", "fanout-queue").Logger(),
	}
}

// Enqueue implements EventQueue.
func (q *MemoryQueue) Enqueue(outcome reconcile.Outcome) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.events <- outcome:
		metrics.SetFanoutQueueDepth(len(q.events))
		return true
	default:
		metrics.RecordFanoutEvent(string(outcome.Kind), "dropped")
		return false
	}
}

// Dispatch implements the conversation service's Dispatcher contract.
func (q *MemoryQueue) Dispatch(outcome reconcile.Outcome) bool {
	return q.Enqueue(outcome)
}

// Dequeue implements EventQueue.
func (q *MemoryQueue) Dequeue(ctx context.Context) (reconcile.Outcome, bool) {
	select {
	case outcome, ok := <-q.events:
		if ok {
			metrics.SetFanoutQueueDepth(len(q.events))
		}
		return outcome, ok
	case <-ctx.Done():
		return reconcile.Outcome{}, false
	}
}

// Len implements EventQueue.
func (q *MemoryQueue) Len() int {
	return len(q.events)
}

// Close implements EventQueue.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
}
