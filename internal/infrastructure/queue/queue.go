// Package queue buffers reconciliation outcomes between the request path
// and the fanout workers.
package queue

import (
	"context"

	"wachat-server/internal/domain/reconcile"
)

// EventQueue decouples the write path from fanout publication. Enqueue never
// blocks the caller; a full queue rejects the event, which the best-effort
// notification contract permits.
type EventQueue interface {
	// Enqueue accepts an outcome for dispatch; false means the queue is
	// full or closed and the event was dropped.
	Enqueue(outcome reconcile.Outcome) bool

	// Dequeue blocks until an event is available, the queue closes, or the
	// context is cancelled. The boolean is false when no more events will
	// arrive.
	Dequeue(ctx context.Context) (reconcile.Outcome, bool)

	// Len reports the number of pending events.
	Len() int

	// Close stops accepting events; pending events remain dequeueable.
	Close()
}
