package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/infrastructure/fanout"
	"wachat-server/internal/infrastructure/metrics"
	"wachat-server/internal/infrastructure/queue"
)

// Worker drains the fanout queue and publishes each outcome. Publish
// failures are logged and counted but never retried: the store write is the
// durability boundary, notification is best-effort.
type Worker struct {
	id             int
	queue          queue.EventQueue
	publisher      message.Publisher
	publishTimeout time.Duration
	log            zerolog.Logger
}

// NewWorker builds one fanout worker.
func NewWorker(id int, q queue.EventQueue, publisher message.Publisher, publishTimeout time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		id:             id,
		queue:          q,
		publisher:      publisher,
		publishTimeout: publishTimeout,
		log:            log.With().Int("worker_id", id).Logger(),
	}
}

// Start consumes events until the context is cancelled or the queue closes.
func (w *Worker) Start(ctx context.Context) {
	w.log.Debug().Msg("fanout worker started")
	for {
		outcome, ok := w.queue.Dequeue(ctx)
		if !ok {
			w.log.Debug().Msg("fanout worker stopped")
			return
		}
		w.publish(ctx, outcome)
	}
}

func (w *Worker) publish(ctx context.Context, outcome reconcile.Outcome) {
	publishCtx, cancel := context.WithTimeout(ctx, w.publishTimeout)
	defer cancel()

	var (
		event string
		err   error
	)
	switch outcome.Kind {
	case reconcile.OutcomeInserted:
		event = fanout.EventNewMessage
		err = w.publisher.PublishNewMessage(publishCtx, outcome.Record)
	case reconcile.OutcomeStatusChanged:
		event = fanout.EventStatusUpdate
		err = w.publisher.PublishStatusUpdate(publishCtx, outcome.Record, outcome.Status)
	default:
		// Duplicate and NoMatch never reach the queue; tolerate them anyway.
		return
	}

	if err != nil {
		metrics.RecordFanoutEvent(event, "error")
		w.log.Error().Err(err).
			Str("event", event).
			Str("message_id", outcome.Record.MessageID).
			Msg("fanout publish failed")
		return
	}
	metrics.RecordFanoutEvent(event, "ok")
}
