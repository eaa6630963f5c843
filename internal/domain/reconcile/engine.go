// Package reconcile decides how a normalized intent applies to the
// conversation store: at-most-once insertion for messages, idempotent
// id-or-alias resolution for status transitions.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/webhook"
)

// Engine is the sole writer of message records. It orchestrates normalizer
// output against the store adapter and reports what changed, producing at
// most one store mutation per intent.
type Engine struct {
	store message.Repository
	log   zerolog.Logger
	clock func() time.Time
}

// NewEngine constructs the reconciliation engine.
func NewEngine(store message.Repository, log zerolog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log.With().Str("component", "reconcile").Logger(),
		clock: time.Now,
	}
}

// WithClock overrides the engine's time source. Test hook.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Reconcile applies an intent to the store and returns the corresponding
// outcome. Errors are store failures only; duplicates and unmatched status
// updates are regular outcomes, not errors.
func (e *Engine) Reconcile(ctx context.Context, intent *webhook.Intent) (Outcome, error) {
	switch intent.Kind {
	case webhook.IntentMessage:
		return e.reconcileInsert(ctx, intent.Message)
	case webhook.IntentStatus:
		return e.reconcileStatus(ctx, intent.Status)
	default:
		return Outcome{Kind: OutcomeNoMatch}, nil
	}
}

func (e *Engine) reconcileInsert(ctx context.Context, mi *webhook.MessageIntent) (Outcome, error) {
	record := mi.ToRecord()

	existing, err := e.store.FindByMessageID(ctx, record.MessageID)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		e.log.Debug().Str("message_id", record.MessageID).Msg("duplicate message ignored")
		return Outcome{Kind: OutcomeDuplicate, Record: existing}, nil
	}

	res, err := e.store.InsertIfAbsent(ctx, record)
	if err != nil {
		return Outcome{}, err
	}
	if !res.Inserted {
		// Lost a concurrent race for the same message id; the store kept
		// exactly one record, which is the answer we want.
		return Outcome{Kind: OutcomeDuplicate, Record: res.Record}, nil
	}

	e.log.Info().
		Str("message_id", res.Record.MessageID).
		Str("wa_id", res.Record.WaID).
		Bool("incoming", res.Record.IsIncoming).
		Msg("message inserted")
	return Outcome{Kind: OutcomeInserted, Record: res.Record}, nil
}

func (e *Engine) reconcileStatus(ctx context.Context, si *webhook.StatusIntent) (Outcome, error) {
	now := e.clock()

	res, err := e.store.UpdateStatus(ctx, si.MessageID, si.Status, now)
	if err != nil {
		return Outcome{}, err
	}
	if !res.Updated && si.AliasID != "" {
		// Some providers reference the gateway-side alias id instead of the
		// primary id. The second lookup only runs when the first missed.
		res, err = e.store.UpdateStatus(ctx, si.AliasID, si.Status, now)
		if err != nil {
			return Outcome{}, err
		}
	}
	if !res.Updated {
		e.log.Debug().
			Str("message_id", si.MessageID).
			Str("alias_id", si.AliasID).
			Msg("status update matched no record")
		return Outcome{Kind: OutcomeNoMatch}, nil
	}

	e.log.Info().
		Str("message_id", res.Record.MessageID).
		Str("status", si.Status.String()).
		Msg("message status changed")
	return Outcome{Kind: OutcomeStatusChanged, Record: res.Record, Status: si.Status}, nil
}
