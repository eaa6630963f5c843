// Package conversation exposes the application service tying the webhook
// normalizer, the reconciliation engine and the conversation store together.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/domain/webhook"
	"wachat-server/internal/utils/platformerrors"
)

// Dispatcher hands a reconciliation outcome to the fanout pipeline. The
// boolean reports acceptance; a full pipeline drops the event, which is
// within the best-effort notification contract.
type Dispatcher interface {
	Dispatch(outcome reconcile.Outcome) bool
}

// Service is the API surface the HTTP layer talks to.
type Service interface {
	ProcessEnvelope(ctx context.Context, env *webhook.Envelope) (reconcile.Outcome, error)
	ListConversations(ctx context.Context) ([]message.Conversation, error)
	ListMessages(ctx context.Context, waID string, page, limit int) ([]message.Message, error)
	Send(ctx context.Context, waID, text string) (*message.Message, error)
	Delete(ctx context.Context, waID string) (int64, error)
	Health(ctx context.Context) error
}

// Config carries the business-line identity and operational bounds.
type Config struct {
	// BusinessNumber is the phone number owned by this deployment; outgoing
	// demo messages are sent from it.
	BusinessNumber string
	PhoneNumberID  string
	// StoreTimeout bounds every store round trip issued by the service.
	StoreTimeout time.Duration
}

type service struct {
	store      message.Repository
	health     message.HealthReporter
	engine     *reconcile.Engine
	dispatcher Dispatcher
	cfg        Config
	log        zerolog.Logger
	clock      func() time.Time
}

// NewService constructs the conversation service. health may be nil when the
// store has no connectivity to report.
func NewService(
	store message.Repository,
	health message.HealthReporter,
	engine *reconcile.Engine,
	dispatcher Dispatcher,
	cfg Config,
	log zerolog.Logger,
) Service {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &service{
		store:      store,
		health:     health,
		engine:     engine,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log.With().Str("component", "conversation-service").Logger(),
		clock:      time.Now,
	}
}

// ProcessEnvelope normalizes and reconciles one inbound envelope, then
// queues the outcome for fanout. Publication is fire-and-forget: the store
// write is already durable when this returns.
func (s *service) ProcessEnvelope(ctx context.Context, env *webhook.Envelope) (reconcile.Outcome, error) {
	intent, ok := webhook.Normalize(env, s.clock())
	if !ok {
		return reconcile.Outcome{}, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "unrecognized webhook payload", nil)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	outcome, err := s.engine.Reconcile(opCtx, intent)
	if err != nil {
		return reconcile.Outcome{}, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "reconcile envelope")
	}

	s.dispatch(outcome)
	return outcome, nil
}

// ListConversations returns the derived conversation aggregates.
func (s *service) ListConversations(ctx context.Context) ([]message.Conversation, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	conversations, err := s.store.AggregateConversations(opCtx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "aggregate conversations")
	}
	return conversations, nil
}

// ListMessages returns one ascending page of a conversation and then marks
// its incoming messages read, mirroring a client opening the thread.
func (s *service) ListMessages(ctx context.Context, waID string, page, limit int) ([]message.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	messages, err := s.store.ListByConversation(opCtx, waID, (page-1)*limit, limit)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list messages")
	}

	if _, err := s.store.MarkRead(opCtx, waID); err != nil {
		// Reading the thread succeeded; losing the read-marker update is
		// recoverable on the next fetch.
		s.log.Warn().Err(err).Str("wa_id", waID).Msg("mark read failed")
	}

	return messages, nil
}

// Send stores an outgoing message authored by the business line and runs it
// through the same reconcile path inbound messages take.
func (s *service) Send(ctx context.Context, waID, text string) (*message.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "message text is required", nil)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	contactName := "Unknown"
	if existing, err := s.store.ListByConversation(opCtx, waID, 0, 1); err == nil && len(existing) > 0 {
		contactName = existing[0].ContactName
	}

	now := s.clock()
	intent := &webhook.Intent{
		Kind: webhook.IntentMessage,
		Message: &webhook.MessageIntent{
			MessageID:       fmt.Sprintf("demo_%s", uuid.NewString()),
			From:            s.cfg.BusinessNumber,
			To:              waID,
			WaID:            waID,
			ContactName:     contactName,
			ConversationKey: message.ConversationKey(waID, s.cfg.BusinessNumber),
			Text:            text,
			MessageType:     "text",
			IsIncoming:      false,
			Timestamp:       now.Unix(),
			CreatedAt:       now,
			PhoneNumberID:   s.cfg.PhoneNumberID,
		},
	}

	outcome, err := s.engine.Reconcile(opCtx, intent)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store outgoing message")
	}

	s.dispatch(outcome)
	return outcome.Record, nil
}

// Delete removes every message of a conversation and returns the count.
func (s *service) Delete(ctx context.Context, waID string) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	count, err := s.store.DeleteConversation(opCtx, waID)
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete conversation")
	}
	return count, nil
}

// Health reports store connectivity.
func (s *service) Health(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.health.Ping(opCtx)
}

func (s *service) dispatch(outcome reconcile.Outcome) {
	if !outcome.Publishable() || s.dispatcher == nil {
		return
	}
	if !s.dispatcher.Dispatch(outcome) {
		s.log.Warn().
			Str("outcome", string(outcome.Kind)).
			Str("message_id", outcome.Record.MessageID).
			Msg("fanout queue full, event dropped")
	}
}
