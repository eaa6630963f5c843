package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/domain/status"
	"wachat-server/internal/domain/webhook"
)

// mockStore is a func-field implementation of message.Repository; only the
// methods a test sets are exercised.
type mockStore struct {
	FindByMessageIDFunc func(ctx context.Context, messageID string) (*message.Message, error)
	InsertIfAbsentFunc  func(ctx context.Context, msg *message.Message) (message.InsertResult, error)
	UpdateStatusFunc    func(ctx context.Context, idOrAlias string, newStatus status.Status, at time.Time) (message.UpdateResult, error)

	updateCalls []string
}

func (m *mockStore) FindByMessageID(ctx context.Context, messageID string) (*message.Message, error) {
	if m.FindByMessageIDFunc != nil {
		return m.FindByMessageIDFunc(ctx, messageID)
	}
	return nil, nil
}

func (m *mockStore) InsertIfAbsent(ctx context.Context, msg *message.Message) (message.InsertResult, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, msg)
	}
	return message.InsertResult{}, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, idOrAlias string, newStatus status.Status, at time.Time) (message.UpdateResult, error) {
	m.updateCalls = append(m.updateCalls, idOrAlias)
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, idOrAlias, newStatus, at)
	}
	return message.UpdateResult{}, nil
}

func (m *mockStore) ListByConversation(context.Context, string, int, int) ([]message.Message, error) {
	return nil, nil
}

func (m *mockStore) AggregateConversations(context.Context) ([]message.Conversation, error) {
	return nil, nil
}

func (m *mockStore) MarkRead(context.Context, string) (int64, error) {
	return 0, nil
}

func (m *mockStore) DeleteConversation(context.Context, string) (int64, error) {
	return 0, nil
}

func messageIntent(id string) *webhook.Intent {
	return &webhook.Intent{
		Kind: webhook.IntentMessage,
		Message: &webhook.MessageIntent{
			MessageID:       id,
			From:            "919937320320",
			To:              "918329446654",
			WaID:            "919937320320",
			ContactName:     "Ravi Kumar",
			ConversationKey: "conv_919937320320_918329446654",
			Text:            "Hi",
			MessageType:     "text",
			IsIncoming:      true,
			Timestamp:       1754400000,
			CreatedAt:       time.Unix(1754400000, 0),
		},
	}
}

func statusIntent(id, alias string, st status.Status) *webhook.Intent {
	return &webhook.Intent{
		Kind: webhook.IntentStatus,
		Status: &webhook.StatusIntent{
			MessageID: id,
			AliasID:   alias,
			Status:    st,
			Timestamp: 1754400040,
		},
	}
}

func TestReconcile_InsertsNewMessage(t *testing.T) {
	store := &mockStore{
		InsertIfAbsentFunc: func(_ context.Context, msg *message.Message) (message.InsertResult, error) {
			return message.InsertResult{Inserted: true, Record: msg}, nil
		},
	}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), messageIntent("m1"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeInserted, outcome.Kind)
	require.NotNil(t, outcome.Record)
	assert.Equal(t, "m1", outcome.Record.MessageID)
	assert.Equal(t, status.StatusSent, outcome.Record.Status)
	assert.True(t, outcome.Publishable())
}

func TestReconcile_DuplicateIsNoOp(t *testing.T) {
	existing := &message.Message{MessageID: "m1", Status: status.StatusRead}
	inserts := 0
	store := &mockStore{
		FindByMessageIDFunc: func(context.Context, string) (*message.Message, error) {
			return existing, nil
		},
		InsertIfAbsentFunc: func(_ context.Context, msg *message.Message) (message.InsertResult, error) {
			inserts++
			return message.InsertResult{Inserted: true, Record: msg}, nil
		},
	}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), messageIntent("m1"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeDuplicate, outcome.Kind)
	assert.Same(t, existing, outcome.Record)
	// The stored record keeps its progressed status, not the intent's.
	assert.Equal(t, status.StatusRead, outcome.Record.Status)
	assert.Zero(t, inserts, "duplicate must not reach the insert path")
	assert.False(t, outcome.Publishable())
}

func TestReconcile_ConcurrentInsertLoserIsDuplicate(t *testing.T) {
	winner := &message.Message{MessageID: "m1"}
	store := &mockStore{
		InsertIfAbsentFunc: func(context.Context, *message.Message) (message.InsertResult, error) {
			return message.InsertResult{Inserted: false, Record: winner}, nil
		},
	}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), messageIntent("m1"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeDuplicate, outcome.Kind)
	assert.Same(t, winner, outcome.Record)
}

func TestReconcile_StatusUpdateByPrimaryID(t *testing.T) {
	record := &message.Message{MessageID: "m1", Status: status.StatusDelivered}
	store := &mockStore{
		UpdateStatusFunc: func(_ context.Context, idOrAlias string, newStatus status.Status, _ time.Time) (message.UpdateResult, error) {
			if idOrAlias == "m1" {
				record.Status = newStatus
				return message.UpdateResult{Updated: true, Record: record}, nil
			}
			return message.UpdateResult{}, nil
		},
	}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), statusIntent("m1", "alias-1", status.StatusRead))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeStatusChanged, outcome.Kind)
	assert.Equal(t, status.StatusRead, outcome.Status)
	assert.Equal(t, []string{"m1"}, store.updateCalls, "alias lookup must not run after a primary hit")
}

func TestReconcile_StatusUpdateFallsBackToAlias(t *testing.T) {
	record := &message.Message{MessageID: "m2", AliasID: "g1"}
	store := &mockStore{
		UpdateStatusFunc: func(_ context.Context, idOrAlias string, newStatus status.Status, at time.Time) (message.UpdateResult, error) {
			if idOrAlias == "g1" {
				record.Status = newStatus
				record.StatusUpdatedAt = &at
				return message.UpdateResult{Updated: true, Record: record}, nil
			}
			return message.UpdateResult{}, nil
		},
	}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), statusIntent("g1-unknown", "g1", status.StatusDelivered))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeStatusChanged, outcome.Kind)
	assert.Equal(t, []string{"g1-unknown", "g1"}, store.updateCalls)
	assert.Equal(t, status.StatusDelivered, outcome.Record.Status)
	assert.NotNil(t, outcome.Record.StatusUpdatedAt)
}

func TestReconcile_StatusUpdateNoMatch(t *testing.T) {
	store := &mockStore{}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), statusIntent("missing", "also-missing", status.StatusRead))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeNoMatch, outcome.Kind)
	assert.Nil(t, outcome.Record)
	assert.False(t, outcome.Publishable())
	assert.Equal(t, []string{"missing", "also-missing"}, store.updateCalls)
}

func TestReconcile_StatusUpdateWithoutAliasSkipsFallback(t *testing.T) {
	store := &mockStore{}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), statusIntent("missing", "", status.StatusRead))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeNoMatch, outcome.Kind)
	assert.Equal(t, []string{"missing"}, store.updateCalls)
}

func TestReconcile_StoreErrorsPropagate(t *testing.T) {
	storeErr := errors.New("connection reset")

	t.Run("find", func(t *testing.T) {
		store := &mockStore{
			FindByMessageIDFunc: func(context.Context, string) (*message.Message, error) {
				return nil, storeErr
			},
		}
		engine := reconcile.NewEngine(store, zerolog.Nop())
		_, err := engine.Reconcile(context.Background(), messageIntent("m1"))
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("update", func(t *testing.T) {
		store := &mockStore{
			UpdateStatusFunc: func(context.Context, string, status.Status, time.Time) (message.UpdateResult, error) {
				return message.UpdateResult{}, storeErr
			},
		}
		engine := reconcile.NewEngine(store, zerolog.Nop())
		_, err := engine.Reconcile(context.Background(), statusIntent("m1", "", status.StatusRead))
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestReconcile_StatusUpdateStampsEngineClock(t *testing.T) {
	fixed := time.Date(2025, 8, 5, 12, 30, 0, 0, time.UTC)
	var stamps []time.Time
	store := &mockStore{
		UpdateStatusFunc: func(_ context.Context, idOrAlias string, _ status.Status, at time.Time) (message.UpdateResult, error) {
			stamps = append(stamps, at)
			if idOrAlias == "g1" {
				return message.UpdateResult{Updated: true, Record: &message.Message{MessageID: "m1"}}, nil
			}
			return message.UpdateResult{}, nil
		},
	}
	engine := reconcile.NewEngine(store, zerolog.Nop()).WithClock(func() time.Time { return fixed })

	_, err := engine.Reconcile(context.Background(), statusIntent("unknown", "g1", status.StatusRead))
	require.NoError(t, err)
	// Primary and alias attempts carry the same receipt time, taken once
	// per intent from the engine clock.
	require.Equal(t, []time.Time{fixed, fixed}, stamps)
}

func TestReconcile_LastWriteWinsAllowsRegression(t *testing.T) {
	record := &message.Message{MessageID: "m1", Status: status.StatusRead}
	store := &mockStore{
		UpdateStatusFunc: func(_ context.Context, _ string, newStatus status.Status, _ time.Time) (message.UpdateResult, error) {
			record.Status = newStatus
			return message.UpdateResult{Updated: true, Record: record}, nil
		},
	}
	engine := reconcile.NewEngine(store, zerolog.Nop())

	outcome, err := engine.Reconcile(context.Background(), statusIntent("m1", "", status.StatusSent))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeStatusChanged, outcome.Kind)
	assert.Equal(t, status.StatusSent, outcome.Record.Status, "regressions are applied, not filtered")
}
