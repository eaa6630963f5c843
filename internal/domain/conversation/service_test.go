package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wachat-server/internal/domain/conversation"
	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/domain/status"
	"wachat-server/internal/domain/webhook"
	"wachat-server/internal/utils/platformerrors"
)

// mockStore is a func-field implementation of message.Repository.
type mockStore struct {
	FindByMessageIDFunc        func(ctx context.Context, messageID string) (*message.Message, error)
	InsertIfAbsentFunc         func(ctx context.Context, msg *message.Message) (message.InsertResult, error)
	UpdateStatusFunc           func(ctx context.Context, idOrAlias string, newStatus status.Status, at time.Time) (message.UpdateResult, error)
	ListByConversationFunc     func(ctx context.Context, waID string, offset, limit int) ([]message.Message, error)
	AggregateConversationsFunc func(ctx context.Context) ([]message.Conversation, error)
	MarkReadFunc               func(ctx context.Context, waID string) (int64, error)
	DeleteConversationFunc     func(ctx context.Context, waID string) (int64, error)
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
	return message.InsertResult{Inserted: true, Record: msg}, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, idOrAlias string, newStatus status.Status, at time.Time) (message.UpdateResult, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, idOrAlias, newStatus, at)
	}
	return message.UpdateResult{}, nil
}

func (m *mockStore) ListByConversation(ctx context.Context, waID string, offset, limit int) ([]message.Message, error) {
	if m.ListByConversationFunc != nil {
		return m.ListByConversationFunc(ctx, waID, offset, limit)
	}
	return nil, nil
}

func (m *mockStore) AggregateConversations(ctx context.Context) ([]message.Conversation, error) {
	if m.AggregateConversationsFunc != nil {
		return m.AggregateConversationsFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) MarkRead(ctx context.Context, waID string) (int64, error) {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, waID)
	}
	return 0, nil
}

func (m *mockStore) DeleteConversation(ctx context.Context, waID string) (int64, error) {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, waID)
	}
	return 0, nil
}

type mockDispatcher struct {
	dispatched []reconcile.Outcome
	reject     bool
}

func (m *mockDispatcher) Dispatch(outcome reconcile.Outcome) bool {
	if m.reject {
		return false
	}
	m.dispatched = append(m.dispatched, outcome)
	return true
}

func newTestService(store *mockStore, dispatcher conversation.Dispatcher) conversation.Service {
	log := zerolog.Nop()
	engine := reconcile.NewEngine(store, log)
	return conversation.NewService(store, nil, engine, dispatcher, conversation.Config{
		BusinessNumber: "918329446654",
		PhoneNumberID:  "629305560276479",
		StoreTimeout:   time.Second,
	}, log)
}

func inboundMessageEnvelope(msgID, from, body string) *webhook.Envelope {
	return &webhook.Envelope{
		MetaData: &webhook.MetaData{
			Entry: []webhook.Entry{{
				Changes: []webhook.Change{{
					Field: "messages",
					Value: webhook.ChangeValue{
						Messages: []webhook.InboundMessage{{
							From:      from,
							ID:        msgID,
							Timestamp: webhook.UnixTime(1700000000),
							Type:      "text",
							Text:      &webhook.TextBody{Body: body},
						}},
						Contacts: []webhook.Contact{{
							Profile: webhook.Profile{Name: "Ravi Kumar"},
							WaID:    from,
						}},
						Metadata: webhook.BusinessMetadata{
							DisplayPhoneNumber: "918329446654",
							PhoneNumberID:      "629305560276479",
						},
					},
				}},
			}},
		},
	}
}

func TestService_ProcessEnvelope_Inserted(t *testing.T) {
	dispatcher := &mockDispatcher{}
	service := newTestService(&mockStore{}, dispatcher)

	outcome, err := service.ProcessEnvelope(context.Background(), inboundMessageEnvelope("wamid.1", "919937320320", "Hi"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeInserted, outcome.Kind)
	require.NotNil(t, outcome.Record)
	assert.Equal(t, "wamid.1", outcome.Record.MessageID)
	assert.True(t, outcome.Record.IsIncoming)
	require.Len(t, dispatcher.dispatched, 1)
}

func TestService_ProcessEnvelope_IneligibleEnvelope(t *testing.T) {
	dispatcher := &mockDispatcher{}
	service := newTestService(&mockStore{}, dispatcher)

	_, err := service.ProcessEnvelope(context.Background(), &webhook.Envelope{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.Empty(t, dispatcher.dispatched)
}

func TestService_ProcessEnvelope_DuplicateNotDispatched(t *testing.T) {
	existing := &message.Message{MessageID: "wamid.1", Status: status.StatusRead}
	store := &mockStore{
		FindByMessageIDFunc: func(ctx context.Context, messageID string) (*message.Message, error) {
			return existing, nil
		},
	}
	dispatcher := &mockDispatcher{}
	service := newTestService(store, dispatcher)

	outcome, err := service.ProcessEnvelope(context.Background(), inboundMessageEnvelope("wamid.1", "919937320320", "Hi"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeDuplicate, outcome.Kind)
	assert.Empty(t, dispatcher.dispatched)
}

func TestService_ListMessages_MarksRead(t *testing.T) {
	var gotOffset, gotLimit int
	var markedWaID string
	store := &mockStore{
		ListByConversationFunc: func(ctx context.Context, waID string, offset, limit int) ([]message.Message, error) {
			gotOffset = offset
			gotLimit = limit
			return []message.Message{{MessageID: "m1", WaID: waID}}, nil
		},
		MarkReadFunc: func(ctx context.Context, waID string) (int64, error) {
			markedWaID = waID
			return 1, nil
		},
	}
	service := newTestService(store, &mockDispatcher{})

	messages, err := service.ListMessages(context.Background(), "919937320320", 3, 20)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, 40, gotOffset)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, "919937320320", markedWaID)
}

func TestService_ListMessages_ClampsPaging(t *testing.T) {
	var gotOffset, gotLimit int
	store := &mockStore{
		ListByConversationFunc: func(ctx context.Context, waID string, offset, limit int) ([]message.Message, error) {
			gotOffset = offset
			gotLimit = limit
			return nil, nil
		},
	}
	service := newTestService(store, &mockDispatcher{})

	_, err := service.ListMessages(context.Background(), "919937320320", -4, 9999)
	require.NoError(t, err)
	assert.Equal(t, 0, gotOffset)
	assert.Equal(t, 50, gotLimit)
}

func TestService_ListMessages_MarkReadFailureIsNonFatal(t *testing.T) {
	store := &mockStore{
		ListByConversationFunc: func(ctx context.Context, waID string, offset, limit int) ([]message.Message, error) {
			return []message.Message{{MessageID: "m1"}}, nil
		},
		MarkReadFunc: func(ctx context.Context, waID string) (int64, error) {
			return 0, errors.New("write conflict")
		},
	}
	service := newTestService(store, &mockDispatcher{})

	messages, err := service.ListMessages(context.Background(), "919937320320", 1, 50)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestService_Send(t *testing.T) {
	var stored *message.Message
	store := &mockStore{
		ListByConversationFunc: func(ctx context.Context, waID string, offset, limit int) ([]message.Message, error) {
			return []message.Message{{MessageID: "m1", ContactName: "Ravi Kumar"}}, nil
		},
		InsertIfAbsentFunc: func(ctx context.Context, msg *message.Message) (message.InsertResult, error) {
			stored = msg
			return message.InsertResult{Inserted: true, Record: msg}, nil
		},
	}
	dispatcher := &mockDispatcher{}
	service := newTestService(store, dispatcher)

	sent, err := service.Send(context.Background(), "919937320320", "  Hello  ")
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.True(t, strings.HasPrefix(sent.MessageID, "demo_"))
	assert.Equal(t, "Hello", sent.Text)
	assert.Equal(t, "918329446654", sent.From)
	assert.Equal(t, "919937320320", sent.To)
	assert.Equal(t, "Ravi Kumar", sent.ContactName)
	assert.False(t, sent.IsIncoming)
	assert.Equal(t, status.StatusSent, sent.Status)
	require.Len(t, dispatcher.dispatched, 1)
}

func TestService_Send_EmptyText(t *testing.T) {
	service := newTestService(&mockStore{}, &mockDispatcher{})

	_, err := service.Send(context.Background(), "919937320320", "   ")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestService_Delete(t *testing.T) {
	store := &mockStore{
		DeleteConversationFunc: func(ctx context.Context, waID string) (int64, error) {
			return 4, nil
		},
	}
	service := newTestService(store, &mockDispatcher{})

	count, err := service.Delete(context.Background(), "919937320320")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestService_Health_NoReporter(t *testing.T) {
	service := newTestService(&mockStore{}, &mockDispatcher{})
	assert.NoError(t, service.Health(context.Background()))
}
