package webhook

import (
	"time"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/status"
)

// IntentKind tags the normalized form of an envelope.
type IntentKind string

const (
	// IntentMessage inserts a new canonical message record.
	IntentMessage IntentKind = "message"
	// IntentStatus applies a status transition to an existing record.
	IntentStatus IntentKind = "status"
)

// Intent is the engine-internal representation of an eligible envelope.
// Exactly one of Message or Status is set, matching Kind.
type Intent struct {
	Kind    IntentKind
	Message *MessageIntent
	Status  *StatusIntent
}

// MessageIntent carries everything needed to insert a canonical message.
type MessageIntent struct {
	MessageID       string
	From            string
	To              string
	WaID            string
	ContactName     string
	ConversationKey string
	Text            string
	MessageType     string
	IsIncoming      bool
	Timestamp       int64
	CreatedAt       time.Time
	PhoneNumberID   string
}

// ToRecord maps the intent into the canonical message shape. New records
// always start in status sent.
func (mi *MessageIntent) ToRecord() *message.Message {
	return &message.Message{
		MessageID:       mi.MessageID,
		ConversationKey: mi.ConversationKey,
		WaID:            mi.WaID,
		From:            mi.From,
		To:              mi.To,
		Text:            mi.Text,
		MessageType:     mi.MessageType,
		ContactName:     mi.ContactName,
		IsIncoming:      mi.IsIncoming,
		Status:          status.StatusSent,
		Timestamp:       mi.Timestamp,
		CreatedAt:       mi.CreatedAt,
		PhoneNumberID:   mi.PhoneNumberID,
	}
}

// StatusIntent carries a status transition keyed by the primary message id
// with an optional alias fallback.
type StatusIntent struct {
	MessageID       string
	AliasID         string
	Status          status.Status
	Timestamp       int64
	RecipientID     string
	ConversationKey string
	Pricing         map[string]any
}

// Normalize parses an inbound envelope into an Intent. The second return is
// false when the envelope is not an eligible messages event: missing
// nesting, a different change field, or empty message and status arrays.
// Rejection is silent by design; sources send unrelated event types over the
// same endpoint and malformed input is indistinguishable from "not
// applicable" at this layer.
//
// Only the first element of the messages/statuses arrays is considered.
// Multi-message envelopes are an accepted simplification inherited from the
// upstream provider contract.
func Normalize(env *Envelope, now time.Time) (*Intent, bool) {
	if env == nil || env.MetaData == nil || len(env.MetaData.Entry) == 0 {
		return nil, false
	}
	entry := env.MetaData.Entry[0]
	if len(entry.Changes) == 0 {
		return nil, false
	}
	change := entry.Changes[0]
	if change.Field != "messages" {
		return nil, false
	}

	value := change.Value
	if len(value.Messages) > 0 {
		return &Intent{
			Kind:    IntentMessage,
			Message: normalizeMessage(env, value, now),
		}, true
	}
	if len(value.Statuses) > 0 {
		return &Intent{
			Kind:   IntentStatus,
			Status: normalizeStatus(value.Statuses[0]),
		}, true
	}
	return nil, false
}

func normalizeMessage(env *Envelope, value ChangeValue, now time.Time) *MessageIntent {
	msg := value.Messages[0]
	to := value.Metadata.DisplayPhoneNumber

	contactName := "Unknown"
	waID := msg.From
	if len(value.Contacts) > 0 {
		contact := value.Contacts[0]
		if contact.Profile.Name != "" {
			contactName = contact.Profile.Name
		}
		if contact.WaID != "" {
			waID = contact.WaID
		}
	}

	text := ""
	if msg.Type == "text" && msg.Text != nil {
		text = msg.Text.Body
	}

	createdAt := now
	if env.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, env.CreatedAt); err == nil {
			createdAt = parsed
		}
	}

	return &MessageIntent{
		MessageID:       msg.ID,
		From:            msg.From,
		To:              to,
		WaID:            waID,
		ContactName:     contactName,
		ConversationKey: message.ConversationKey(msg.From, to),
		Text:            text,
		MessageType:     msg.Type,
		IsIncoming:      msg.From != to,
		Timestamp:       int64(msg.Timestamp),
		CreatedAt:       createdAt,
		PhoneNumberID:   value.Metadata.PhoneNumberID,
	}
}

func normalizeStatus(st InboundStatus) *StatusIntent {
	conversationKey := ""
	if st.Conversation != nil {
		conversationKey = st.Conversation.ID
	}
	return &StatusIntent{
		MessageID:       st.ID,
		AliasID:         st.MetaMsgID,
		Status:          status.Status(st.Status),
		Timestamp:       int64(st.Timestamp),
		RecipientID:     st.RecipientID,
		ConversationKey: conversationKey,
		Pricing:         st.Pricing,
	}
}
