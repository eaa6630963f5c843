package message

import (
	"context"

	"wachat-server/internal/domain/status"
)

// StatusEvent is the minimal payload published to a conversation-scoped
// channel when a message's status changes.
type StatusEvent struct {
	MessageID string        `json:"messageId"`
	Status    status.Status `json:"status"`
}

// Publisher fans reconciliation outcomes out to connected clients. It is
// best-effort from the caller's point of view: a publish failure never rolls
// back the store write that produced the event.
//
// PublishNewMessage emits the full record globally and to the channel scoped
// to the record's WaID. PublishStatusUpdate emits the full record globally
// and a StatusEvent to the scoped channel.
type Publisher interface {
	PublishNewMessage(ctx context.Context, msg *Message) error
	PublishStatusUpdate(ctx context.Context, msg *Message, newStatus status.Status) error
}
