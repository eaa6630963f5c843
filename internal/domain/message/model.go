// Package message holds the canonical chat message model and the store
// adapter contract the reconciliation engine writes through.
package message

import (
	"fmt"
	"time"

	"wachat-server/internal/domain/status"
)

// Message is the canonical unit of conversation history. MessageID is the
// provider-assigned primary identity; AliasID is a secondary id (the
// provider's meta message id) that status updates may reference instead.
type Message struct {
	MessageID       string         `json:"messageId"`
	AliasID         string         `json:"aliasId,omitempty"`
	ConversationKey string         `json:"conversationId"`
	WaID            string         `json:"waId"`
	From            string         `json:"from"`
	To              string         `json:"to"`
	Text            string         `json:"text"`
	MessageType     string         `json:"messageType"`
	ContactName     string         `json:"contactName"`
	IsIncoming      bool           `json:"isIncoming"`
	Status          status.Status  `json:"status"`
	Timestamp       int64          `json:"timestamp"`
	CreatedAt       time.Time      `json:"createdAt"`
	StatusUpdatedAt *time.Time     `json:"statusUpdatedAt,omitempty"`
	Pricing         map[string]any `json:"pricing,omitempty"`
	PhoneNumberID   string         `json:"phoneNumberId,omitempty"`
}

// Conversation is the derived aggregate over messages sharing a WaID. It is
// computed on demand and never stored.
type Conversation struct {
	WaID         string   `json:"waId"`
	LastMessage  *Message `json:"lastMessage"`
	MessageCount int64    `json:"messageCount"`
	UnreadCount  int64    `json:"unreadCount"`
}

// ConversationKey derives the deterministic conversation identifier for a
// sender/receiver pair.
func ConversationKey(from, to string) string {
	return fmt.Sprintf("conv_%s_%s", from, to)
}
