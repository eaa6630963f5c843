package message

import (
	"context"
	"time"

	"wachat-server/internal/domain/status"
)

// InsertResult reports the outcome of an InsertIfAbsent call. Record is the
// stored message: the freshly inserted one when Inserted is true, the
// pre-existing one otherwise.
type InsertResult struct {
	Inserted bool
	Record   *Message
}

// UpdateResult reports the outcome of an UpdateStatus call. Record is only
// set when Updated is true.
type UpdateResult struct {
	Updated bool
	Record  *Message
}

// Repository is the conversation store adapter. Implementations persist
// messages in a generic document collection; the in-memory implementation is
// the reference for the contract.
//
// Lookup misses are not errors: FindByMessageID returns (nil, nil) when no
// record matches, and UpdateStatus returns Updated=false. Errors are reserved
// for store failures.
type Repository interface {
	FindByMessageID(ctx context.Context, messageID string) (*Message, error)

	// InsertIfAbsent stores msg unless a record with the same MessageID
	// already exists. The check and insert are a single atomic step: at most
	// one record per MessageID is stored even under concurrent calls.
	InsertIfAbsent(ctx context.Context, msg *Message) (InsertResult, error)

	// UpdateStatus matches a record whose MessageID or AliasID equals
	// idOrAlias and sets its status and status-updated marker.
	UpdateStatus(ctx context.Context, idOrAlias string, newStatus status.Status, at time.Time) (UpdateResult, error)

	// ListByConversation returns messages for a waID ordered by ascending
	// timestamp.
	ListByConversation(ctx context.Context, waID string, offset, limit int) ([]Message, error)

	// AggregateConversations returns one entry per distinct waID, ordered by
	// last-message timestamp descending.
	AggregateConversations(ctx context.Context) ([]Conversation, error)

	// MarkRead transitions all incoming, non-read messages of a conversation
	// to read and returns the number of affected records.
	MarkRead(ctx context.Context, waID string) (int64, error)

	// DeleteConversation removes all messages for a waID and returns the
	// deleted count.
	DeleteConversation(ctx context.Context, waID string) (int64, error)
}

// HealthReporter is implemented by store adapters that can report backend
// connectivity for the health endpoint.
type HealthReporter interface {
	Ping(ctx context.Context) error
}
