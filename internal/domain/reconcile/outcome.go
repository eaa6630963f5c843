package reconcile

import (
	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/status"
)

// OutcomeKind tags the result of a reconciliation attempt.
type OutcomeKind string

const (
	// OutcomeInserted means a new message record was stored.
	OutcomeInserted OutcomeKind = "inserted"
	// OutcomeDuplicate means the message id was already stored; nothing
	// changed.
	OutcomeDuplicate OutcomeKind = "duplicate"
	// OutcomeStatusChanged means an existing record's status was updated.
	OutcomeStatusChanged OutcomeKind = "status_changed"
	// OutcomeNoMatch means a status update referenced no stored record.
	OutcomeNoMatch OutcomeKind = "no_match"
)

// Outcome describes what a reconciliation did. Record is set for Inserted,
// Duplicate and StatusChanged; Status is set for StatusChanged only.
type Outcome struct {
	Kind   OutcomeKind
	Record *message.Message
	Status status.Status
}

// Publishable reports whether the outcome produces a fanout event.
// Duplicates and misses are deliberately silent.
func (o Outcome) Publishable() bool {
	return o.Kind == OutcomeInserted || o.Kind == OutcomeStatusChanged
}
