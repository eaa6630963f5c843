// Package status defines the delivery status of a chat message.
package status

// Status represents the delivery lifecycle of a message.
type Status string

const (
	// StatusSending is a client-side optimistic placeholder. It is never
	// written by the reconciliation path; it exists so clients and the API
	// share one vocabulary.
	StatusSending Status = "sending"

	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// rank orders the happy-path progression. failed sits outside the
// progression and is treated as terminal.
var rank = map[Status]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true once no further happy-path transition is expected.
func (s Status) IsTerminal() bool {
	return s == StatusRead || s == StatusFailed
}

// CanProgressTo reports whether target is a forward move from s. The
// reconciliation engine deliberately does not consult this: status updates
// are applied last-write-wins, matching the upstream provider's behavior.
// It is provided for callers that want to filter regressions themselves.
func (s Status) CanProgressTo(target Status) bool {
	if target == StatusFailed {
		return s != StatusRead
	}
	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[target]
	if !ok {
		return false
	}
	return to > from
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
