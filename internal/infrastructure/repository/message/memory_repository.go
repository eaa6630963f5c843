package message

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "wachat-server/internal/domain/message"
	"wachat-server/internal/domain/status"
)

// MemoryRepository is the reference store adapter: a mutex-guarded map keyed
// by message id. It backs local development and the unit-test suite, and
// defines the contract the PostgreSQL repository must match.
type MemoryRepository struct {
	mu       sync.Mutex
	byID     map[string]*domain.Message
	ordered  []*domain.Message
	sequence int64
}

// NewMemoryRepository builds an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*domain.Message),
	}
}

// FindByMessageID returns the record with the given primary id, or nil.
func (r *MemoryRepository) FindByMessageID(_ context.Context, messageID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.byID[messageID]; ok {
		copied := *msg
		return &copied, nil
	}
	return nil, nil
}

// InsertIfAbsent stores msg unless its id is already present. Check and
// insert happen under one lock acquisition, so concurrent inserts of the
// same id leave exactly one record.
func (r *MemoryRepository) InsertIfAbsent(_ context.Context, msg *domain.Message) (domain.InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[msg.MessageID]; ok {
		copied := *existing
		return domain.InsertResult{Inserted: false, Record: &copied}, nil
	}

	stored := *msg
	r.byID[stored.MessageID] = &stored
	r.ordered = append(r.ordered, &stored)
	r.sequence++

	copied := stored
	return domain.InsertResult{Inserted: true, Record: &copied}, nil
}

// UpdateStatus matches a record by primary or alias id and applies the new
// status unconditionally (last-write-wins).
func (r *MemoryRepository) UpdateStatus(_ context.Context, idOrAlias string, newStatus status.Status, at time.Time) (domain.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range r.ordered {
		if msg.MessageID == idOrAlias || (msg.AliasID != "" && msg.AliasID == idOrAlias) {
			msg.Status = newStatus
			updatedAt := at
			msg.StatusUpdatedAt = &updatedAt
			copied := *msg
			return domain.UpdateResult{Updated: true, Record: &copied}, nil
		}
	}
	return domain.UpdateResult{}, nil
}

// ListByConversation returns one ascending-timestamp page of a conversation.
func (r *MemoryRepository) ListByConversation(_ context.Context, waID string, offset, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Message
	for _, msg := range r.ordered {
		if msg.WaID == waID {
			matched = append(matched, msg)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp < matched[j].Timestamp
	})

	if offset >= len(matched) {
		return []domain.Message{}, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]domain.Message, 0, end-offset)
	for _, msg := range matched[offset:end] {
		page = append(page, *msg)
	}
	return page, nil
}

// AggregateConversations derives one aggregate per waID, ordered by
// last-message timestamp descending.
func (r *MemoryRepository) AggregateConversations(_ context.Context) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byWaID := make(map[string]*domain.Conversation)
	for _, msg := range r.ordered {
		agg, ok := byWaID[msg.WaID]
		if !ok {
			agg = &domain.Conversation{WaID: msg.WaID}
			byWaID[msg.WaID] = agg
		}
		agg.MessageCount++
		if msg.IsIncoming && msg.Status != status.StatusRead {
			agg.UnreadCount++
		}
		if agg.LastMessage == nil || msg.Timestamp > agg.LastMessage.Timestamp {
			copied := *msg
			agg.LastMessage = &copied
		}
	}

	conversations := make([]domain.Conversation, 0, len(byWaID))
	for _, agg := range byWaID {
		conversations = append(conversations, *agg)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.Timestamp > conversations[j].LastMessage.Timestamp
	})
	return conversations, nil
}

// MarkRead bulk-transitions incoming non-read messages of a conversation.
func (r *MemoryRepository) MarkRead(_ context.Context, waID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var count int64
	for _, msg := range r.ordered {
		if msg.WaID == waID && msg.IsIncoming && msg.Status != status.StatusRead {
			msg.Status = status.StatusRead
			updatedAt := now
			msg.StatusUpdatedAt = &updatedAt
			count++
		}
	}
	return count, nil
}

// DeleteConversation removes all messages of a waID.
func (r *MemoryRepository) DeleteConversation(_ context.Context, waID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*domain.Message
	var count int64
	for _, msg := range r.ordered {
		if msg.WaID == waID {
			delete(r.byID, msg.MessageID)
			count++
			continue
		}
		kept = append(kept, msg)
	}
	r.ordered = kept
	return count, nil
}

// Ping implements message.HealthReporter; the in-memory store is always up.
func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}
