package message

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "wachat-server/internal/domain/message"
	"wachat-server/internal/domain/status"
	"wachat-server/internal/infrastructure/database/entities"
	"wachat-server/internal/infrastructure/metrics"
	"wachat-server/internal/utils/platformerrors"
)

// PostgresRepository persists messages through GORM. Insert atomicity rests
// on the unique index over message_id plus ON CONFLICT DO NOTHING.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository builds the message repository.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByMessageID fetches a record by its primary id; absence is (nil, nil).
func (r *PostgresRepository) FindByMessageID(ctx context.Context, messageID string) (*domain.Message, error) {
	defer observe("find_by_message_id")()

	var entity entities.Message
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to fetch message", err)
	}
	return entity.EtoD(), nil
}

// InsertIfAbsent inserts the record unless its message id already exists.
// ON CONFLICT DO NOTHING makes check-then-insert a single statement, so
// concurrent inserts of the same id store exactly one record.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, msg *domain.Message) (domain.InsertResult, error) {
	defer observe("insert_if_absent")()

	entity := entities.NewSchemaMessage(msg)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoNothing: true,
		}).
		Create(entity)
	if result.Error != nil {
		return domain.InsertResult{}, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to insert message", result.Error)
	}

	if result.RowsAffected == 0 {
		existing, err := r.FindByMessageID(ctx, msg.MessageID)
		if err != nil {
			return domain.InsertResult{}, err
		}
		return domain.InsertResult{Inserted: false, Record: existing}, nil
	}
	return domain.InsertResult{Inserted: true, Record: entity.EtoD()}, nil
}

// UpdateStatus matches by primary or alias id and applies the status
// last-write-wins.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, idOrAlias string, newStatus status.Status, at time.Time) (domain.UpdateResult, error) {
	defer observe("update_status")()

	result := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("message_id = ? OR alias_id = ?", idOrAlias, idOrAlias).
		Updates(map[string]any{
			"status":            newStatus.String(),
			"status_updated_at": at,
		})
	if result.Error != nil {
		return domain.UpdateResult{}, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to update message status", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.UpdateResult{}, nil
	}

	var entity entities.Message
	if err := r.db.WithContext(ctx).
		Where("message_id = ? OR alias_id = ?", idOrAlias, idOrAlias).
		First(&entity).Error; err != nil {
		return domain.UpdateResult{}, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to fetch updated message", err)
	}
	return domain.UpdateResult{Updated: true, Record: entity.EtoD()}, nil
}

// ListByConversation returns one ascending-timestamp page for a waID.
func (r *PostgresRepository) ListByConversation(ctx context.Context, waID string, offset, limit int) ([]domain.Message, error) {
	defer observe("list_by_conversation")()

	var rows []entities.Message
	query := r.db.WithContext(ctx).
		Where("wa_id = ?", waID).
		Order("timestamp ASC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to list messages", err)
	}

	messages := make([]domain.Message, len(rows))
	for i := range rows {
		messages[i] = *rows[i].EtoD()
	}
	return messages, nil
}

type conversationRow struct {
	WaID        string
	Total       int64
	Unread      int64
	LastMessage int64
}

// AggregateConversations derives the conversation list: totals and unread
// counts per waID plus each conversation's newest message, ordered by that
// message's timestamp descending.
func (r *PostgresRepository) AggregateConversations(ctx context.Context) ([]domain.Conversation, error) {
	defer observe("aggregate_conversations")()

	var rows []conversationRow
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Select(`wa_id,
			COUNT(*) AS total,
			SUM(CASE WHEN is_incoming AND status <> ? THEN 1 ELSE 0 END) AS unread,
			MAX(timestamp) AS last_message`, status.StatusRead.String()).
		Group("wa_id").
		Order("last_message DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to aggregate conversations", err)
	}

	var lastRows []entities.Message
	err = r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (wa_id) * FROM messages ORDER BY wa_id, timestamp DESC, id DESC`).
		Scan(&lastRows).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to fetch last messages", err)
	}

	lastByWaID := make(map[string]*domain.Message, len(lastRows))
	for i := range lastRows {
		lastByWaID[lastRows[i].WaID] = lastRows[i].EtoD()
	}

	conversations := make([]domain.Conversation, 0, len(rows))
	for _, row := range rows {
		conversations = append(conversations, domain.Conversation{
			WaID:         row.WaID,
			LastMessage:  lastByWaID[row.WaID],
			MessageCount: row.Total,
			UnreadCount:  row.Unread,
		})
	}
	return conversations, nil
}

// MarkRead bulk-transitions incoming non-read messages of a conversation.
func (r *PostgresRepository) MarkRead(ctx context.Context, waID string) (int64, error) {
	defer observe("mark_read")()

	result := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("wa_id = ? AND is_incoming AND status <> ?", waID, status.StatusRead.String()).
		Updates(map[string]any{
			"status":            status.StatusRead.String(),
			"status_updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to mark conversation read", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteConversation removes all messages for a waID.
func (r *PostgresRepository) DeleteConversation(ctx context.Context, waID string) (int64, error) {
	defer observe("delete_conversation")()

	result := r.db.WithContext(ctx).Where("wa_id = ?", waID).Delete(&entities.Message{})
	if result.Error != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "failed to delete conversation", result.Error)
	}
	return result.RowsAffected, nil
}

// Ping implements message.HealthReporter.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func observe(queryType string) func() {
	start := time.Now()
	return func() {
		metrics.RecordDBQuery(queryType, time.Since(start).Seconds())
	}
}
