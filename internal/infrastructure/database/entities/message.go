package entities

import (
	"time"

	"gorm.io/datatypes"

	domain "wachat-server/internal/domain/message"
	"wachat-server/internal/domain/status"
)

// Message represents the database schema for processed messages. The
// provider message id carries the uniqueness guarantee duplicate inserts
// rely on; wa_id plus timestamp serves the conversation listing path.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	MessageID       string     `gorm:"type:varchar(128);uniqueIndex;not null"`
	AliasID         *string    `gorm:"type:varchar(128);index"`
	ConversationKey string     `gorm:"type:varchar(160);not null"`
	WaID            string     `gorm:"type:varchar(32);index:idx_message_wa_timestamp;not null"`
	FromNumber      string     `gorm:"type:varchar(32);not null"`
	ToNumber        string     `gorm:"type:varchar(32);not null"`
	Text            string     `gorm:"type:text"`
	MessageType     string     `gorm:"type:varchar(32);not null;default:'text'"`
	ContactName     string     `gorm:"type:varchar(128);not null;default:'Unknown'"`
	IsIncoming      bool       `gorm:"not null"`
	Status          string     `gorm:"type:varchar(16);not null;default:'sent'"`
	Timestamp       int64      `gorm:"index:idx_message_wa_timestamp;not null"`
	SentAt          time.Time  `gorm:"not null"`
	StatusUpdatedAt *time.Time        `gorm:"type:timestamp"`
	Pricing         datatypes.JSONMap `gorm:"type:jsonb"`
	PhoneNumberID   string            `gorm:"type:varchar(64)"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// EtoD converts the database entity to the domain model.
func (m *Message) EtoD() *domain.Message {
	aliasID := ""
	if m.AliasID != nil {
		aliasID = *m.AliasID
	}
	return &domain.Message{
		MessageID:       m.MessageID,
		AliasID:         aliasID,
		ConversationKey: m.ConversationKey,
		WaID:            m.WaID,
		From:            m.FromNumber,
		To:              m.ToNumber,
		Text:            m.Text,
		MessageType:     m.MessageType,
		ContactName:     m.ContactName,
		IsIncoming:      m.IsIncoming,
		Status:          status.Status(m.Status),
		Timestamp:       m.Timestamp,
		CreatedAt:       m.SentAt,
		StatusUpdatedAt: m.StatusUpdatedAt,
		Pricing:         map[string]any(m.Pricing),
		PhoneNumberID:   m.PhoneNumberID,
	}
}

// NewSchemaMessage creates a database entity from the domain model.
func NewSchemaMessage(msg *domain.Message) *Message {
	var aliasID *string
	if msg.AliasID != "" {
		alias := msg.AliasID
		aliasID = &alias
	}
	return &Message{
		MessageID:       msg.MessageID,
		AliasID:         aliasID,
		ConversationKey: msg.ConversationKey,
		WaID:            msg.WaID,
		FromNumber:      msg.From,
		ToNumber:        msg.To,
		Text:            msg.Text,
		MessageType:     msg.MessageType,
		ContactName:     msg.ContactName,
		IsIncoming:      msg.IsIncoming,
		Status:          msg.Status.String(),
		Timestamp:       msg.Timestamp,
		SentAt:          msg.CreatedAt,
		StatusUpdatedAt: msg.StatusUpdatedAt,
		Pricing:         datatypes.JSONMap(msg.Pricing),
		PhoneNumberID:   msg.PhoneNumberID,
	}
}
