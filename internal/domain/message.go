package domain

import (
	"time"
)

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID       string    `gorm:"type:varchar(36);primaryKey"`
	ChatID   string    `gorm:"type:varchar(36);index;not null"`
	SenderID string    `gorm:"type:varchar(36);index;not null"`
	Text     string    `gorm:"type:text"`
	ImageKey string    `gorm:"type:varchar(255)"`
	IsRead   bool      `gorm:"default:false"`
	SentAt   time.Time `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:       m.ID,
		ChatID:   m.ChatID,
		SenderID: m.SenderID,
		Text:     m.Text,
		ImageKey: m.ImageKey,
		IsRead:   m.IsRead,
		SentAt:   m.SentAt,
	}
}

// Message represents a single chat message. SenderID is always a member
// of the owning chat's participants at creation time.
type Message struct {
	ID       string    `json:"id"`
	ChatID   string    `json:"chat"`
	SenderID string    `json:"sender"`
	Text     string    `json:"text"`
	ImageKey string    `json:"image,omitempty"`
	IsRead   bool      `json:"is_read"`
	SentAt   time.Time `json:"sent_at"`
}

// CreateMessageRequest represents a REST message creation request.
type CreateMessageRequest struct {
	ChatID string `json:"chat" binding:"required"`
	Text   string `json:"text" binding:"required"`
}
