package domain

import (
	"time"
)

// ChatModel is the GORM model for the chats table. Participants are a
// many-to-many relation via the chat_participants join table.
type ChatModel struct {
	ID           string      `gorm:"type:varchar(36);primaryKey"`
	Name         string      `gorm:"type:varchar(255)"`
	IsGroup      bool        `gorm:"default:false"`
	Participants []UserModel `gorm:"many2many:chat_participants"`
	CreatedAt    time.Time   `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ChatModel.
func (ChatModel) TableName() string {
	return "chats"
}

// ToDomain converts ChatModel to domain Chat.
func (m *ChatModel) ToDomain() *Chat {
	ids := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		ids = append(ids, p.ID)
	}
	return &Chat{
		ID:           m.ID,
		Name:         m.Name,
		IsGroup:      m.IsGroup,
		Participants: ids,
		CreatedAt:    m.CreatedAt,
	}
}

// Chat represents a conversation between two or more users.
// Participants is never empty: the creator is always a member.
type Chat struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Participants []string  `json:"participants"`
	IsGroup      bool      `json:"is_group"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is a member of the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// CreateChatRequest represents a REST chat creation request.
type CreateChatRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants" binding:"required,min=1"`
	IsGroup      bool     `json:"is_group"`
}
