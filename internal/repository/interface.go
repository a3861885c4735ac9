package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rekew/web-dev-project/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrUsernameExists  = errors.New("username already exists")
)

// Store is the persistence contract consumed by the realtime core and
// the REST handlers. Implementations provide per-entity atomicity; the
// core never spans entities in one transaction.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	QueryUsersBySubstring(ctx context.Context, text, excludeUserID string, limit int) ([]domain.UserSummary, error)

	// Presence (write-through state owned by the presence broadcaster)
	SetUserPresence(ctx context.Context, userID string, isOnline bool, lastActive *time.Time) error
	GetUserPresence(ctx context.Context, userID string) (bool, error)

	// Chats
	CreateChat(ctx context.Context, name string, isGroup bool, participantIDs []string) (*domain.Chat, error)
	GetChat(ctx context.Context, id string) (*domain.Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]domain.Chat, error)

	// Messages
	CreateMessage(ctx context.Context, chatID, senderID, text string) (*domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	SetMessageImage(ctx context.Context, messageID, imageKey string) error
	ListMessagesForChat(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
}
