package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rekew/web-dev-project/internal/domain"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate runs schema migration for all chat entities.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&domain.UserModel{},
		&domain.ChatModel{},
		&domain.MessageModel{},
	)
}

// CreateUser creates a new user.
func (s *GormStore) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	model := domain.UserToModel(user)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return s.handleUserError(err)
	}
	user.CreatedAt = model.CreatedAt
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetUserByUsername retrieves a user by username.
func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var model domain.UserModel
	err := s.db.WithContext(ctx).First(&model, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateUser updates a user's mutable profile fields.
func (s *GormStore) UpdateUser(ctx context.Context, user *domain.User) error {
	result := s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":   user.Username,
			"bio":        user.Bio,
			"avatar_key": user.AvatarKey,
		})
	if result.Error != nil {
		return s.handleUserError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// QueryUsersBySubstring returns users whose username or email contains
// the given text, case-insensitive, excluding one user and capped at
// limit.
func (s *GormStore) QueryUsersBySubstring(ctx context.Context, text, excludeUserID string, limit int) ([]domain.UserSummary, error) {
	pattern := "%" + strings.ToLower(text) + "%"

	var models []domain.UserModel
	err := s.db.WithContext(ctx).
		Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ?) AND id <> ?", pattern, pattern, excludeUserID).
		Order("username").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserSummary, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain().ToSummary())
	}
	return out, nil
}

// SetUserPresence writes a user's online flag and, optionally, the
// last-active timestamp.
func (s *GormStore) SetUserPresence(ctx context.Context, userID string, isOnline bool, lastActive *time.Time) error {
	updates := map[string]interface{}{"is_online": isOnline}
	if lastActive != nil {
		updates["last_active"] = *lastActive
	}

	result := s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetUserPresence returns a user's persisted online flag.
func (s *GormStore) GetUserPresence(ctx context.Context, userID string) (bool, error) {
	var model domain.UserModel
	err := s.db.WithContext(ctx).Select("is_online").First(&model, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return model.IsOnline, nil
}

// CreateChat persists a chat with the given participant set.
func (s *GormStore) CreateChat(ctx context.Context, name string, isGroup bool, participantIDs []string) (*domain.Chat, error) {
	var users []domain.UserModel
	if err := s.db.WithContext(ctx).Find(&users, "id IN ?", participantIDs).Error; err != nil {
		return nil, err
	}
	if len(users) != len(participantIDs) {
		return nil, ErrUserNotFound
	}

	model := &domain.ChatModel{
		ID:           uuid.New().String(),
		Name:         name,
		IsGroup:      isGroup,
		Participants: users,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetChat retrieves a chat with its participants.
func (s *GormStore) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	var model domain.ChatModel
	err := s.db.WithContext(ctx).Preload("Participants").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListChatsForUser returns every chat the user participates in.
func (s *GormStore) ListChatsForUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	var models []domain.ChatModel
	err := s.db.WithContext(ctx).
		Joins("JOIN chat_participants cp ON cp.chat_model_id = chats.id").
		Where("cp.user_model_id = ?", userID).
		Preload("Participants").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Chat, 0, len(models))
	for i := range models {
		out = append(out, *models[i].ToDomain())
	}
	return out, nil
}

// CreateMessage persists a message.
func (s *GormStore) CreateMessage(ctx context.Context, chatID, senderID, text string) (*domain.Message, error) {
	model := &domain.MessageModel{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetMessage retrieves a single message by ID.
func (s *GormStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var model domain.MessageModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SetMessageImage attaches a stored image key to a message.
func (s *GormStore) SetMessageImage(ctx context.Context, messageID, imageKey string) error {
	result := s.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("id = ?", messageID).
		Update("image_key", imageKey)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ListMessagesForChat returns the most recent messages of a chat in
// chronological order.
func (s *GormStore) ListMessagesForChat(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []domain.MessageModel
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	out := make([]domain.Message, len(models))
	for i := range models {
		out[len(models)-1-i] = *models[i].ToDomain()
	}
	return out, nil
}

// handleUserError converts database-specific constraint errors to
// domain errors.
func (s *GormStore) handleUserError(err error) error {
	errStr := err.Error()

	if strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry") {
		if strings.Contains(errStr, "email") {
			return ErrEmailExists
		}
		if strings.Contains(errStr, "username") {
			return ErrUsernameExists
		}
	}
	return err
}
