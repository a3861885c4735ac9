package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/repository"
)

// fakeStore is an in-memory repository.Store with error injection.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]*domain.User
	chats      map[string]*domain.Chat
	messages   []*domain.Message
	presence   map[string]bool
	lastActive map[string]time.Time

	// failPresenceFor injects SetUserPresence failures per user.
	failPresenceFor map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:           make(map[string]*domain.User),
		chats:           make(map[string]*domain.Chat),
		presence:        make(map[string]bool),
		lastActive:      make(map[string]time.Time),
		failPresenceFor: make(map[string]bool),
	}
}

func (s *fakeStore) addUser(id, username string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: id, Username: username, Email: username + "@example.com"}
	s.users[id] = u
	return u
}

func (s *fakeStore) addChat(id string, participants ...string) *domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &domain.Chat{ID: id, Participants: participants}
	s.chats[id] = c
	return c
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *fakeStore) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeStore) QueryUsersBySubstring(ctx context.Context, text, excludeUserID string, limit int) ([]domain.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(text)
	var out []domain.UserSummary
	for _, u := range s.users {
		if u.ID == excludeUserID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) {
			out = append(out, u.ToSummary())
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) SetUserPresence(ctx context.Context, userID string, isOnline bool, lastActive *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPresenceFor[userID] {
		return fmt.Errorf("store unavailable for %s", userID)
	}
	s.presence[userID] = isOnline
	if lastActive != nil {
		s.lastActive[userID] = *lastActive
	}
	return nil
}

func (s *fakeStore) GetUserPresence(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return false, repository.ErrUserNotFound
	}
	return s.presence[userID], nil
}

func (s *fakeStore) CreateChat(ctx context.Context, name string, isGroup bool, participantIDs []string) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &domain.Chat{
		ID:           uuid.New().String(),
		Name:         name,
		IsGroup:      isGroup,
		Participants: participantIDs,
		CreatedAt:    time.Now(),
	}
	s.chats[c.ID] = c
	return c, nil
}

func (s *fakeStore) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	return c, nil
}

func (s *fakeStore) ListChatsForUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Chat
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateMessage(ctx context.Context, chatID, senderID, text string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &domain.Message{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
		SentAt:   time.Now(),
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *fakeStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repository.ErrMessageNotFound
}

func (s *fakeStore) SetMessageImage(ctx context.Context, messageID, imageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == messageID {
			m.ImageKey = imageKey
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (s *fakeStore) ListMessagesForChat(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	return out, nil
}

// fakeVerifier maps raw token strings to user IDs resolved against the
// fake store.
type fakeVerifier struct {
	store  *fakeStore
	tokens map[string]string // token -> user ID
}

func newFakeVerifier(store *fakeStore) *fakeVerifier {
	return &fakeVerifier{store: store, tokens: make(map[string]string)}
}

func (v *fakeVerifier) tokenFor(userID string) string {
	token := "token-" + userID
	v.tokens[token] = userID
	return token
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (*domain.User, error) {
	userID, ok := v.tokens[token]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return v.store.GetUserByID(ctx, userID)
}

// recordingHandle captures everything sent through it.
type recordingHandle struct {
	id string

	mu     sync.Mutex
	sent   []interface{}
	closed bool

	// onSend, when set, observes each event before it is recorded.
	onSend func(v interface{})
}

func newHandle(id string) *recordingHandle {
	return &recordingHandle{id: id}
}

func (h *recordingHandle) ID() string { return h.id }

func (h *recordingHandle) Send(v interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.onSend != nil {
		h.onSend(v)
	}
	h.sent = append(h.sent, v)
	return nil
}

func (h *recordingHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *recordingHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *recordingHandle) events() []interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]interface{}{}, h.sent...)
}

// eventsOfType filters recorded events down to one concrete type.
func eventsOfType[T any](h *recordingHandle) []T {
	var out []T
	for _, e := range h.events() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
