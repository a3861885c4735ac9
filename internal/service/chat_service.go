package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/registry"
	"github.com/rekew/web-dev-project/internal/repository"
	"github.com/rekew/web-dev-project/pkg/log"
)

// searchLimit caps user search results per request.
const searchLimit = 20

type chatService struct {
	store    repository.Store
	registry *registry.Registry
	verifier TokenVerifier
	presence *Broadcaster
	cache    SearchCache // nil when no cache is configured

	// echoCreator controls whether chat_create echoes chat:created to
	// the creator's own connection.
	echoCreator bool
}

// NewChatService wires the fan-out dispatcher and its collaborators.
func NewChatService(
	store repository.Store,
	reg *registry.Registry,
	verifier TokenVerifier,
	presence *Broadcaster,
	cache SearchCache,
	echoCreator bool,
) ChatService {
	return &chatService{
		store:       store,
		registry:    reg,
		verifier:    verifier,
		presence:    presence,
		cache:       cache,
		echoCreator: echoCreator,
	}
}

// HandleAuth registers the connection for the token's user. A prior
// connection of the same user is force-closed, then contacts are told
// the user came online.
func (s *chatService) HandleAuth(ctx context.Context, h registry.Handle, ev *domain.AuthEvent) error {
	user, err := s.verifier.Verify(ctx, ev.Token)
	if err != nil {
		h.Send(&domain.AuthErrorEvent{Type: domain.EventAuthError, Message: "Invalid token"})
		return fmt.Errorf("auth: %w", err)
	}

	if evicted := s.registry.Register(user.ID, h); evicted != nil {
		evicted.Close()
		log.Ctx(ctx).Info().
			Str(log.FieldUserID, user.ID).
			Str(log.FieldClientID, evicted.ID()).
			Msg("displaced previous connection")
	}

	h.Send(&domain.AuthSuccessEvent{Type: domain.EventAuthSuccess, UserID: user.ID})

	if err := s.presence.SetOnline(ctx, user.ID, true); err != nil {
		return fmt.Errorf("auth presence update: %w", err)
	}
	return nil
}

// HandleHeartbeat refreshes the connection's last-active timestamp. When
// the persisted presence flag is stale (offline), it is flipped back
// online with a direct store write.
//
// NOTE: this path deliberately bypasses the presence broadcaster, so
// contacts are not notified of the offline->online flip. That mirrors
// the historical behavior; see DESIGN.md before changing it.
func (s *chatService) HandleHeartbeat(ctx context.Context, ev *domain.HeartbeatEvent) error {
	user, err := s.verifier.Verify(ctx, ev.Token)
	if err != nil {
		// Heartbeat emits nothing, on success or failure.
		return fmt.Errorf("heartbeat: %w", err)
	}

	s.registry.Touch(user.ID)

	online, err := s.store.GetUserPresence(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("heartbeat presence read: %w", err)
	}
	if !online {
		now := time.Now()
		if err := s.store.SetUserPresence(ctx, user.ID, true, &now); err != nil {
			return fmt.Errorf("heartbeat presence write: %w", err)
		}
	}
	return nil
}

// HandleChatCreate validates the participant list, persists the chat,
// and fans chat:created out to every online member.
func (s *chatService) HandleChatCreate(ctx context.Context, h registry.Handle, ev *domain.ChatCreateEvent) error {
	user, err := s.verifier.Verify(ctx, ev.Token)
	if err != nil {
		h.Send(domain.NewErrorEvent("Unauthorized"))
		return fmt.Errorf("chat_create: %w", err)
	}

	// Every invited participant must exist; otherwise nothing persists.
	for _, id := range ev.Participants {
		if _, err := s.store.GetUserByID(ctx, id); err != nil {
			h.Send(domain.NewErrorEvent("User not found"))
			return fmt.Errorf("chat_create participant %s: %w", id, ErrNotFound)
		}
	}

	members := lo.Uniq(append(append([]string{}, ev.Participants...), user.ID))

	chat, err := s.store.CreateChat(ctx, ev.Name, ev.IsGroup, members)
	if err != nil {
		h.Send(domain.NewErrorEvent("Failed to create chat"))
		return fmt.Errorf("chat_create persist: %w", err)
	}

	event := &domain.ChatCreatedEvent{Type: domain.EventChatCreated, Chat: chat}

	for _, entry := range s.registry.Snapshot() {
		if entry.UserID == user.ID || !lo.Contains(members, entry.UserID) {
			continue
		}
		entry.Handle.Send(event)
	}

	// The creator's echo goes straight to the originating connection, so
	// it arrives even when the creator has not completed auth on it.
	if s.echoCreator {
		h.Send(event)
	}

	log.Ctx(ctx).Info().
		Str(log.FieldUserID, user.ID).
		Str(log.FieldChatID, chat.ID).
		Int("participants", len(members)).
		Msg("chat created")
	return nil
}

// HandleMessageCreate authorizes the sender against the chat's
// participant set, persists the message, and only then broadcasts
// message:created to every online participant.
func (s *chatService) HandleMessageCreate(ctx context.Context, h registry.Handle, ev *domain.MessageCreateEvent) error {
	user, err := s.verifier.Verify(ctx, ev.Token)
	if err != nil {
		h.Send(domain.NewErrorEvent("Unauthorized"))
		return fmt.Errorf("message_create: %w", err)
	}

	if strings.TrimSpace(ev.Text) == "" {
		h.Send(domain.NewErrorEvent("Text is required"))
		return fmt.Errorf("message_create: %w", ErrValidation)
	}

	chat, err := s.store.GetChat(ctx, ev.ChatID)
	if err != nil {
		h.Send(domain.NewErrorEvent("Chat not found"))
		return fmt.Errorf("message_create chat %s: %w", ev.ChatID, ErrNotFound)
	}

	if !chat.HasParticipant(user.ID) {
		h.Send(domain.NewErrorEvent("Not a participant of this chat"))
		return fmt.Errorf("message_create chat %s user %s: %w", chat.ID, user.ID, ErrUnauthorized)
	}

	// Persistence must complete before any broadcast: a recipient never
	// observes an event for an unpersisted message.
	message, err := s.store.CreateMessage(ctx, chat.ID, user.ID, ev.Text)
	if err != nil {
		h.Send(domain.NewErrorEvent("Failed to send message"))
		return fmt.Errorf("message_create persist: %w", err)
	}

	event := &domain.MessageCreatedEvent{Type: domain.EventMessageCreated, Message: message}

	for _, entry := range s.registry.Snapshot() {
		if chat.HasParticipant(entry.UserID) {
			entry.Handle.Send(event)
		}
	}

	s.registry.Touch(user.ID)
	return nil
}

// HandleGetOnlineUsers answers straight from the registry.
func (s *chatService) HandleGetOnlineUsers(ctx context.Context, h registry.Handle, ev *domain.GetOnlineUsersEvent) error {
	if _, err := s.verifier.Verify(ctx, ev.Token); err != nil {
		h.Send(domain.NewErrorEvent("Unauthorized"))
		return fmt.Errorf("get_online_users: %w", err)
	}

	h.Send(&domain.OnlineUsersEvent{
		Type:   domain.EventOnlineUsers,
		Online: s.registry.Online(ev.UserIDs),
	})
	return nil
}

// HandleSearchUsers runs a capped, case-insensitive substring search and
// answers the requester only.
func (s *chatService) HandleSearchUsers(ctx context.Context, h registry.Handle, ev *domain.SearchUsersEvent) error {
	user, err := s.verifier.Verify(ctx, ev.Token)
	if err != nil {
		h.Send(domain.NewErrorEvent("Unauthorized"))
		return fmt.Errorf("search_users: %w", err)
	}

	if ev.Search == "" {
		h.Send(&domain.SearchResultsEvent{Type: domain.EventSearchResults, Users: []domain.UserSummary{}})
		return nil
	}

	users, err := s.searchUsers(ctx, user.ID, ev.Search)
	if err != nil {
		h.Send(domain.NewErrorEvent("Search failed"))
		return fmt.Errorf("search_users query: %w", err)
	}

	h.Send(&domain.SearchResultsEvent{Type: domain.EventSearchResults, Users: users})
	return nil
}

func (s *chatService) searchUsers(ctx context.Context, requesterID, search string) ([]domain.UserSummary, error) {
	key := fmt.Sprintf("user_search:%s:%s", requesterID, strings.ToLower(search))

	if s.cache != nil {
		if users, err := s.cache.Get(ctx, key); err == nil {
			return users, nil
		}
	}

	users, err := s.store.QueryUsersBySubstring(ctx, search, requesterID, searchLimit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, users); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to cache search results")
		}
	}
	return users, nil
}

// HandleDisconnect tears down the connection's registration and tells
// contacts the user went offline. Handles that were already displaced by
// a newer connection unregister nothing.
func (s *chatService) HandleDisconnect(ctx context.Context, h registry.Handle) error {
	userID, ok := s.registry.Unregister(h)
	if !ok {
		return nil
	}

	if err := s.presence.SetOnline(ctx, userID, false); err != nil {
		return fmt.Errorf("disconnect presence update: %w", err)
	}
	return nil
}
