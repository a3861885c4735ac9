package service

import (
	"context"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/registry"
)

// TokenVerifier resolves a signed claim to a stored user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// SearchCache is an optional read-through cache for user search results.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]domain.UserSummary, error)
	Set(ctx context.Context, key string, users []domain.UserSummary) error
}

// ChatService handles every inbound realtime event. Responses and
// broadcasts are emitted to connection handles; the returned error is
// for logging only and is never itself delivered to a client.
type ChatService interface {
	HandleAuth(ctx context.Context, h registry.Handle, ev *domain.AuthEvent) error
	HandleHeartbeat(ctx context.Context, ev *domain.HeartbeatEvent) error
	HandleChatCreate(ctx context.Context, h registry.Handle, ev *domain.ChatCreateEvent) error
	HandleMessageCreate(ctx context.Context, h registry.Handle, ev *domain.MessageCreateEvent) error
	HandleGetOnlineUsers(ctx context.Context, h registry.Handle, ev *domain.GetOnlineUsersEvent) error
	HandleSearchUsers(ctx context.Context, h registry.Handle, ev *domain.SearchUsersEvent) error
	HandleDisconnect(ctx context.Context, h registry.Handle) error
}
