package domain

// WebSocket event types from client.
const (
	EventAuth           = "auth"
	EventHeartbeat      = "heartbeat"
	EventChatCreate     = "chat_create"
	EventMessageCreate  = "message_create"
	EventGetOnlineUsers = "get_online_users"
	EventSearchUsers    = "search_users"
)

// WebSocket event types to client.
const (
	EventAuthSuccess       = "auth_success"
	EventAuthError         = "auth_error"
	EventError             = "error"
	EventChatCreated       = "chat:created"
	EventMessageCreated    = "message:created"
	EventUserStatusChanged = "user_status_changed"
	EventOnlineUsers       = "online_users"
	EventSearchResults     = "search_results"
)

// BaseEvent carries the discriminator for all inbound WebSocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events. Every payload carries the signed token; the
// claim, not the transport connection, proves identity.

type AuthEvent struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type HeartbeatEvent struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type ChatCreateEvent struct {
	Type         string   `json:"type"`
	Token        string   `json:"token"`
	Participants []string `json:"participants"`
	Name         string   `json:"name,omitempty"`
	IsGroup      bool     `json:"is_group,omitempty"`
}

type MessageCreateEvent struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type GetOnlineUsersEvent struct {
	Type    string   `json:"type"`
	Token   string   `json:"token"`
	UserIDs []string `json:"user_ids"`
}

type SearchUsersEvent struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	Search string `json:"search"`
}

// Server -> Client events.

type AuthSuccessEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type AuthErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ChatCreatedEvent struct {
	Type string `json:"type"`
	Chat *Chat  `json:"chat"`
}

type MessageCreatedEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

type UserStatusChangedEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// OnlineUsersEvent answers get_online_users. The per-user flags sit
// under a fixed "online" key, keeping the event's top-level shape
// static like every other outbound event.
type OnlineUsersEvent struct {
	Type   string          `json:"type"`
	Online map[string]bool `json:"online"`
}

type SearchResultsEvent struct {
	Type  string        `json:"type"`
	Users []UserSummary `json:"users"`
}

// NewErrorEvent builds an error emission for the originating connection.
func NewErrorEvent(message string) *ErrorEvent {
	return &ErrorEvent{Type: EventError, Message: message}
}
