package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/registry"
)

type fixture struct {
	store    *fakeStore
	verifier *fakeVerifier
	registry *registry.Registry
	presence *Broadcaster
	svc      ChatService
}

func newFixture(t *testing.T, echoCreator bool) *fixture {
	t.Helper()
	store := newFakeStore()
	reg := registry.New()
	presence := NewBroadcaster(store, reg)
	verifier := newFakeVerifier(store)
	return &fixture{
		store:    store,
		verifier: verifier,
		registry: reg,
		presence: presence,
		svc:      NewChatService(store, reg, verifier, presence, nil, echoCreator),
	}
}

// authenticate runs a full auth event for the user and returns their
// connection handle.
func (f *fixture) authenticate(t *testing.T, userID string) *recordingHandle {
	t.Helper()
	h := newHandle("conn-" + userID)
	err := f.svc.HandleAuth(context.Background(), h, &domain.AuthEvent{
		Type:  domain.EventAuth,
		Token: f.verifier.tokenFor(userID),
	})
	require.NoError(t, err)
	return h
}

func TestHandleAuth_SuccessAndStatusBroadcast(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")
	f.store.addChat("c1", "u1", "u2")

	h2 := f.authenticate(t, "u2")

	h1 := f.authenticate(t, "u1")

	// alice gets her auth confirmation.
	success := eventsOfType[*domain.AuthSuccessEvent](h1)
	require.Len(t, success, 1)
	require.Equal(t, "u1", success[0].UserID)

	// bob, sharing a chat and online, is told alice came online.
	statuses := eventsOfType[*domain.UserStatusChangedEvent](h2)
	require.Len(t, statuses, 1)
	require.Equal(t, "u1", statuses[0].UserID)
	require.True(t, statuses[0].IsOnline)

	// Presence was written through to the store.
	online, err := f.store.GetUserPresence(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, online)
}

func TestHandleAuth_InvalidToken(t *testing.T) {
	f := newFixture(t, true)
	h := newHandle("conn-x")

	err := f.svc.HandleAuth(context.Background(), h, &domain.AuthEvent{
		Type:  domain.EventAuth,
		Token: "bogus",
	})
	require.Error(t, err)

	errs := eventsOfType[*domain.AuthErrorEvent](h)
	require.Len(t, errs, 1)
	require.Equal(t, "Invalid token", errs[0].Message)
	require.Equal(t, 0, f.registry.Len())
}

func TestHandleAuth_SecondConnectionDisplacesFirst(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")

	first := f.authenticate(t, "u1")

	second := newHandle("conn-u1-replacement")
	err := f.svc.HandleAuth(context.Background(), second, &domain.AuthEvent{
		Type:  domain.EventAuth,
		Token: f.verifier.tokenFor("u1"),
	})
	require.NoError(t, err)

	require.True(t, first.isClosed())
	require.Equal(t, 1, f.registry.Len())

	h, ok := f.registry.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "conn-u1-replacement", h.ID())
}

func TestHandleMessageCreate_BroadcastsToAllParticipants(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")
	f.store.addChat("c1", "u1", "u2")

	h1 := f.authenticate(t, "u1")
	h2 := f.authenticate(t, "u2")

	err := f.svc.HandleMessageCreate(context.Background(), h1, &domain.MessageCreateEvent{
		Type:   domain.EventMessageCreate,
		Token:  f.verifier.tokenFor("u1"),
		ChatID: "c1",
		Text:   "hi",
	})
	require.NoError(t, err)

	require.Equal(t, 1, f.store.messageCount())

	// Both participants receive the event, the sender included.
	for _, h := range []*recordingHandle{h1, h2} {
		msgs := eventsOfType[*domain.MessageCreatedEvent](h)
		require.Len(t, msgs, 1)
		require.Equal(t, "u1", msgs[0].Message.SenderID)
		require.Equal(t, "c1", msgs[0].Message.ChatID)
		require.Equal(t, "hi", msgs[0].Message.Text)
	}
}

func TestHandleMessageCreate_NonParticipantRejected(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")
	f.store.addUser("u3", "mallory")
	f.store.addChat("c1", "u1", "u2")

	h1 := f.authenticate(t, "u1")
	h3 := f.authenticate(t, "u3")

	err := f.svc.HandleMessageCreate(context.Background(), h3, &domain.MessageCreateEvent{
		Type:   domain.EventMessageCreate,
		Token:  f.verifier.tokenFor("u3"),
		ChatID: "c1",
		Text:   "x",
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	// Error goes only to the offender; the store is unchanged.
	require.Len(t, eventsOfType[*domain.ErrorEvent](h3), 1)
	require.Empty(t, eventsOfType[*domain.ErrorEvent](h1))
	require.Empty(t, eventsOfType[*domain.MessageCreatedEvent](h1))
	require.Equal(t, 0, f.store.messageCount())
}

func TestHandleMessageCreate_UnknownChat(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	h1 := f.authenticate(t, "u1")

	err := f.svc.HandleMessageCreate(context.Background(), h1, &domain.MessageCreateEvent{
		Type:   domain.EventMessageCreate,
		Token:  f.verifier.tokenFor("u1"),
		ChatID: "nope",
		Text:   "hi",
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, f.store.messageCount())
}

func TestHandleMessageCreate_EmptyTextRejected(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addChat("c1", "u1")
	h1 := f.authenticate(t, "u1")

	err := f.svc.HandleMessageCreate(context.Background(), h1, &domain.MessageCreateEvent{
		Type:   domain.EventMessageCreate,
		Token:  f.verifier.tokenFor("u1"),
		ChatID: "c1",
		Text:   "   ",
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, 0, f.store.messageCount())
}

func TestHandleMessageCreate_PersistBeforeBroadcast(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")
	f.store.addChat("c1", "u1", "u2")

	h1 := f.authenticate(t, "u1")
	h2 := f.authenticate(t, "u2")

	// When a recipient observes message:created, the message must
	// already be in the store.
	h2.onSend = func(v interface{}) {
		if _, ok := v.(*domain.MessageCreatedEvent); ok {
			require.Equal(t, 1, f.store.messageCount())
		}
	}

	err := f.svc.HandleMessageCreate(context.Background(), h1, &domain.MessageCreateEvent{
		Type:   domain.EventMessageCreate,
		Token:  f.verifier.tokenFor("u1"),
		ChatID: "c1",
		Text:   "hi",
	})
	require.NoError(t, err)
	require.Len(t, eventsOfType[*domain.MessageCreatedEvent](h2), 1)
}

func TestHandleChatCreate_FanOutWithCreatorEcho(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")
	f.store.addUser("u3", "carol")

	h1 := f.authenticate(t, "u1")
	h2 := f.authenticate(t, "u2")

	err := f.svc.HandleChatCreate(context.Background(), h1, &domain.ChatCreateEvent{
		Type:         domain.EventChatCreate,
		Token:        f.verifier.tokenFor("u1"),
		Participants: []string{"u2", "u3", "u2"},
		Name:         "trio",
		IsGroup:      true,
	})
	require.NoError(t, err)

	// Online invitee gets the event; u3 is offline so delivery is
	// deferred to the pull API.
	created := eventsOfType[*domain.ChatCreatedEvent](h2)
	require.Len(t, created, 1)
	require.ElementsMatch(t, []string{"u1", "u2", "u3"}, created[0].Chat.Participants)
	require.Equal(t, "trio", created[0].Chat.Name)

	// Creator echo is on.
	require.Len(t, eventsOfType[*domain.ChatCreatedEvent](h1), 1)
}

func TestHandleChatCreate_NoCreatorEcho(t *testing.T) {
	f := newFixture(t, false)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")

	h1 := f.authenticate(t, "u1")
	h2 := f.authenticate(t, "u2")

	err := f.svc.HandleChatCreate(context.Background(), h1, &domain.ChatCreateEvent{
		Type:         domain.EventChatCreate,
		Token:        f.verifier.tokenFor("u1"),
		Participants: []string{"u2"},
	})
	require.NoError(t, err)

	require.Len(t, eventsOfType[*domain.ChatCreatedEvent](h2), 1)
	require.Empty(t, eventsOfType[*domain.ChatCreatedEvent](h1))
}

func TestHandleChatCreate_UnknownParticipant(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	h1 := f.authenticate(t, "u1")

	err := f.svc.HandleChatCreate(context.Background(), h1, &domain.ChatCreateEvent{
		Type:         domain.EventChatCreate,
		Token:        f.verifier.tokenFor("u1"),
		Participants: []string{"ghost"},
	})
	require.ErrorIs(t, err, ErrNotFound)

	// Nothing was persisted.
	chats, listErr := f.store.ListChatsForUser(context.Background(), "u1")
	require.NoError(t, listErr)
	require.Empty(t, chats)
}

func TestHandleGetOnlineUsers(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")

	h1 := f.authenticate(t, "u1")

	err := f.svc.HandleGetOnlineUsers(context.Background(), h1, &domain.GetOnlineUsersEvent{
		Type:    domain.EventGetOnlineUsers,
		Token:   f.verifier.tokenFor("u1"),
		UserIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	resp := eventsOfType[*domain.OnlineUsersEvent](h1)
	require.Len(t, resp, 1)
	require.Equal(t, map[string]bool{"u1": true, "u2": false}, resp[0].Online)
}

func TestHandleSearchUsers(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "alicia")
	f.store.addUser("u3", "bob")

	h1 := f.authenticate(t, "u1")

	err := f.svc.HandleSearchUsers(context.Background(), h1, &domain.SearchUsersEvent{
		Type:   domain.EventSearchUsers,
		Token:  f.verifier.tokenFor("u1"),
		Search: "ali",
	})
	require.NoError(t, err)

	results := eventsOfType[*domain.SearchResultsEvent](h1)
	require.Len(t, results, 1)
	// The requester never appears in their own results.
	require.Len(t, results[0].Users, 1)
	require.Equal(t, "alicia", results[0].Users[0].Username)
}

func TestHandleSearchUsers_EmptyQuerySkipsStore(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	h1 := f.authenticate(t, "u1")

	err := f.svc.HandleSearchUsers(context.Background(), h1, &domain.SearchUsersEvent{
		Type:  domain.EventSearchUsers,
		Token: f.verifier.tokenFor("u1"),
	})
	require.NoError(t, err)

	results := eventsOfType[*domain.SearchResultsEvent](h1)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Users)
}

func TestHandleHeartbeat_FlipsPresenceWithoutBroadcast(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")
	f.store.addChat("c1", "u1", "u2")

	h2 := f.authenticate(t, "u2")
	f.authenticate(t, "u1")

	// Simulate the store thinking alice is offline.
	require.NoError(t, f.store.SetUserPresence(context.Background(), "u1", false, nil))
	before := len(eventsOfType[*domain.UserStatusChangedEvent](h2))

	err := f.svc.HandleHeartbeat(context.Background(), &domain.HeartbeatEvent{
		Type:  domain.EventHeartbeat,
		Token: f.verifier.tokenFor("u1"),
	})
	require.NoError(t, err)

	online, err := f.store.GetUserPresence(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, online)

	// The flip bypasses the broadcaster: bob was not notified.
	require.Len(t, eventsOfType[*domain.UserStatusChangedEvent](h2), before)
}

func TestHandleDisconnect_NotifiesContacts(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")
	f.store.addUser("u2", "bob")
	f.store.addChat("c1", "u1", "u2")

	h1 := f.authenticate(t, "u1")
	h2 := f.authenticate(t, "u2")

	err := f.svc.HandleDisconnect(context.Background(), h1)
	require.NoError(t, err)

	statuses := eventsOfType[*domain.UserStatusChangedEvent](h2)
	require.NotEmpty(t, statuses)
	last := statuses[len(statuses)-1]
	require.Equal(t, "u1", last.UserID)
	require.False(t, last.IsOnline)

	online, err := f.store.GetUserPresence(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, online)
	require.Equal(t, 1, f.registry.Len())
}

func TestHandleDisconnect_StaleHandleIsNoop(t *testing.T) {
	f := newFixture(t, true)
	f.store.addUser("u1", "alice")

	first := f.authenticate(t, "u1")

	second := newHandle("conn-u1-replacement")
	err := f.svc.HandleAuth(context.Background(), second, &domain.AuthEvent{
		Type:  domain.EventAuth,
		Token: f.verifier.tokenFor("u1"),
	})
	require.NoError(t, err)
	require.True(t, first.isClosed())

	// The displaced connection's disconnect must not take the fresh
	// connection offline.
	err = f.svc.HandleDisconnect(context.Background(), first)
	require.NoError(t, err)
	require.Equal(t, 1, f.registry.Len())

	h, ok := f.registry.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "conn-u1-replacement", h.ID())

	online, err := f.store.GetUserPresence(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, online)
}
