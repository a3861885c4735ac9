package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/registry"
	"github.com/rekew/web-dev-project/internal/repository"
	"github.com/rekew/web-dev-project/pkg/log"
)

// Broadcaster turns registry changes into user_status_changed emissions.
// The persisted presence flag is written through first; emission is best
// effort per recipient and never rolled back.
type Broadcaster struct {
	store    repository.Store
	registry *registry.Registry
}

// NewBroadcaster creates a presence broadcaster.
func NewBroadcaster(store repository.Store, reg *registry.Registry) *Broadcaster {
	return &Broadcaster{store: store, registry: reg}
}

// SetOnline writes the user's presence state and notifies every contact
// currently holding a live connection. A contact is any other participant
// across all chats the user belongs to, deduplicated.
func (b *Broadcaster) SetOnline(ctx context.Context, userID string, online bool) error {
	l := log.Ctx(ctx)

	var lastActive *time.Time
	if online {
		now := time.Now()
		lastActive = &now
	}
	if err := b.store.SetUserPresence(ctx, userID, online, lastActive); err != nil {
		return err
	}

	contacts, err := b.ContactSet(ctx, userID)
	if err != nil {
		return err
	}

	event := &domain.UserStatusChangedEvent{
		Type:     domain.EventUserStatusChanged,
		UserID:   userID,
		IsOnline: online,
	}

	// Emission walks a snapshot, never the live registry, so a slow
	// recipient cannot stall registrations.
	for _, entry := range b.registry.Snapshot() {
		if !lo.Contains(contacts, entry.UserID) {
			continue
		}
		if err := entry.Handle.Send(event); err != nil {
			l.Warn().
				Str(log.FieldUserID, entry.UserID).
				Err(err).
				Msg("failed to deliver status change")
		}
	}
	return nil
}

// ContactSet computes the other participants across all chats the user
// belongs to, self excluded, duplicates collapsed.
func (b *Broadcaster) ContactSet(ctx context.Context, userID string) ([]string, error) {
	chats, err := b.store.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	all := lo.FlatMap(chats, func(c domain.Chat, _ int) []string {
		return c.Participants
	})
	return lo.Uniq(lo.Without(all, userID)), nil
}
