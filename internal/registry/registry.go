// Package registry holds the in-memory map of user identity to live
// connection handle. It is the only shared mutable state in the realtime
// core: handlers and the reaper all go through it.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Handle is a live connection endpoint. The registry never sends through
// a handle itself; callers take a Snapshot and emit outside the lock.
type Handle interface {
	// ID uniquely identifies the underlying connection.
	ID() string
	// Send delivers one event to the peer, best effort.
	Send(v interface{}) error
	// Close force-closes the connection.
	Close() error
}

// Entry is a point-in-time copy of one registered connection.
type Entry struct {
	UserID     string
	Handle     Handle
	LastActive time.Time
}

type record struct {
	handle     Handle
	lastActive time.Time
}

// Registry maps a user ID to at most one live connection handle.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*record
	byConn map[string]string // handle ID -> user ID

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty Registry.
func New() *Registry {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty Registry with a custom time source,
// used to make staleness deterministic in tests.
func NewWithClock(now func() time.Time) *Registry {
	return &Registry{
		byUser: make(map[string]*record),
		byConn: make(map[string]string),
		now:    now,
	}
}

// Register inserts or overwrites the record for userID. When the user
// already had a different connection, the displaced handle is returned so
// the caller can force-close it; the at-most-one-connection invariant
// holds the moment Register returns.
func (r *Registry) Register(userID string, h Handle) (evicted Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		if prev.handle.ID() == h.ID() {
			prev.lastActive = r.now()
			return nil
		}
		evicted = prev.handle
		delete(r.byConn, prev.handle.ID())
	}

	r.byUser[userID] = &record{handle: h, lastActive: r.now()}
	r.byConn[h.ID()] = userID
	return evicted
}

// Touch updates the user's last-active timestamp. No-op if the user has
// no registered connection.
func (r *Registry) Touch(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.byUser[userID]; ok {
		rec.lastActive = r.now()
	}
}

// Unregister removes the record owning the given handle and returns the
// user it belonged to. A stale handle (already displaced by a newer
// Register) removes nothing.
func (r *Registry) Unregister(h Handle) (userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.byConn[h.ID()]
	if !ok {
		return "", false
	}
	delete(r.byConn, h.ID())
	delete(r.byUser, userID)
	return userID, true
}

// Lookup returns the live handle for userID, if any.
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	return rec.handle, true
}

// Online reports whether each of the given users currently has a live
// connection.
func (r *Registry) Online(userIDs []string) map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		_, ok := r.byUser[id]
		out[id] = ok
	}
	return out
}

// Snapshot returns a consistent point-in-time copy of all records,
// ordered by user ID. Emission happens against the snapshot, never while
// holding the registry lock.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.byUser))
	for userID, rec := range r.byUser {
		entries = append(entries, Entry{
			UserID:     userID,
			Handle:     rec.handle,
			LastActive: rec.lastActive,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
