package service

import (
	"context"
	"time"

	"github.com/rekew/web-dev-project/internal/registry"
	"github.com/rekew/web-dev-project/pkg/log"
)

// Reaper periodically evicts connections that have gone silent past the
// staleness threshold. Each eviction is independent: a store failure on
// one record is logged and the tick carries on with the rest.
type Reaper struct {
	registry  *registry.Registry
	presence  *Broadcaster
	tick      time.Duration
	threshold time.Duration

	// now is swappable for tests.
	now func() time.Time

	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewReaper creates an inactivity reaper.
func NewReaper(reg *registry.Registry, presence *Broadcaster, tick, threshold time.Duration) *Reaper {
	return &Reaper{
		registry:  reg,
		presence:  presence,
		tick:      tick,
		threshold: threshold,
		now:       time.Now,
	}
}

// Start launches the periodic task. It runs until the given context is
// cancelled or Stop is called.
func (r *Reaper) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.stopped = make(chan struct{})

	go r.run(ctx)
	log.L().Info().
		Dur("tick", r.tick).
		Dur("threshold", r.threshold).
		Msg("inactivity reaper started")
}

// Stop cancels the periodic task and waits for the current tick to
// finish, so no eviction is left half-applied.
func (r *Reaper) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.stopped
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.stopped)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep evicts every stale record in the current registry snapshot.
func (r *Reaper) Sweep(ctx context.Context) {
	now := r.now()

	for _, entry := range r.registry.Snapshot() {
		if now.Sub(entry.LastActive) <= r.threshold {
			continue
		}

		entry.Handle.Close()

		userID, ok := r.registry.Unregister(entry.Handle)
		if !ok {
			// Already replaced or torn down by a handler; nothing to do.
			continue
		}

		if err := r.presence.SetOnline(ctx, userID, false); err != nil {
			log.Ctx(ctx).Error().
				Str(log.FieldUserID, userID).
				Err(err).
				Msg("failed to mark evicted user offline")
			continue
		}

		log.Ctx(ctx).Info().
			Str(log.FieldUserID, userID).
			Time("last_active", entry.LastActive).
			Msg("evicted stale connection")
	}
}
