package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ExpiredTokenStore is a denylist that needs explicit cleanup.
type ExpiredTokenStore interface {
	PruneExpired(ctx context.Context, before time.Time) (int64, error)
}

// Pruner periodically deletes denylist entries whose tokens have expired anyway.
type Pruner struct {
	store    ExpiredTokenStore
	schedule cron.Schedule
	now      func() time.Time
	done     chan struct{}
	stopped  chan struct{}
}

// NewPruner creates a pruner running on the given cron spec.
func NewPruner(store ExpiredTokenStore, spec string) (*Pruner, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	return &Pruner{
		store:    store,
		schedule: schedule,
		now:      time.Now,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Run prunes once immediately and then on every scheduled tick until Stop.
func (p *Pruner) Run() {
	defer close(p.stopped)
	log.Info().Msg("Starting background denylist pruner...")

	p.PruneOnce(context.Background())

	for {
		now := p.now()
		timer := time.NewTimer(p.schedule.Next(now).Sub(now))
		select {
		case <-p.done:
			timer.Stop()
			log.Info().Msg("Stopping background denylist pruner.")
			return
		case <-timer.C:
			p.PruneOnce(context.Background())
		}
	}
}

// Stop halts the pruner and waits for Run to return.
func (p *Pruner) Stop() {
	close(p.done)
	<-p.stopped
}

// PruneOnce deletes every entry that expired before now.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := p.store.PruneExpired(ctx, p.now())
	if err != nil {
		log.Error().Err(err).Msg("Pruner: failed to prune revoked tokens")
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("pruned", n).Msg("Pruner: removed expired revoked tokens")
	}
	return n, nil
}
