// Package jobs runs the background maintenance tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/microblog-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Pruner deletes activity events older than the retention period on a cron schedule.
type Pruner struct {
	events    services.EventServiceProvider
	retention time.Duration
	spec      string
	now       func() time.Time
}

// NewPruner creates a pruner that keeps events for retention and runs on the
// standard cron spec (descriptors such as "@hourly" are accepted).
func NewPruner(events services.EventServiceProvider, retention time.Duration, spec string) *Pruner {
	return &Pruner{
		events:    events,
		retention: retention,
		spec:      spec,
		now:       time.Now,
	}
}

// Run schedules the job and blocks until ctx is cancelled. Any run in flight
// is allowed to finish before Run returns.
func (p *Pruner) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(p.spec, func() { p.PruneOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.spec, err)
	}

	log.Info().Str("schedule", p.spec).Dur("retention", p.retention).Msg("Starting activity pruner")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("Stopped activity pruner")
	return nil
}

// PruneOnce deletes every event older than the retention period.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.events.PruneBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("Failed to prune activity events")
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("Pruned activity events")
	}
	return n, nil
}
