// Package scheduler runs the periodic housekeeping of in-memory state.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"fsub_bot/internal/workflow"
)

// DefaultTick is how often timed-out sessions are swept.
const DefaultTick = 5 * time.Second

// Expirer aborts workflow sessions past their deadline.
type Expirer interface {
	Expire(now time.Time) []workflow.Result
}

// Pruner drops expired user passes.
type Pruner interface {
	Prune(now time.Time) int
}

// Notifier tells an operator that their session ended.
type Notifier interface {
	WorkflowEnded(ctx context.Context, res workflow.Result)
}

// Scheduler periodically expires workflow sessions and prunes passes.
type Scheduler struct {
	sessions Expirer
	passes   Pruner
	notifier Notifier
	log      *slog.Logger
	tick     time.Duration
	now      func() time.Time
}

// New creates a Scheduler ticking every DefaultTick.
func New(sessions Expirer, passes Pruner, notifier Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		sessions: sessions,
		passes:   passes,
		notifier: notifier,
		log:      log,
		tick:     DefaultTick,
		now:      time.Now,
	}
}

// SetTickInterval overrides the default interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	now := s.now()

	for _, res := range s.sessions.Expire(now) {
		if ctx.Err() != nil {
			return
		}
		s.log.Info("workflow timed out", "session_id", res.SessionID, "user_id", res.OperatorID, "op", res.Op)
		s.notifier.WorkflowEnded(ctx, res)
	}

	if n := s.passes.Prune(now); n > 0 {
		s.log.Debug("pruned expired passes", "count", n)
	}
}
