// Package gate decides whether a user may use the bot: the validated channel
// configuration cache, the missing-channel evaluator and the per-user pass cache.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"fsub_bot/internal/model"
	"fsub_bot/internal/storage"
)

// DefaultRefreshWindow is how long a validated configuration is reused.
const DefaultRefreshWindow = 60 * time.Second

// DefaultRefreshTimeout bounds a single refresh, independent of the caller.
const DefaultRefreshTimeout = 30 * time.Second

// Snapshot is a validated view of the gating configuration. Snapshots are
// immutable once published.
type Snapshot struct {
	RefreshedAt  time.Time
	ForceSub     []int64
	ReqSub       []model.ReqSubEntry
	TrackedLinks []string
}

// IsTrackedLink reports whether link is in the tracked list.
func (s *Snapshot) IsTrackedLink(link string) bool {
	for _, l := range s.TrackedLinks {
		if l == link {
			return true
		}
	}
	return false
}

// AdminChecker reports whether the bot administers a channel.
type AdminChecker interface {
	IsBotAdmin(ctx context.Context, chatID int64) bool
}

// ConfigCache serves the validated configuration, refreshing it from the
// store at most once per window and keeping only channels the bot administers.
type ConfigCache struct {
	vars    *storage.Vars
	admins  AdminChecker
	window  time.Duration
	timeout time.Duration
	log     *slog.Logger

	snap  atomic.Pointer[Snapshot]
	gen   atomic.Uint64
	group singleflight.Group
}

// NewConfigCache creates an empty cache; the first Get refreshes it.
func NewConfigCache(vars *storage.Vars, admins AdminChecker, window time.Duration, log *slog.Logger) *ConfigCache {
	if window <= 0 {
		window = DefaultRefreshWindow
	}
	c := &ConfigCache{vars: vars, admins: admins, window: window, timeout: DefaultRefreshTimeout, log: log}
	c.snap.Store(&Snapshot{})
	return c
}

// Get returns the current snapshot, refreshing it when older than the window
// or invalidated.
func (c *ConfigCache) Get(ctx context.Context, now time.Time) (*Snapshot, error) {
	if s := c.snap.Load(); c.fresh(s, now) {
		return s, nil
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// Another caller may have refreshed while we waited.
		if s := c.snap.Load(); c.fresh(s, now) {
			return s, nil
		}
		gen := c.gen.Load()
		// Waiters share this refresh, so it must not inherit one caller's deadline.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		s, err := c.load(refreshCtx, now)
		if err != nil {
			return nil, err
		}
		if c.gen.Load() != gen {
			// Invalidated mid-refresh: serve it once but refresh again next time.
			s.RefreshedAt = time.Time{}
		}
		c.snap.Store(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// SetRefreshTimeout overrides DefaultRefreshTimeout.
func (c *ConfigCache) SetRefreshTimeout(d time.Duration) {
	c.timeout = d
}

// Invalidate forces the next Get to refresh regardless of age.
func (c *ConfigCache) Invalidate() {
	c.gen.Add(1)
	stale := *c.snap.Load()
	stale.RefreshedAt = time.Time{}
	c.snap.Store(&stale)
}

func (c *ConfigCache) fresh(s *Snapshot, now time.Time) bool {
	return !s.RefreshedAt.IsZero() && now.Sub(s.RefreshedAt) < c.window
}

func (c *ConfigCache) load(ctx context.Context, now time.Time) (*Snapshot, error) {
	rawForce, err := c.vars.GetString(ctx, model.KeyForceSub, "")
	if err != nil {
		return nil, fmt.Errorf("read force-sub list: %w", err)
	}
	rawReq, err := c.vars.GetString(ctx, model.KeyReqSub, "")
	if err != nil {
		return nil, fmt.Errorf("read req-sub list: %w", err)
	}
	links, err := c.vars.GetStrings(ctx, model.KeyTrackedLinks, nil)
	if err != nil {
		return nil, fmt.Errorf("read tracked links: %w", err)
	}

	s := &Snapshot{RefreshedAt: now, TrackedLinks: links}
	for _, id := range model.ParseIDList(rawForce) {
		if c.admins.IsBotAdmin(ctx, id) {
			s.ForceSub = append(s.ForceSub, id)
		}
	}
	for _, e := range model.ParseReqSub(rawReq) {
		if e.InviteLink != "" && c.admins.IsBotAdmin(ctx, e.ChannelID) {
			s.ReqSub = append(s.ReqSub, e)
		}
	}
	// An expired refresh looks like "not admin" for every remaining channel.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refresh gating config: %w", err)
	}

	c.log.Debug("gating config refreshed",
		"force_sub", len(s.ForceSub),
		"req_sub", len(s.ReqSub),
		"tracked_links", len(s.TrackedLinks),
	)
	return s, nil
}
