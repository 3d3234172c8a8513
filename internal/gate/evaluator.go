package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fsub_bot/internal/model"
	"fsub_bot/internal/platform"
)

// DefaultInviteTTL is the lifetime of invite links minted for force-sub channels.
const DefaultInviteTTL = 5 * time.Minute

// Placeholder names used when chat metadata cannot be fetched.
const (
	fallbackForceSubName = "Channel"
	fallbackReqSubName   = "Join Channel"
)

// MembershipChecker reports channel membership.
type MembershipChecker interface {
	IsMember(ctx context.Context, chatID, userID int64) bool
}

// RequestTracker reports whether a user requested to join via a link.
type RequestTracker interface {
	IsTracked(ctx context.Context, link string, userID int64) (bool, error)
}

// Evaluator computes the channels a user is still missing.
type Evaluator struct {
	cache     *ConfigCache
	members   MembershipChecker
	tracker   RequestTracker
	client    platform.Client
	inviteTTL time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewEvaluator creates an Evaluator. now is the clock used for cache ages and
// invite expiry.
func NewEvaluator(
	cache *ConfigCache,
	members MembershipChecker,
	tracker RequestTracker,
	client platform.Client,
	inviteTTL time.Duration,
	now func() time.Time,
	log *slog.Logger,
) *Evaluator {
	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		cache:     cache,
		members:   members,
		tracker:   tracker,
		client:    client,
		inviteTTL: inviteTTL,
		now:       now,
		log:       log,
	}
}

// Missing returns the channels userID still has to join, force-sub first, in
// configuration order. An empty result means the user is gated in. Only a
// failure to load the configuration is returned as an error.
func (e *Evaluator) Missing(ctx context.Context, userID int64) ([]model.MissingChannel, error) {
	snap, err := e.cache.Get(ctx, e.now())
	if err != nil {
		return nil, fmt.Errorf("load gating config: %w", err)
	}

	var missing []model.MissingChannel
	for _, id := range snap.ForceSub {
		if e.members.IsMember(ctx, id, userID) {
			continue
		}
		missing = append(missing, e.forceSubEntry(ctx, id))
	}

	for _, entry := range snap.ReqSub {
		if e.members.IsMember(ctx, entry.ChannelID, userID) {
			continue
		}
		if snap.IsTrackedLink(entry.InviteLink) {
			requested, err := e.tracker.IsTracked(ctx, entry.InviteLink, userID)
			if err != nil {
				e.log.Warn("read join request roster", "link", entry.InviteLink, "error", err)
			}
			if requested {
				continue
			}
		}
		missing = append(missing, e.reqSubEntry(ctx, entry))
	}
	return missing, nil
}

func (e *Evaluator) forceSubEntry(ctx context.Context, id int64) model.MissingChannel {
	m := model.MissingChannel{Kind: model.KindForceSub, ChannelID: id, Name: fallbackForceSubName}

	chat, err := e.client.Chat(ctx, id)
	if err != nil {
		e.log.Debug("chat lookup failed", "chat_id", id, "error", err)
		m.URL = model.DeepLink(id, "")
		return m
	}
	if chat.Title != "" {
		m.Name = chat.Title
	}
	if chat.IsPublic() || !model.IsPrivateChannelID(id) {
		m.URL = model.DeepLink(id, chat.Username)
		return m
	}

	link, err := e.client.CreateInviteLink(ctx, id, platform.InviteOptions{
		ExpiresAt: e.now().Add(e.inviteTTL),
	})
	if err != nil {
		e.log.Debug("create temporary invite link", "chat_id", id, "error", err)
		m.URL = model.DeepLink(id, "")
		return m
	}
	m.URL = link
	return m
}

func (e *Evaluator) reqSubEntry(ctx context.Context, entry model.ReqSubEntry) model.MissingChannel {
	m := model.MissingChannel{
		Kind:      model.KindRequestSub,
		ChannelID: entry.ChannelID,
		Name:      fallbackReqSubName,
		URL:       entry.InviteLink,
	}
	if chat, err := e.client.Chat(ctx, entry.ChannelID); err == nil && chat.Title != "" {
		m.Name = chat.Title
	}
	return m
}
