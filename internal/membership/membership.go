// Package membership answers "is this user in that channel" for gating.
package membership

import (
	"context"
	"errors"
	"log/slog"

	"fsub_bot/internal/model"
	"fsub_bot/internal/platform"
)

// Checker queries the platform for membership. It fails closed: any error is
// reported as "not a member".
type Checker struct {
	client platform.Client
	botID  int64
	log    *slog.Logger
}

// NewChecker creates a Checker. botID is the bot's own user id.
func NewChecker(client platform.Client, botID int64, log *slog.Logger) *Checker {
	return &Checker{client: client, botID: botID, log: log}
}

// IsMember reports whether userID counts as a member of chatID.
func (c *Checker) IsMember(ctx context.Context, chatID, userID int64) bool {
	m, err := c.client.Member(ctx, chatID, userID)
	if err != nil {
		c.log.Debug("membership lookup failed",
			"chat_id", chatID, "user_id", userID, "kind", errorKind(err), "error", err)
		return false
	}
	return m.Joined()
}

// BotStatus returns the bot's own standing in chatID.
func (c *Checker) BotStatus(ctx context.Context, chatID int64) (model.Member, error) {
	return c.client.Member(ctx, chatID, c.botID)
}

// IsBotAdmin reports whether the bot administers chatID.
func (c *Checker) IsBotAdmin(ctx context.Context, chatID int64) bool {
	m, err := c.BotStatus(ctx, chatID)
	if err != nil {
		c.log.Warn("could not verify bot admin status", "chat_id", chatID, "error", err)
		return false
	}
	if !m.IsAdmin() {
		c.log.Warn("bot is not admin in channel, skipping", "chat_id", chatID, "status", m.Status)
		return false
	}
	return true
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, platform.ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, platform.ErrForbidden):
		return "forbidden"
	case errors.Is(err, platform.ErrChatInaccessible):
		return "chat_inaccessible"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "protocol"
}
