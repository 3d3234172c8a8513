// Package platform adapts the Telegram Bot API to the narrow client the
// gating core depends on.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fsub_bot/internal/model"
)

// Error kinds reported by Client implementations.
var (
	ErrNotParticipant   = errors.New("user is not a participant")
	ErrForbidden        = errors.New("forbidden")
	ErrChatInaccessible = errors.New("chat inaccessible")
)

// InviteOptions controls invite link creation.
type InviteOptions struct {
	RequireJoinRequest bool
	ExpiresAt          time.Time
}

// Client is the messaging platform as seen by the gating core.
type Client interface {
	Member(ctx context.Context, chatID, userID int64) (model.Member, error)
	Chat(ctx context.Context, chatID int64) (model.ChatInfo, error)
	MemberCount(ctx context.Context, chatID int64) (int, error)
	CreateInviteLink(ctx context.Context, chatID int64, opts InviteOptions) (string, error)
}

// API is the subset of *tgbotapi.BotAPI used by Telegram.
type API interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error)
}

// Telegram implements Client over the Bot API.
type Telegram struct {
	api API
}

// NewTelegram wraps api.
func NewTelegram(api API) *Telegram {
	return &Telegram{api: api}
}

// Member returns userID's status in chatID.
func (t *Telegram) Member(ctx context.Context, chatID, userID int64) (model.Member, error) {
	if err := ctx.Err(); err != nil {
		return model.Member{}, err
	}
	m, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return model.Member{}, fmt.Errorf("get chat member: %w", Classify(err))
	}
	return model.Member{
		Status:         model.MemberStatus(m.Status),
		CanInviteUsers: m.Status == string(model.StatusCreator) || m.CanInviteUsers,
	}, nil
}

// Chat returns chat metadata.
func (t *Telegram) Chat(ctx context.Context, chatID int64) (model.ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatInfo{}, err
	}
	c, err := t.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return model.ChatInfo{}, fmt.Errorf("get chat: %w", Classify(err))
	}
	return model.ChatInfo{ID: c.ID, Title: c.Title, Username: c.UserName}, nil
}

// MemberCount returns the number of members of chatID.
func (t *Telegram) MemberCount(ctx context.Context, chatID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := t.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return 0, fmt.Errorf("get chat member count: %w", Classify(err))
	}
	return n, nil
}

// CreateInviteLink creates a new invite link for chatID.
func (t *Telegram) CreateInviteLink(ctx context.Context, chatID int64, opts InviteOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:         tgbotapi.ChatConfig{ChatID: chatID},
		CreatesJoinRequest: opts.RequireJoinRequest,
	}
	if !opts.ExpiresAt.IsZero() {
		cfg.ExpireDate = int(opts.ExpiresAt.Unix())
	}

	resp, err := t.api.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", Classify(err))
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return "", errors.New("create invite link: empty link in response")
	}
	return link.InviteLink, nil
}

// Classify maps Bot API errors onto the package error kinds. Errors it does
// not recognise are returned unchanged.
func Classify(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	desc := strings.ToLower(apiErr.Message)
	switch {
	case strings.Contains(desc, "user not found"),
		strings.Contains(desc, "participant_id_invalid"),
		strings.Contains(desc, "user_not_participant"),
		strings.Contains(desc, "member not found"):
		return fmt.Errorf("%w: %s", ErrNotParticipant, apiErr.Message)
	case strings.Contains(desc, "chat not found"),
		strings.Contains(desc, "channel_private"),
		strings.Contains(desc, "chat_admin_required"):
		return fmt.Errorf("%w: %s", ErrChatInaccessible, apiErr.Message)
	case apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
	}
	return err
}
