// Package bot is the Telegram surface: it routes updates to the gatekeeper,
// the admin workflow and the join request tracker, and renders their results.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fsub_bot/internal/model"
	"fsub_bot/internal/platform"
	"fsub_bot/internal/storage"
	"fsub_bot/internal/workflow"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Gate decides whether a user may proceed.
type Gate interface {
	Check(ctx context.Context, userID int64) ([]model.MissingChannel, error)
	Recheck(ctx context.Context, userID int64) ([]model.MissingChannel, error)
}

// Workflows drives operator sessions.
type Workflows interface {
	Start(ctx context.Context, operatorID int64, op workflow.Op) (workflow.Result, error)
	Handle(ctx context.Context, operatorID int64, ev workflow.Event) (workflow.Result, bool)
	Cancel(operatorID int64) (workflow.Result, bool)
	Active(operatorID int64) bool
}

// Operators resolves who may administer the bot.
type Operators interface {
	IsOperator(ctx context.Context, userID int64) (bool, error)
	AddAdmin(ctx context.Context, id int64) (bool, error)
}

// JoinRequests records and counts join requests on tracked links.
type JoinRequests interface {
	Record(ctx context.Context, link string, userID int64) (bool, error)
	Count(ctx context.Context, link string) (int64, error)
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Gate      Gate
	Workflows Workflows
	Operators Operators
	Requests  JoinRequests
	Vars      *storage.Vars
	Chats     platform.Client
}

// Options tune the update loop.
type Options struct {
	// Username is the bot's own username, used for start links.
	Username       string
	PollingTimeout int
	RequestTimeout time.Duration
	// DrainTimeout bounds how long Run waits for in-flight handlers.
	DrainTimeout time.Duration
}

// Bot is the Telegram bot that gates users and serves operator commands.
type Bot struct {
	api  telegramAPI
	deps Deps
	opts Options
	log  *slog.Logger

	active sync.WaitGroup
}

// New creates a Bot over api.
func New(api telegramAPI, deps Deps, opts Options, log *slog.Logger) *Bot {
	if opts.PollingTimeout <= 0 {
		opts.PollingTimeout = 60
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = time.Minute
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 25 * time.Second
	}
	return &Bot{api: api, deps: deps, opts: opts, log: log}
}

// allowedUpdates lists the update kinds the bot subscribes to.
var allowedUpdates = []string{"message", "callback_query", "chat_join_request"}

// Run starts the long-polling loop, blocking until ctx is cancelled. Each
// update is handled in its own goroutine; on shutdown Run waits for them.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.PollingTimeout
	u.AllowedUpdates = allowedUpdates

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.drain()
			return
		case update, ok := <-updates:
			if !ok {
				b.drain()
				return
			}
			b.active.Add(1)
			go func() {
				defer b.active.Done()
				// In-flight handlers outlive shutdown until their own timeout.
				reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.RequestTimeout)
				defer cancel()
				b.handleUpdate(reqCtx, update)
			}()
		}
	}
}

func (b *Bot) drain() {
	done := make(chan struct{})
	go func() {
		b.active.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(b.opts.DrainTimeout):
		b.log.Warn("some updates were still being handled at shutdown")
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.ChatJoinRequest != nil:
		b.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleJoinRequest(ctx context.Context, req *tgbotapi.ChatJoinRequest) {
	if req.InviteLink == nil || req.InviteLink.InviteLink == "" {
		return
	}
	if _, err := b.deps.Requests.Record(ctx, req.InviteLink.InviteLink, req.From.ID); err != nil {
		b.log.Error("record join request",
			"chat_id", req.Chat.ID, "user_id", req.From.ID, "link", req.InviteLink.InviteLink, "error", err)
	}
}

// RegisterCommands publishes the command list shown by Telegram clients.
func (b *Bot) RegisterCommands() error {
	_, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands...))
	return err
}

// WorkflowEnded tells the operator that their session ended outside of a
// reply, i.e. it timed out, and shows the summary menu again.
func (b *Bot) WorkflowEnded(ctx context.Context, res workflow.Result) {
	b.sendWithMarkup(res.OperatorID, FormatResult(res), tgbotapi.NewRemoveKeyboard(false))
	b.sendMenu(ctx, res.OperatorID)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	b.sendWithMarkup(chatID, text, nil)
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) request(c tgbotapi.Chattable, what string) {
	if _, err := b.api.Request(c); err != nil {
		b.log.Error(what, "error", err)
	}
}
