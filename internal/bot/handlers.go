package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fsub_bot/internal/model"
	"fsub_bot/internal/workflow"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	userID := msg.From.ID

	if b.deps.Workflows.Active(userID) {
		ev := workflow.Event{Text: msg.Text}
		if msg.ForwardFromChat != nil {
			ev.ForwardedChatID = msg.ForwardFromChat.ID
		}
		if res, ok := b.deps.Workflows.Handle(ctx, userID, ev); ok {
			b.renderResult(ctx, res)
			return
		}
	}

	missing, err := b.deps.Gate.Check(ctx, userID)
	if err != nil {
		b.log.Error("gating check", "user_id", userID, "error", err)
		b.reply(msg.Chat.ID, msgGateUnavailable)
		return
	}
	if len(missing) > 0 {
		b.log.Debug("user gated", "user_id", userID, "missing", len(missing))
		b.sendWithMarkup(msg.Chat.ID, FormatJoinPrompt(msg.From.FirstName), JoinKeyboard(missing, startPayload(msg)))
		return
	}

	if !msg.IsCommand() {
		return
	}
	b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case cmdStart:
		b.reply(chatID, msgWelcome)
	case cmdHelp:
		b.reply(chatID, msgHelp)
	case cmdFSub:
		if b.requireOperator(ctx, msg) {
			b.sendMenu(ctx, chatID)
		}
	case cmdVars:
		if b.requireOperator(ctx, msg) {
			b.handleVars(ctx, chatID, msg.CommandArguments())
		}
	case cmdCancel:
		b.reply(chatID, msgNothingToCancel)
	default:
		b.reply(chatID, msgUnknownCommand)
	}
}

func (b *Bot) requireOperator(ctx context.Context, msg *tgbotapi.Message) bool {
	ok, err := b.deps.Operators.IsOperator(ctx, msg.From.ID)
	if err != nil {
		b.log.Error("operator lookup", "user_id", msg.From.ID, "error", err)
	}
	if !ok {
		b.reply(msg.Chat.ID, msgNotAuthorized)
		return false
	}
	return true
}

func (b *Bot) handleVars(ctx context.Context, chatID int64, args string) {
	name, value, err := ParseVarsArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if name == model.KeyAdmins {
		id, err := ParseUserID(value)
		if err != nil {
			b.reply(chatID, "Admin value must be an integer (user ID).")
			return
		}
		added, err := b.deps.Operators.AddAdmin(ctx, id)
		if err != nil {
			b.log.Error("add admin", "user_id", id, "error", err)
			b.reply(chatID, msgStoreError)
			return
		}
		if !added {
			b.reply(chatID, fmt.Sprintf("%d is already in admins.", id))
			return
		}
		b.reply(chatID, fmt.Sprintf("Added %d to admins.", id))
		return
	}

	if err := b.deps.Vars.Set(ctx, name, value); err != nil {
		b.log.Error("set variable", "name", name, "error", err)
		b.reply(chatID, msgStoreError)
		return
	}
	b.log.Info("variable set", "name", name)
	b.reply(chatID, fmt.Sprintf("Variable '%s' set to '%s'", name, value))
}

// renderResult reports a workflow step to the operator. Retries re-prompt;
// terminal results remove the reply keyboard and redisplay the menu.
func (b *Bot) renderResult(ctx context.Context, res workflow.Result) {
	if res.Terminal() {
		b.sendWithMarkup(res.OperatorID, FormatResult(res), tgbotapi.NewRemoveKeyboard(false))
		b.sendMenu(ctx, res.OperatorID)
		return
	}
	b.reply(res.OperatorID, FormatResult(res))
	b.sendWithMarkup(res.OperatorID, msgTargetPrompt, CancelKeyboard())
}

func (b *Bot) startWorkflow(ctx context.Context, cb *tgbotapi.CallbackQuery, op workflow.Op) {
	res, err := b.deps.Workflows.Start(ctx, cb.From.ID, op)
	if errors.Is(err, workflow.ErrUnauthorized) {
		b.request(tgbotapi.NewCallbackWithAlert(cb.ID, msgNotAuthorized), "answer callback")
		return
	}
	if err != nil {
		b.log.Error("start workflow", "user_id", cb.From.ID, "error", err)
		b.request(tgbotapi.NewCallbackWithAlert(cb.ID, msgStoreError), "answer callback")
		return
	}

	b.request(tgbotapi.NewCallback(cb.ID, ""), "answer callback")
	if cb.Message != nil {
		b.request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID), "delete menu")
	}
	b.sendWithMarkup(res.OperatorID, msgTargetPrompt, CancelKeyboard())
}

// sendMenu renders the force-sub settings summary.
func (b *Bot) sendMenu(ctx context.Context, chatID int64) {
	summary, err := b.loadSummary(ctx)
	if err != nil {
		b.log.Error("load summary", "error", err)
		b.reply(chatID, msgStoreError)
		return
	}
	b.sendWithMarkup(chatID, FormatSummary(summary), MenuKeyboard())
}

func (b *Bot) loadSummary(ctx context.Context) (Summary, error) {
	rawForce, err := b.deps.Vars.GetString(ctx, model.KeyForceSub, "")
	if err != nil {
		return Summary{}, fmt.Errorf("read force-sub list: %w", err)
	}
	rawReq, err := b.deps.Vars.GetString(ctx, model.KeyReqSub, "")
	if err != nil {
		return Summary{}, fmt.Errorf("read req-sub list: %w", err)
	}

	var s Summary
	for _, id := range model.ParseIDList(rawForce) {
		s.ForceSub = append(s.ForceSub, b.describe(ctx, id))
	}
	for _, e := range model.ParseReqSub(rawReq) {
		entry := b.describe(ctx, e.ChannelID)
		entry.Link = e.InviteLink
		n, err := b.deps.Requests.Count(ctx, e.InviteLink)
		if err != nil {
			b.log.Warn("read request counter", "link", e.InviteLink, "error", err)
		}
		entry.Requests = n
		s.ReqSub = append(s.ReqSub, entry)
	}
	return s, nil
}

func (b *Bot) describe(ctx context.Context, id int64) SummaryEntry {
	chat, err := b.deps.Chats.Chat(ctx, id)
	if err != nil {
		return SummaryEntry{ChannelID: id}
	}
	entry := SummaryEntry{ChannelID: id, Title: chat.Title, Accessible: true}
	n, err := b.deps.Chats.MemberCount(ctx, id)
	if err != nil {
		b.log.Warn("read member count", "chat_id", id, "error", err)
		return entry
	}
	entry.Subscribers, entry.Counted = n, true
	return entry
}

func startPayload(msg *tgbotapi.Message) string {
	if msg.IsCommand() && msg.Command() == cmdStart {
		return msg.CommandArguments()
	}
	return ""
}
