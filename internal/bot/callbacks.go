package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fsub_bot/internal/workflow"
)

// Callback data.
const (
	cbAddForceSub    = "fsub_add"
	cbRemoveForceSub = "fsub_rem"
	cbAddReqSub      = "rsub_add"
	cbRemoveReqSub   = "rsub_rem"
	cbClose          = "close"
	cbCheckPrefix    = "check_subscription"
)

var workflowCallbacks = map[string]workflow.Op{
	cbAddForceSub:    workflow.OpAddForceSub,
	cbRemoveForceSub: workflow.OpRemoveForceSub,
	cbAddReqSub:      workflow.OpAddReqSub,
	cbRemoveReqSub:   workflow.OpRemoveReqSub,
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	data := cb.Data

	b.log.Info("callback",
		"action", data,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	if op, ok := workflowCallbacks[data]; ok {
		b.startWorkflow(ctx, cb, op)
		return
	}

	switch {
	case data == cbClose:
		b.request(tgbotapi.NewCallback(cb.ID, ""), "answer callback")
		if cb.Message != nil {
			b.request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID), "delete menu")
		}
	case strings.HasPrefix(data, cbCheckPrefix):
		b.handleCheckSubscription(ctx, cb, strings.TrimPrefix(data, cbCheckPrefix))
	default:
		b.request(tgbotapi.NewCallback(cb.ID, ""), "answer callback")
	}
}

// handleCheckSubscription re-evaluates the user after they pressed "Joined".
func (b *Bot) handleCheckSubscription(ctx context.Context, cb *tgbotapi.CallbackQuery, payload string) {
	missing, err := b.deps.Gate.Recheck(ctx, cb.From.ID)
	if err != nil {
		b.log.Error("gating recheck", "user_id", cb.From.ID, "error", err)
		b.request(tgbotapi.NewCallbackWithAlert(cb.ID, msgGateUnavailable), "answer callback")
		return
	}

	if len(missing) > 0 {
		b.request(tgbotapi.NewCallbackWithAlert(cb.ID, msgStillMissing), "answer callback")
		if cb.Message != nil {
			b.request(tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID,
				JoinKeyboard(missing, payload)), "refresh join keyboard")
		}
		return
	}

	b.request(tgbotapi.NewCallback(cb.ID, ""), "answer callback")
	if cb.Message == nil {
		return
	}
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
	if payload == "" {
		b.request(tgbotapi.NewEditMessageText(chatID, msgID, msgAllJoined), "edit join prompt")
		return
	}
	b.request(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, msgContinue,
		ContinueKeyboard(b.opts.Username, payload)), "edit join prompt")
}
