package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fsub_bot/internal/model"
	"fsub_bot/internal/workflow"
)

// Commands.
const (
	cmdStart  = "start"
	cmdHelp   = "help"
	cmdFSub   = "fsub"
	cmdVars   = "vars"
	cmdCancel = "cancel"
)

var botCommands = []tgbotapi.BotCommand{
	{Command: cmdStart, Description: "Start the bot"},
	{Command: cmdHelp, Description: "Show help"},
	{Command: cmdFSub, Description: "Force-sub settings (admin)"},
	{Command: cmdVars, Description: "Set a variable (admin)"},
	{Command: cmdCancel, Description: "Cancel the current operation"},
}

// maxCallbackData is Telegram's limit on callback data length in bytes.
const maxCallbackData = 64

const (
	msgWelcome = `Welcome!

You have joined all the required channels and can use the bot now.
Use /help for the command reference.`

	msgHelp = `Commands:
/start - start the bot
/help - show this message
/cancel - cancel the current operation

Admin commands:
/fsub - force-sub settings
/vars <name> - <value> - set a variable (use "admin - <user id>" to add an admin)`

	msgGateUnavailable = "Could not verify your subscriptions right now. Please try again in a moment."
	msgStillMissing    = "You still have not joined all the required channels."
	msgAllJoined       = "You have joined all the required channels. Thank you! Send /start now."
	msgContinue        = "Please click the button below to continue."
	msgNotAuthorized   = "❌ You are not authorized."
	msgNothingToCancel = "Nothing to cancel."
	msgUnknownCommand  = "Unknown command. Use /help for a list of commands."
	msgStoreError      = "❌ Storage error, please try again."
	msgTargetPrompt    = `Do one of the following:
• forward a message from the target channel
• send the target channel ID

Make sure the bot is an admin there.`

	cancelButton = "❌ Cancel"
)

// FormatJoinPrompt is the text shown to a user that misses channels.
func FormatJoinPrompt(firstName string) string {
	greeting := "Hey"
	if firstName != "" {
		greeting = "Hey, " + firstName
	}
	return greeting + "!\n\nYou have not joined all the channels required to use the bot.\n\nJoin now, then press \"Joined\"."
}

// JoinKeyboard lists one URL button per missing channel and a re-check button
// carrying payload, the start parameter the user came with.
func JoinKeyboard(missing []model.MissingChannel, payload string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(missing)+1)
	for _, m := range missing {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("• Join "+m.Name+" •", m.URL),
		))
	}
	data := cbCheckPrefix + payload
	if len(data) > maxCallbackData {
		data = cbCheckPrefix
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("• Joined •", data),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ContinueKeyboard links back to the bot with the user's start payload.
func ContinueKeyboard(username, payload string) tgbotapi.InlineKeyboardMarkup {
	url := fmt.Sprintf("https://t.me/%s?start=%s", username, payload)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("• Now click here •", url),
	))
}

// MenuKeyboard holds the settings actions.
func MenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add FSub", cbAddForceSub),
			tgbotapi.NewInlineKeyboardButtonData("Remove FSub", cbRemoveForceSub),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add RSub", cbAddReqSub),
			tgbotapi.NewInlineKeyboardButtonData("Remove RSub", cbRemoveReqSub),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Close", cbClose),
		),
	)
}

// CancelKeyboard is the reply keyboard shown while a workflow waits.
func CancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(cancelButton)))
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

// SummaryEntry is one configured channel as shown in the settings menu.
type SummaryEntry struct {
	ChannelID   int64
	Title       string
	Accessible  bool
	// Subscribers is meaningful only when Counted.
	Subscribers int
	Counted     bool
	Link        string
	Requests    int64
}

func (e SummaryEntry) subscribers() string {
	if !e.Counted {
		return "unknown"
	}
	return strconv.Itoa(e.Subscribers)
}

// Summary is the content of the settings menu.
type Summary struct {
	ForceSub []SummaryEntry
	ReqSub   []SummaryEntry
}

// FormatSummary formats the force-sub settings menu.
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString("Force Sub Settings\n\nNormal FSub:\n")
	if len(s.ForceSub) == 0 {
		b.WriteString("  none\n")
	}
	for i, e := range s.ForceSub {
		if !e.Accessible {
			fmt.Fprintf(&b, "%d. ❌ Cannot access channel (ID: %d)\n", i+1, e.ChannelID)
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n   ├─ Total Subscribers: %s\n   └─ ID: %d\n",
			i+1, e.Title, e.subscribers(), e.ChannelID)
	}

	b.WriteString("\nRequest FSub:\n")
	if len(s.ReqSub) == 0 {
		b.WriteString("  none\n")
	}
	for i, e := range s.ReqSub {
		if !e.Accessible {
			fmt.Fprintf(&b, "%d. ❌ Cannot access channel (ID: %d)\n", i+1, e.ChannelID)
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n   ├─ Total Subscribers: %s\n   ├─ ID: %d\n   ├─ Link: %s\n   └─ Requests: %d\n",
			i+1, e.Title, e.subscribers(), e.ChannelID, strings.TrimPrefix(e.Link, "https://"), e.Requests)
	}
	return b.String()
}

// FormatResult describes a workflow step to the operator.
func FormatResult(res workflow.Result) string {
	list := "Fsub"
	if res.Op.IsReqSub() {
		list = "Rsub"
	}

	switch res.Code {
	case workflow.CodePrompt:
		return msgTargetPrompt
	case workflow.CodeBadInput:
		return "❌ Invalid input. Please forward a channel message or send its ID."
	case workflow.CodeBotNotAdmin:
		return fmt.Sprintf("❌ I am not admin in %d. Please promote me.", res.ChannelID)
	case workflow.CodeNoInvitePermission:
		return fmt.Sprintf("❌ I need the 'Invite Users' permission in %d.", res.ChannelID)
	case workflow.CodeDuplicate:
		return fmt.Sprintf("❌ Already in %s list.", list)
	case workflow.CodeAbsent:
		return fmt.Sprintf("❌ Not in %s list.", list)
	case workflow.CodePublicChannel:
		return "❌ Public channels cannot be used for Request Sub (Rsub).\nRsub is for forcing users to send a join request."
	case workflow.CodeChatUnavailable:
		return fmt.Sprintf("❌ Cannot access channel %d.", res.ChannelID)
	case workflow.CodeLinkFailed:
		return fmt.Sprintf("❌ Error creating an invite link for %d.", res.ChannelID)
	case workflow.CodeStoreError:
		return msgStoreError
	case workflow.CodeAdded:
		return fmt.Sprintf("✅ %s Added Successfully!", list)
	case workflow.CodeRemoved:
		return fmt.Sprintf("✅ %s Removed Successfully!", list)
	case workflow.CodeCanceled:
		return "❌ Cancelled."
	case workflow.CodeTimedOut:
		return "⏳ Timeout!"
	}
	return "Unexpected result."
}
