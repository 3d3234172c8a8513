package bot

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fsub_bot/internal/model"
	"fsub_bot/internal/workflow"
)

func TestParseVarsArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{name: "basic", args: "greeting - hello", wantName: "greeting", wantValue: "hello"},
		{name: "value keeps separators", args: "motd - a - b", wantName: "motd", wantValue: "a - b"},
		{name: "surrounding space", args: "  admin -  55 ", wantName: "admin", wantValue: "55"},
		{name: "empty", args: "", wantErr: true},
		{name: "no separator", args: "greeting hello", wantErr: true},
		{name: "hyphen without spaces", args: "greeting-hello", wantErr: true},
		{name: "empty value", args: "greeting - ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, value, err := ParseVarsArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q=%q", name, value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff([]string{tt.wantName, tt.wantValue}, []string{name, value}); diff != "" {
				t.Errorf("ParseVarsArgs (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseUserID(t *testing.T) {
	if id, err := ParseUserID(" 123 "); err != nil || id != 123 {
		t.Errorf("ParseUserID = %d, %v", id, err)
	}
	if _, err := ParseUserID("abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestJoinKeyboard(t *testing.T) {
	missing := []model.MissingChannel{
		{Kind: model.KindForceSub, ChannelID: -1001, Name: "One", URL: "https://t.me/+a"},
		{Kind: model.KindRequestSub, ChannelID: -1002, Name: "Two", URL: "https://t.me/+b"},
	}

	kb := JoinKeyboard(missing, "ref42")
	var got []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			switch {
			case btn.URL != nil:
				got = append(got, btn.Text+" "+*btn.URL)
			case btn.CallbackData != nil:
				got = append(got, btn.Text+" "+*btn.CallbackData)
			}
		}
	}
	want := []string{
		"• Join One • https://t.me/+a",
		"• Join Two • https://t.me/+b",
		"• Joined • check_subscriptionref42",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buttons (-want +got):\n%s", diff)
	}

	long := JoinKeyboard(nil, strings.Repeat("x", 60))
	last := long.InlineKeyboard[len(long.InlineKeyboard)-1][0]
	if diff := cmp.Diff(cbCheckPrefix, *last.CallbackData); diff != "" {
		t.Errorf("oversized payload must be dropped (-want +got):\n%s", diff)
	}
}

func TestContinueKeyboard(t *testing.T) {
	kb := ContinueKeyboard("my_bot", "ref42")
	btn := kb.InlineKeyboard[0][0]
	if diff := cmp.Diff("https://t.me/my_bot?start=ref42", *btn.URL); diff != "" {
		t.Errorf("url (-want +got):\n%s", diff)
	}
}

func TestFormatSummary(t *testing.T) {
	got := FormatSummary(Summary{
		ForceSub: []SummaryEntry{
			{ChannelID: -1001, Title: "News", Accessible: true, Subscribers: 1532, Counted: true},
			{ChannelID: -1002},
		},
		ReqSub: []SummaryEntry{
			{ChannelID: -1003, Title: "Club", Accessible: true, Link: "https://t.me/+abc", Requests: 3},
		},
	})
	want := `Force Sub Settings

Normal FSub:
1. News
   ├─ Total Subscribers: 1532
   └─ ID: -1001
2. ❌ Cannot access channel (ID: -1002)

Request FSub:
1. Club
   ├─ Total Subscribers: unknown
   ├─ ID: -1003
   ├─ Link: t.me/+abc
   └─ Requests: 3
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatSummary (-want +got):\n%s", diff)
	}

	empty := FormatSummary(Summary{})
	if strings.Count(empty, "none") != 2 {
		t.Errorf("empty summary should mark both lists, got:\n%s", empty)
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		res  workflow.Result
		want string
	}{
		{workflow.Result{Op: workflow.OpAddForceSub, Code: workflow.CodeAdded}, "✅ Fsub Added Successfully!"},
		{workflow.Result{Op: workflow.OpRemoveReqSub, Code: workflow.CodeRemoved}, "✅ Rsub Removed Successfully!"},
		{workflow.Result{Op: workflow.OpAddReqSub, Code: workflow.CodeDuplicate}, "❌ Already in Rsub list."},
		{workflow.Result{Op: workflow.OpRemoveForceSub, Code: workflow.CodeAbsent}, "❌ Not in Fsub list."},
		{workflow.Result{Op: workflow.OpAddForceSub, Code: workflow.CodeBotNotAdmin, ChannelID: -1005}, "❌ I am not admin in -1005. Please promote me."},
		{workflow.Result{Code: workflow.CodeTimedOut}, "⏳ Timeout!"},
		{workflow.Result{Code: workflow.CodeCanceled}, "❌ Cancelled."},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, FormatResult(tt.res)); diff != "" {
			t.Errorf("FormatResult(%v) (-want +got):\n%s", tt.res.Code, diff)
		}
	}
}
