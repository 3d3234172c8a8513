package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int64
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "-100111", want: []int64{-100111}},
		{name: "extra whitespace", raw: "  -100111   -100222 ", want: []int64{-100111, -100222}},
		{name: "duplicates keep first", raw: "-100222 -100111 -100222", want: []int64{-100222, -100111}},
		{name: "garbage skipped", raw: "-100111 abc 42", want: []int64{-100111, 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIDList(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatIDList(t *testing.T) {
	got := FormatIDList([]int64{-100111, 5426061889})
	if diff := cmp.Diff("-100111 5426061889", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if got := FormatIDList(nil); got != "" {
		t.Errorf("FormatIDList(nil) = %q, want empty", got)
	}
}

func TestParseReqSub(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []ReqSubEntry
	}{
		{name: "empty", raw: "", want: nil},
		{
			name: "two entries",
			raw:  "-100111||https://t.me/+aaa,-100222||https://t.me/+bbb",
			want: []ReqSubEntry{
				{ChannelID: -100111, InviteLink: "https://t.me/+aaa", Raw: "-100111||https://t.me/+aaa"},
				{ChannelID: -100222, InviteLink: "https://t.me/+bbb", Raw: "-100222||https://t.me/+bbb"},
			},
		},
		{
			name: "malformed skipped",
			raw:  "garbage,-100111||,abc||https://t.me/+x,-100333||https://t.me/+ccc",
			want: []ReqSubEntry{
				{ChannelID: -100333, InviteLink: "https://t.me/+ccc", Raw: "-100333||https://t.me/+ccc"},
			},
		},
		{
			name: "one entry per channel",
			raw:  "-100111||https://t.me/+a, -100111||https://t.me/+b",
			want: []ReqSubEntry{
				{ChannelID: -100111, InviteLink: "https://t.me/+a", Raw: "-100111||https://t.me/+a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReqSub(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAppendReqSub(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: "-100222||https://t.me/+bbb"},
		{name: "append", raw: "-100111||https://t.me/+aaa", want: "-100111||https://t.me/+aaa,-100222||https://t.me/+bbb"},
		{name: "keeps malformed parts", raw: "garbage,-100111||", want: "garbage,-100111||,-100222||https://t.me/+bbb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendReqSub(tt.raw, NewReqSubEntry(-100222, "https://t.me/+bbb"))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRemoveReqSub(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        string
		wantRemoved bool
	}{
		{
			name:        "remove middle",
			raw:         "-100111||https://t.me/+a,-100222||https://t.me/+b,-100333||https://t.me/+c",
			want:        "-100111||https://t.me/+a,-100333||https://t.me/+c",
			wantRemoved: true,
		},
		{
			name:        "malformed parts survive",
			raw:         "garbage, -100222||https://t.me/+b,abc||https://t.me/+x",
			want:        "garbage,abc||https://t.me/+x",
			wantRemoved: true,
		},
		{
			name:        "repeated channel removed entirely",
			raw:         "-100222||https://t.me/+b,-100222||https://t.me/+c",
			want:        "",
			wantRemoved: true,
		},
		{
			name: "absent",
			raw:  "-100111||https://t.me/+a,-100222||",
			want: "-100111||https://t.me/+a,-100222||",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := RemoveReqSub(tt.raw, -100222)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("list (-want +got):\n%s", diff)
			}
			if removed != tt.wantRemoved {
				t.Errorf("removed = %v, want %v", removed, tt.wantRemoved)
			}
		})
	}
}

func TestFindReqSub(t *testing.T) {
	entries := []ReqSubEntry{NewReqSubEntry(-100111, "https://t.me/+aaa")}
	if _, ok := FindReqSub(entries, -100222); ok {
		t.Error("expected no entry for -100222")
	}
	got, ok := FindReqSub(entries, -100111)
	if !ok {
		t.Fatal("expected entry for -100111")
	}
	if diff := cmp.Diff("https://t.me/+aaa", got.InviteLink); diff != "" {
		t.Errorf("link (-want +got):\n%s", diff)
	}
}

func TestDeepLink(t *testing.T) {
	tests := []struct {
		name     string
		id       int64
		username string
		want     string
	}{
		{name: "public username", id: -100111, username: "news", want: "https://t.me/news"},
		{name: "private channel", id: -1002374561133, want: "https://t.me/c/2374561133"},
		{name: "non channel id", id: 12345, want: "https://t.me/12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DeepLink(tt.id, tt.username)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemberStatus(t *testing.T) {
	tests := []struct {
		status     MemberStatus
		wantAdmin  bool
		wantJoined bool
	}{
		{StatusCreator, true, true},
		{StatusAdministrator, true, true},
		{StatusMember, false, true},
		{StatusRestricted, false, true},
		{StatusLeft, false, false},
		{StatusKicked, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			m := Member{Status: tt.status}
			if diff := cmp.Diff(tt.wantAdmin, m.IsAdmin()); diff != "" {
				t.Errorf("IsAdmin (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantJoined, m.Joined()); diff != "" {
				t.Errorf("Joined (-want +got):\n%s", diff)
			}
		})
	}
}
