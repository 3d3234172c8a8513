// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Persisted keys of the key-value store.
const (
	KeyForceSub     = "F_sub"
	KeyReqSub       = "r_sub"
	KeyTrackedLinks = "req_link"
	KeyOwners       = "owner"
	KeyAdmins       = "admin"
)

// RosterKey returns the key holding the user ids that requested to join via link.
func RosterKey(link string) string {
	return link
}

// CounterKey returns the key holding the join request counter of link.
func CounterKey(link string) string {
	return "req" + link
}

// ReqSubEntry is a request-based gating channel with its tracked invite link.
type ReqSubEntry struct {
	ChannelID  int64
	InviteLink string
	Raw        string
}

// NewReqSubEntry builds an entry and its persisted form.
func NewReqSubEntry(channelID int64, link string) ReqSubEntry {
	return ReqSubEntry{
		ChannelID:  channelID,
		InviteLink: link,
		Raw:        fmt.Sprintf("%d||%s", channelID, link),
	}
}

// GateKind distinguishes direct membership channels from request-based ones.
type GateKind string

// Supported gate kinds.
const (
	KindForceSub   GateKind = "fsub"
	KindRequestSub GateKind = "rsub"
)

// MissingChannel is a channel the user still has to join (or request to join).
type MissingChannel struct {
	Kind      GateKind
	ChannelID int64
	Name      string
	URL       string
}

// MemberStatus is the status of a user inside a chat.
type MemberStatus string

// Statuses reported by the platform.
const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Member describes a user's standing in a chat.
type Member struct {
	Status         MemberStatus
	CanInviteUsers bool
}

// IsAdmin reports whether the status grants administration rights.
func (m Member) IsAdmin() bool {
	return m.Status == StatusCreator || m.Status == StatusAdministrator
}

// Joined reports whether the status counts as membership for gating.
func (m Member) Joined() bool {
	switch m.Status {
	case StatusCreator, StatusAdministrator, StatusMember, StatusRestricted:
		return true
	}
	return false
}

// ChatInfo is the subset of chat metadata the bot needs.
type ChatInfo struct {
	ID       int64
	Title    string
	Username string
}

// IsPublic reports whether the chat has a public username.
func (c ChatInfo) IsPublic() bool {
	return c.Username != ""
}

// ParseIDList parses a whitespace separated list of ids, dropping invalid
// tokens and duplicates while keeping the first occurrence order.
func ParseIDList(raw string) []int64 {
	var ids []int64
	seen := make(map[int64]struct{})
	for _, tok := range strings.Fields(raw) {
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// FormatIDList is the inverse of ParseIDList.
func FormatIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " ")
}

// ParseReqSub parses the comma separated "<channel>||<link>" list. Malformed
// entries and repeated channels are skipped.
func ParseReqSub(raw string) []ReqSubEntry {
	var entries []ReqSubEntry
	seen := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		e, ok := parseReqSubPart(part)
		if !ok {
			continue
		}
		if _, dup := seen[e.ChannelID]; dup {
			continue
		}
		seen[e.ChannelID] = struct{}{}
		entries = append(entries, e)
	}
	return entries
}

func parseReqSubPart(part string) (ReqSubEntry, bool) {
	part = strings.TrimSpace(part)
	idStr, link, ok := strings.Cut(part, "||")
	if !ok {
		return ReqSubEntry{}, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil {
		return ReqSubEntry{}, false
	}
	link = strings.TrimSpace(link)
	if link == "" || strings.Contains(link, "||") {
		return ReqSubEntry{}, false
	}
	return ReqSubEntry{ChannelID: id, InviteLink: link, Raw: part}, true
}

// AppendReqSub adds entry to the raw list. Existing parts are kept verbatim,
// including ones ParseReqSub would skip.
func AppendReqSub(raw string, entry ReqSubEntry) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entry.Raw
	}
	return raw + "," + entry.Raw
}

// RemoveReqSub drops every well-formed part for channelID from the raw list
// and reports whether any was found. Other parts are kept verbatim.
func RemoveReqSub(raw string, channelID int64) (string, bool) {
	var kept []string
	removed := false
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if e, ok := parseReqSubPart(part); ok && e.ChannelID == channelID {
			removed = true
			continue
		}
		kept = append(kept, strings.TrimSpace(part))
	}
	return strings.Join(kept, ","), removed
}

// FindReqSub returns the entry for channelID, if any.
func FindReqSub(entries []ReqSubEntry, channelID int64) (ReqSubEntry, bool) {
	for _, e := range entries {
		if e.ChannelID == channelID {
			return e, true
		}
	}
	return ReqSubEntry{}, false
}

// IsPrivateChannelID reports whether id uses the "-100" supergroup/channel prefix.
func IsPrivateChannelID(id int64) bool {
	return strings.HasPrefix(strconv.FormatInt(id, 10), "-100")
}

// DeepLink returns the t.me link that opens the chat for existing members.
func DeepLink(id int64, username string) string {
	if username != "" {
		return "https://t.me/" + username
	}
	s := strconv.FormatInt(id, 10)
	if strings.HasPrefix(s, "-100") {
		return "https://t.me/c/" + s[4:]
	}
	return "https://t.me/" + s
}
