// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"fsub_bot/internal/model"
	"fsub_bot/internal/platform"
)

// Fake is a scriptable platform.Client. Unknown members resolve to
// ErrNotParticipant and unknown chats to ErrChatInaccessible.
type Fake struct {
	mu sync.Mutex

	members   map[[2]int64]model.Member
	memberErr map[[2]int64]error
	chats     map[int64]model.ChatInfo
	counts    map[int64]int

	// InviteErr, when set, fails every CreateInviteLink call.
	InviteErr error

	Invites     []Invite
	MemberCalls int
	nextInvite  int
}

// Invite records a CreateInviteLink call.
type Invite struct {
	ChatID int64
	Opts   platform.InviteOptions
	Link   string
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		members:   make(map[[2]int64]model.Member),
		memberErr: make(map[[2]int64]error),
		chats:     make(map[int64]model.ChatInfo),
		counts:    make(map[int64]int),
	}
}

// SetMember sets userID's status in chatID.
func (f *Fake) SetMember(chatID, userID int64, m model.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[[2]int64{chatID, userID}] = m
	delete(f.memberErr, [2]int64{chatID, userID})
}

// SetMemberError makes the lookup of userID in chatID fail with err.
func (f *Fake) SetMemberError(chatID, userID int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberErr[[2]int64{chatID, userID}] = err
}

// SetChat registers chat metadata.
func (f *Fake) SetChat(c model.ChatInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats[c.ID] = c
}

// Member implements platform.Client.
func (f *Fake) Member(_ context.Context, chatID, userID int64) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MemberCalls++
	key := [2]int64{chatID, userID}
	if err, ok := f.memberErr[key]; ok {
		return model.Member{}, err
	}
	m, ok := f.members[key]
	if !ok {
		return model.Member{}, platform.ErrNotParticipant
	}
	return m, nil
}

// Chat implements platform.Client.
func (f *Fake) Chat(_ context.Context, chatID int64) (model.ChatInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok {
		return model.ChatInfo{}, platform.ErrChatInaccessible
	}
	return c, nil
}

// SetMemberCount sets the member count reported for chatID.
func (f *Fake) SetMemberCount(chatID int64, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[chatID] = n
}

// MemberCount implements platform.Client. Known chats without a count report 0.
func (f *Fake) MemberCount(_ context.Context, chatID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.chats[chatID]; !ok {
		return 0, platform.ErrChatInaccessible
	}
	return f.counts[chatID], nil
}

// CreateInviteLink implements platform.Client.
func (f *Fake) CreateInviteLink(_ context.Context, chatID int64, opts platform.InviteOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InviteErr != nil {
		return "", f.InviteErr
	}
	f.nextInvite++
	link := fmt.Sprintf("https://t.me/+invite%d", f.nextInvite)
	f.Invites = append(f.Invites, Invite{ChatID: chatID, Opts: opts, Link: link})
	return link, nil
}

// Calls returns the number of Member lookups so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MemberCalls
}

// SetInviteErr sets or clears the invite failure.
func (f *Fake) SetInviteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InviteErr = err
}

// InviteLog returns a copy of the recorded invite calls.
func (f *Fake) InviteLog() []Invite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Invite, len(f.Invites))
	copy(out, f.Invites)
	return out
}
