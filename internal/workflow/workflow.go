// Package workflow implements the operator dialogue that edits the gating
// channel lists. Each operator has at most one session; sessions are driven by
// discrete events (a reply, a cancel keyword, or the passing of the deadline)
// instead of blocking on a listener.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fsub_bot/internal/model"
	"fsub_bot/internal/platform"
	"fsub_bot/internal/storage"
)

// DefaultTimeout is how long a session waits for the operator's reply.
const DefaultTimeout = 30 * time.Second

// ErrUnauthorized is returned by Start for callers outside the operator set.
var ErrUnauthorized = errors.New("not an operator")

// Op is the list mutation a session performs.
type Op int

// Supported operations.
const (
	OpAddForceSub Op = iota + 1
	OpRemoveForceSub
	OpAddReqSub
	OpRemoveReqSub
)

func (o Op) String() string {
	switch o {
	case OpAddForceSub:
		return "add_fsub"
	case OpRemoveForceSub:
		return "remove_fsub"
	case OpAddReqSub:
		return "add_rsub"
	case OpRemoveReqSub:
		return "remove_rsub"
	}
	return "unknown"
}

// IsAdd reports whether o adds a channel.
func (o Op) IsAdd() bool {
	return o == OpAddForceSub || o == OpAddReqSub
}

// IsReqSub reports whether o edits the req-sub list.
func (o Op) IsReqSub() bool {
	return o == OpAddReqSub || o == OpRemoveReqSub
}

// State is the position of a session in the dialogue.
type State int

// Session states. Done and Aborted are terminal.
const (
	StateAwaitingTarget State = iota + 1
	StateVerifyingAdmin
	StatePerformingAction
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingTarget:
		return "awaiting_target"
	case StateVerifyingAdmin:
		return "verifying_admin"
	case StatePerformingAction:
		return "performing_action"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Code tells the presentation layer what happened on the last step.
type Code int

// Result codes.
const (
	CodePrompt Code = iota + 1
	CodeBadInput
	CodeBotNotAdmin
	CodeNoInvitePermission
	CodeDuplicate
	CodeAbsent
	CodePublicChannel
	CodeChatUnavailable
	CodeLinkFailed
	CodeStoreError
	CodeAdded
	CodeRemoved
	CodeCanceled
	CodeTimedOut
)

// Result describes the session after an event.
type Result struct {
	SessionID  string
	OperatorID int64
	Op         Op
	State      State
	Code       Code
	ChannelID  int64
	InviteLink string
}

// Terminal reports whether the session has ended.
func (r Result) Terminal() bool {
	return r.State == StateDone || r.State == StateAborted
}

// Event is an operator reply. ForwardedChatID is the origin chat of a
// forwarded message, or zero.
type Event struct {
	Text            string
	ForwardedChatID int64
}

// Authorizer decides who may start a session.
type Authorizer interface {
	IsOperator(ctx context.Context, userID int64) (bool, error)
}

// BotStatusChecker reports the bot's own standing in a channel.
type BotStatusChecker interface {
	BotStatus(ctx context.Context, chatID int64) (model.Member, error)
}

// Invalidator is told about every successful list mutation.
type Invalidator interface {
	Invalidate()
}

type session struct {
	mu       sync.Mutex
	id       string
	operator int64
	op       Op
	state    State
	deadline time.Time
	closed   bool
}

func (s *session) result(code Code) Result {
	return Result{SessionID: s.id, OperatorID: s.operator, Op: s.op, State: s.state, Code: code}
}

// Machine owns the session table.
type Machine struct {
	vars    *storage.Vars
	auth    Authorizer
	members BotStatusChecker
	client  platform.Client
	cache   Invalidator
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// Config holds the collaborators of a Machine.
type Config struct {
	Vars    *storage.Vars
	Auth    Authorizer
	Members BotStatusChecker
	Client  platform.Client
	Cache   Invalidator
	Timeout time.Duration
	Now     func() time.Time
	Log     *slog.Logger
}

// New creates a Machine.
func New(cfg Config) *Machine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Machine{
		vars:     cfg.Vars,
		auth:     cfg.Auth,
		members:  cfg.Members,
		client:   cfg.Client,
		cache:    cfg.Cache,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
		log:      cfg.Log,
		sessions: make(map[int64]*session),
	}
}

// Start opens a session for operatorID, replacing any session the operator
// already has. Non-operators get ErrUnauthorized and no session.
func (m *Machine) Start(ctx context.Context, operatorID int64, op Op) (Result, error) {
	ok, err := m.auth.IsOperator(ctx, operatorID)
	if err != nil {
		m.log.Warn("operator lookup failed", "user_id", operatorID, "error", err)
		return Result{}, ErrUnauthorized
	}
	if !ok {
		return Result{}, ErrUnauthorized
	}

	s := &session{
		id:       uuid.NewString(),
		operator: operatorID,
		op:       op,
		state:    StateAwaitingTarget,
		deadline: m.now().Add(m.timeout),
	}

	m.mu.Lock()
	prev := m.sessions[operatorID]
	m.sessions[operatorID] = s
	m.mu.Unlock()

	if prev != nil {
		prev.mu.Lock()
		prev.closed = true
		prev.mu.Unlock()
		m.log.Debug("workflow superseded", "session_id", prev.id, "user_id", operatorID)
	}

	m.log.Info("workflow started", "session_id", s.id, "user_id", operatorID, "op", op)
	return s.result(CodePrompt), nil
}

// Active reports whether operatorID has an open session.
func (m *Machine) Active(operatorID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[operatorID]
	return ok
}

// Cancel aborts operatorID's session.
func (m *Machine) Cancel(operatorID int64) (Result, bool) {
	s := m.take(operatorID)
	if s == nil {
		return Result{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, false
	}
	return m.abort(s, CodeCanceled), true
}

// Expire aborts every session whose deadline has passed by now. Sessions that
// are handling an event are left alone; Handle checks the deadline itself.
func (m *Machine) Expire(now time.Time) []Result {
	m.mu.Lock()
	var expired []*session
	for id, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if !now.Before(s.deadline) {
			delete(m.sessions, id)
			expired = append(expired, s)
			continue
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	results := make([]Result, 0, len(expired))
	for _, s := range expired {
		if !s.closed {
			results = append(results, m.abort(s, CodeTimedOut))
		}
		s.mu.Unlock()
	}
	return results
}

// Handle feeds an operator reply into the session. ok is false when
// operatorID has no open session.
func (m *Machine) Handle(ctx context.Context, operatorID int64, ev Event) (res Result, ok bool) {
	m.mu.Lock()
	s := m.sessions[operatorID]
	m.mu.Unlock()
	if s == nil {
		return Result{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, false
	}
	defer func() {
		if res.Terminal() {
			m.release(s)
		}
	}()

	if !m.now().Before(s.deadline) {
		return m.abort(s, CodeTimedOut), true
	}
	if IsCancel(ev.Text) {
		return m.abort(s, CodeCanceled), true
	}

	target, parsed := ParseTarget(ev)
	if !parsed {
		return m.retry(s, CodeBadInput, 0), true
	}

	if s.op.IsAdd() {
		s.state = StateVerifyingAdmin
		if code, verified := m.verifyAdmin(ctx, s, target); !verified {
			return m.retry(s, code, target), true
		}
	}

	s.state = StatePerformingAction
	return m.perform(ctx, s, target), true
}

func (m *Machine) verifyAdmin(ctx context.Context, s *session, target int64) (Code, bool) {
	member, err := m.members.BotStatus(ctx, target)
	if err != nil {
		m.log.Info("bot status lookup failed", "session_id", s.id, "chat_id", target, "error", err)
		return CodeBotNotAdmin, false
	}
	if !member.IsAdmin() {
		return CodeBotNotAdmin, false
	}
	if s.op == OpAddReqSub && !member.CanInviteUsers {
		return CodeNoInvitePermission, false
	}
	return 0, true
}

// retry loops back to AwaitingTarget with a fresh deadline.
func (m *Machine) retry(s *session, code Code, target int64) Result {
	s.state = StateAwaitingTarget
	s.deadline = m.now().Add(m.timeout)
	r := s.result(code)
	r.ChannelID = target
	m.log.Debug("workflow retry", "session_id", s.id, "user_id", s.operator, "code", code, "chat_id", target)
	return r
}

func (m *Machine) abort(s *session, code Code) Result {
	s.state = StateAborted
	s.closed = true
	m.log.Info("workflow aborted", "session_id", s.id, "user_id", s.operator, "op", s.op, "code", code)
	return s.result(code)
}

func (m *Machine) done(s *session, code Code, target int64, link string) Result {
	s.state = StateDone
	s.closed = true
	m.cache.Invalidate()
	m.log.Info("workflow done",
		"session_id", s.id, "user_id", s.operator, "op", s.op, "chat_id", target, "code", code)
	r := s.result(code)
	r.ChannelID = target
	r.InviteLink = link
	return r
}

// release drops s from the table if it is still the operator's session.
func (m *Machine) release(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.operator] == s {
		delete(m.sessions, s.operator)
	}
}

// take removes and returns operatorID's session.
func (m *Machine) take(operatorID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[operatorID]
	delete(m.sessions, operatorID)
	return s
}
