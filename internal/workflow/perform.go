package workflow

import (
	"context"
	"errors"
	"slices"

	"fsub_bot/internal/joinreq"
	"fsub_bot/internal/model"
	"fsub_bot/internal/platform"
	"fsub_bot/internal/storage"
)

// errNoChange aborts an update that found nothing to do.
var errNoChange = errors.New("no change")

func (m *Machine) perform(ctx context.Context, s *session, target int64) Result {
	switch s.op {
	case OpAddForceSub:
		return m.addForceSub(ctx, s, target)
	case OpRemoveForceSub:
		return m.removeForceSub(ctx, s, target)
	case OpAddReqSub:
		return m.addReqSub(ctx, s, target)
	case OpRemoveReqSub:
		return m.removeReqSub(ctx, s, target)
	}
	return m.abort(s, CodeBadInput)
}

func (m *Machine) addForceSub(ctx context.Context, s *session, target int64) Result {
	err := m.vars.Update(ctx, []string{model.KeyForceSub}, func(tx *storage.VarsTxn) error {
		ids := model.ParseIDList(tx.String(model.KeyForceSub, ""))
		if slices.Contains(ids, target) {
			return errNoChange
		}
		return tx.Set(model.KeyForceSub, model.FormatIDList(append(ids, target)))
	})
	if errors.Is(err, errNoChange) {
		return m.retry(s, CodeDuplicate, target)
	}
	if err != nil {
		return m.storeFailed(s, target, err)
	}
	return m.done(s, CodeAdded, target, "")
}

func (m *Machine) removeForceSub(ctx context.Context, s *session, target int64) Result {
	err := m.vars.Update(ctx, []string{model.KeyForceSub}, func(tx *storage.VarsTxn) error {
		ids := model.ParseIDList(tx.String(model.KeyForceSub, ""))
		i := slices.Index(ids, target)
		if i < 0 {
			return errNoChange
		}
		return tx.Set(model.KeyForceSub, model.FormatIDList(slices.Delete(ids, i, i+1)))
	})
	if errors.Is(err, errNoChange) {
		return m.retry(s, CodeAbsent, target)
	}
	if err != nil {
		return m.storeFailed(s, target, err)
	}
	return m.done(s, CodeRemoved, target, "")
}

func (m *Machine) addReqSub(ctx context.Context, s *session, target int64) Result {
	raw, err := m.vars.GetString(ctx, model.KeyReqSub, "")
	if err != nil {
		return m.storeFailed(s, target, err)
	}
	if _, exists := model.FindReqSub(model.ParseReqSub(raw), target); exists {
		return m.retry(s, CodeDuplicate, target)
	}

	chat, err := m.client.Chat(ctx, target)
	if err != nil {
		m.log.Info("chat lookup failed", "session_id", s.id, "chat_id", target, "error", err)
		return m.retry(s, CodeChatUnavailable, target)
	}
	if chat.IsPublic() {
		return m.retry(s, CodePublicChannel, target)
	}

	link, err := m.client.CreateInviteLink(ctx, target, platform.InviteOptions{RequireJoinRequest: true})
	if err != nil {
		m.log.Warn("create join request link", "session_id", s.id, "chat_id", target, "error", err)
		return m.retry(s, CodeLinkFailed, target)
	}

	entry := model.NewReqSubEntry(target, link)
	keys := append([]string{model.KeyReqSub}, joinreq.Keys(link)...)
	err = m.vars.Update(ctx, keys, func(tx *storage.VarsTxn) error {
		raw := tx.String(model.KeyReqSub, "")
		if _, exists := model.FindReqSub(model.ParseReqSub(raw), target); exists {
			return errNoChange
		}
		if err := tx.Set(model.KeyReqSub, model.AppendReqSub(raw, entry)); err != nil {
			return err
		}
		return joinreq.Track(tx, link)
	})
	if errors.Is(err, errNoChange) {
		return m.retry(s, CodeDuplicate, target)
	}
	if err != nil {
		return m.storeFailed(s, target, err)
	}
	return m.done(s, CodeAdded, target, link)
}

func (m *Machine) removeReqSub(ctx context.Context, s *session, target int64) Result {
	raw, err := m.vars.GetString(ctx, model.KeyReqSub, "")
	if err != nil {
		return m.storeFailed(s, target, err)
	}
	entry, exists := model.FindReqSub(model.ParseReqSub(raw), target)
	if !exists {
		return m.retry(s, CodeAbsent, target)
	}

	keys := append([]string{model.KeyReqSub}, joinreq.Keys(entry.InviteLink)...)
	err = m.vars.Update(ctx, keys, func(tx *storage.VarsTxn) error {
		raw := tx.String(model.KeyReqSub, "")
		current, exists := model.FindReqSub(model.ParseReqSub(raw), target)
		if !exists || current.InviteLink != entry.InviteLink {
			return errNoChange
		}
		rest, _ := model.RemoveReqSub(raw, target)
		if err := tx.Set(model.KeyReqSub, rest); err != nil {
			return err
		}
		return joinreq.Forget(tx, entry.InviteLink)
	})
	if errors.Is(err, errNoChange) {
		return m.retry(s, CodeAbsent, target)
	}
	if err != nil {
		return m.storeFailed(s, target, err)
	}
	return m.done(s, CodeRemoved, target, entry.InviteLink)
}

func (m *Machine) storeFailed(s *session, target int64, err error) Result {
	m.log.Error("workflow store update", "session_id", s.id, "chat_id", target, "error", err)
	return m.retry(s, CodeStoreError, target)
}
