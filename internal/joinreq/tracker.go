// Package joinreq records join requests made through tracked invite links.
package joinreq

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"fsub_bot/internal/model"
	"fsub_bot/internal/storage"
)

// Tracker is the system of record for "did this user request to join via this
// link". Pending requests count.
type Tracker struct {
	vars *storage.Vars
	log  *slog.Logger
}

// NewTracker creates a Tracker persisting into vars.
func NewTracker(vars *storage.Vars, log *slog.Logger) *Tracker {
	return &Tracker{vars: vars, log: log}
}

// Record registers a join request by userID on link. Requests on links that
// are not tracked are ignored, as are repeated deliveries of the same request.
// It reports whether the roster changed.
func (t *Tracker) Record(ctx context.Context, link string, userID int64) (bool, error) {
	rosterKey, counterKey := model.RosterKey(link), model.CounterKey(link)
	recorded := false

	err := t.vars.Update(ctx, []string{model.KeyTrackedLinks, rosterKey, counterKey}, func(tx *storage.VarsTxn) error {
		recorded = false
		if !slices.Contains(tx.Strings(model.KeyTrackedLinks), link) {
			return nil
		}
		roster := tx.Int64s(rosterKey)
		if slices.Contains(roster, userID) {
			return nil
		}
		if err := tx.Set(rosterKey, append(roster, userID)); err != nil {
			return err
		}
		if err := tx.Set(counterKey, tx.Int(counterKey, 0)+1); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("record join request: %w", err)
	}
	if recorded {
		t.log.Info("join request recorded", "link", link, "user_id", userID)
	}
	return recorded, nil
}

// IsTracked reports whether userID is in the roster of link.
func (t *Tracker) IsTracked(ctx context.Context, link string, userID int64) (bool, error) {
	roster, err := t.vars.GetInt64s(ctx, model.RosterKey(link), nil)
	if err != nil {
		return false, fmt.Errorf("read roster: %w", err)
	}
	return slices.Contains(roster, userID), nil
}

// Count returns the number of requests recorded on link.
func (t *Tracker) Count(ctx context.Context, link string) (int64, error) {
	n, err := t.vars.GetInt(ctx, model.CounterKey(link), 0)
	if err != nil {
		return 0, fmt.Errorf("read request counter: %w", err)
	}
	return n, nil
}

// Forget stages removal of link's tracking state inside an existing update:
// the link leaves the tracked list and its roster and counter are cleared.
func Forget(tx *storage.VarsTxn, link string) error {
	links := slices.DeleteFunc(tx.Strings(model.KeyTrackedLinks), func(l string) bool { return l == link })
	if err := tx.Set(model.KeyTrackedLinks, links); err != nil {
		return err
	}
	tx.Delete(model.RosterKey(link))
	tx.Delete(model.CounterKey(link))
	return nil
}

// Track stages registration of link as tracked inside an existing update.
func Track(tx *storage.VarsTxn, link string) error {
	links := tx.Strings(model.KeyTrackedLinks)
	if slices.Contains(links, link) {
		return nil
	}
	return tx.Set(model.KeyTrackedLinks, append(links, link))
}

// Keys returns the keys an update touching link's tracking state must watch.
func Keys(link string) []string {
	return []string{model.KeyTrackedLinks, model.RosterKey(link), model.CounterKey(link)}
}
