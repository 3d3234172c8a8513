package gate

import (
	"context"
	"time"

	"fsub_bot/internal/model"
)

// Gatekeeper combines the pass cache with the evaluator.
type Gatekeeper struct {
	eval   *Evaluator
	passes *PassCache
	now    func() time.Time
}

// NewGatekeeper creates a Gatekeeper.
func NewGatekeeper(eval *Evaluator, passes *PassCache, now func() time.Time) *Gatekeeper {
	if now == nil {
		now = time.Now
	}
	return &Gatekeeper{eval: eval, passes: passes, now: now}
}

// Check returns the channels userID is missing. A valid pass skips evaluation;
// a clean evaluation grants a new pass.
func (g *Gatekeeper) Check(ctx context.Context, userID int64) ([]model.MissingChannel, error) {
	if g.passes.Valid(userID, g.now()) {
		return nil, nil
	}
	return g.Recheck(ctx, userID)
}

// Recheck evaluates userID regardless of any pass.
func (g *Gatekeeper) Recheck(ctx context.Context, userID int64) ([]model.MissingChannel, error) {
	missing, err := g.eval.Missing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		g.passes.Grant(userID, g.now())
	}
	return missing, nil
}

// Passes exposes the pass cache for pruning.
func (g *Gatekeeper) Passes() *PassCache {
	return g.passes
}
