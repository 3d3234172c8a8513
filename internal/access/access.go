// Package access decides who may run admin workflows.
package access

import (
	"context"
	"fmt"
	"slices"

	"fsub_bot/internal/model"
	"fsub_bot/internal/storage"
)

// Operators resolves the operator set: the ids from static configuration plus
// the persisted owner and admin lists.
type Operators struct {
	vars   *storage.Vars
	static []int64
}

// NewOperators creates Operators. static ids are always authorized.
func NewOperators(vars *storage.Vars, static []int64) *Operators {
	return &Operators{vars: vars, static: slices.Clone(static)}
}

// Seed adds ownerID to the persisted owner list when it is not there yet.
func (o *Operators) Seed(ctx context.Context, ownerID int64) error {
	err := o.vars.Update(ctx, []string{model.KeyOwners}, func(tx *storage.VarsTxn) error {
		owners := model.ParseIDList(tx.String(model.KeyOwners, ""))
		if slices.Contains(owners, ownerID) {
			return nil
		}
		return tx.Set(model.KeyOwners, model.FormatIDList(append(owners, ownerID)))
	})
	if err != nil {
		return fmt.Errorf("seed owner: %w", err)
	}
	return nil
}

// AddAdmin appends id to the persisted admin list. It reports whether the
// list changed.
func (o *Operators) AddAdmin(ctx context.Context, id int64) (bool, error) {
	added := false
	err := o.vars.Update(ctx, []string{model.KeyAdmins}, func(tx *storage.VarsTxn) error {
		added = false
		admins := tx.Int64s(model.KeyAdmins)
		if slices.Contains(admins, id) {
			return nil
		}
		added = true
		return tx.Set(model.KeyAdmins, append(admins, id))
	})
	if err != nil {
		return false, fmt.Errorf("add admin: %w", err)
	}
	return added, nil
}

// IsOperator reports whether userID may run admin workflows. Store errors are
// returned to the caller, which should deny access.
func (o *Operators) IsOperator(ctx context.Context, userID int64) (bool, error) {
	if slices.Contains(o.static, userID) {
		return true, nil
	}
	owners, err := o.vars.GetString(ctx, model.KeyOwners, "")
	if err != nil {
		return false, fmt.Errorf("read owners: %w", err)
	}
	if slices.Contains(model.ParseIDList(owners), userID) {
		return true, nil
	}
	admins, err := o.vars.GetInt64s(ctx, model.KeyAdmins, nil)
	if err != nil {
		return false, fmt.Errorf("read admins: %w", err)
	}
	return slices.Contains(admins, userID), nil
}
