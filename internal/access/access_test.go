package access

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fsub_bot/internal/model"
	"fsub_bot/internal/storage"
)

func newVars(t *testing.T) *storage.Vars {
	t.Helper()
	db, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewVars(db)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	vars := newVars(t)
	if err := vars.Set(ctx, model.KeyOwners, "7"); err != nil {
		t.Fatal(err)
	}
	ops := NewOperators(vars, nil)

	for range 2 {
		if err := ops.Seed(ctx, 100); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := vars.GetString(ctx, model.KeyOwners, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("7 100", got); diff != "" {
		t.Errorf("owners (-want +got):\n%s", diff)
	}
}

func TestIsOperator(t *testing.T) {
	ctx := context.Background()
	vars := newVars(t)
	ops := NewOperators(vars, []int64{1})
	if err := ops.Seed(ctx, 2); err != nil {
		t.Fatal(err)
	}
	added, err := ops.AddAdmin(ctx, 3)
	if err != nil || !added {
		t.Fatalf("add admin: added=%v err=%v", added, err)
	}
	if added, _ := ops.AddAdmin(ctx, 3); added {
		t.Error("second add must be a no-op")
	}

	tests := []struct {
		name   string
		userID int64
		want   bool
	}{
		{name: "static", userID: 1, want: true},
		{name: "owner", userID: 2, want: true},
		{name: "admin", userID: 3, want: true},
		{name: "stranger", userID: 4, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ops.IsOperator(ctx, tt.userID)
			if err != nil {
				t.Fatalf("is operator: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsOperator(%d) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}
