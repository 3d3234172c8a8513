package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	srv := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), RedisConfig{Addr: srv.Addr(), Prefix: "test:"})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func backends(t *testing.T) map[string]KV {
	t.Helper()
	return map[string]KV{
		"sqlite": newTestDB(t),
		"redis":  newTestRedis(t),
	}
}

func TestKVGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v; want absent", ok, err)
			}

			if err := kv.Set(ctx, "k", `"v1"`); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := kv.Set(ctx, "k", `"v2"`); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, ok, err := kv.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("get: ok %v, err %v", ok, err)
			}
			if diff := cmp.Diff(`"v2"`, got); diff != "" {
				t.Errorf("value (-want +got):\n%s", diff)
			}

			if err := kv.Delete(ctx, "k", "never-set"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := kv.Get(ctx, "k"); ok {
				t.Error("key should be gone after delete")
			}
		})
	}
}

func TestKVUpdate(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = kv.Set(ctx, "a", "1")
			_ = kv.Set(ctx, "b", "2")

			err := kv.Update(ctx, []string{"a", "b", "c"}, func(tx Txn) error {
				a, _ := tx.Get("a")
				tx.Set("c", a+"!")
				tx.Delete("b")
				tx.Set("a", "10")
				if v, ok := tx.Get("a"); !ok || v != "10" {
					t.Errorf("read-your-writes: got %q, %v", v, ok)
				}
				if _, ok := tx.Get("b"); ok {
					t.Error("staged delete should hide b")
				}
				return nil
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}

			want := map[string]string{"a": "10", "c": "1!"}
			for k, v := range want {
				got, ok, _ := kv.Get(ctx, k)
				if !ok {
					t.Errorf("%s missing", k)
					continue
				}
				if diff := cmp.Diff(v, got); diff != "" {
					t.Errorf("%s (-want +got):\n%s", k, diff)
				}
			}
			if _, ok, _ := kv.Get(ctx, "b"); ok {
				t.Error("b should be deleted")
			}
		})
	}
}

func TestKVUpdateAbort(t *testing.T) {
	ctx := context.Background()
	errStop := errors.New("stop")
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = kv.Set(ctx, "a", "1")
			err := kv.Update(ctx, []string{"a"}, func(tx Txn) error {
				tx.Set("a", "2")
				return errStop
			})
			if !errors.Is(err, errStop) {
				t.Fatalf("update err = %v, want errStop", err)
			}
			got, _, _ := kv.Get(ctx, "a")
			if diff := cmp.Diff("1", got); diff != "" {
				t.Errorf("aborted update must not write (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKVUpdateConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			vars := NewVars(kv)
			const writers = 8

			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(id int64) {
					defer wg.Done()
					for {
						err := vars.Update(ctx, []string{"list"}, func(tx *VarsTxn) error {
							return tx.Set("list", append(tx.Int64s("list"), id))
						})
						if errors.Is(err, ErrConflict) {
							continue
						}
						if err != nil {
							t.Errorf("update: %v", err)
						}
						return
					}
				}(int64(i))
			}
			wg.Wait()

			got, err := vars.GetInt64s(ctx, "list", nil)
			if err != nil {
				t.Fatalf("get list: %v", err)
			}
			if diff := cmp.Diff(writers, len(got)); diff != "" {
				t.Errorf("no append may be lost (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVarsTypedAccess(t *testing.T) {
	ctx := context.Background()
	vars := NewVars(newTestDB(t))

	if got, _ := vars.GetString(ctx, "F_sub", "-100111"); got != "-100111" {
		t.Errorf("default string = %q", got)
	}
	if got, _ := vars.GetInt(ctx, "reqx", 7); got != 7 {
		t.Errorf("default int = %d", got)
	}

	if err := vars.Set(ctx, "F_sub", "-100111 -100222"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	if err := vars.Set(ctx, "reqx", 3); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if err := vars.Set(ctx, "req_link", []string{"https://t.me/+a"}); err != nil {
		t.Fatalf("set strings: %v", err)
	}
	if err := vars.Set(ctx, "https://t.me/+a", []int64{1, 2}); err != nil {
		t.Fatalf("set ints: %v", err)
	}

	s, _ := vars.GetString(ctx, "F_sub", "")
	if diff := cmp.Diff("-100111 -100222", s); diff != "" {
		t.Errorf("string (-want +got):\n%s", diff)
	}
	n, _ := vars.GetInt(ctx, "reqx", 0)
	if diff := cmp.Diff(int64(3), n); diff != "" {
		t.Errorf("int (-want +got):\n%s", diff)
	}
	links, _ := vars.GetStrings(ctx, "req_link", nil)
	if diff := cmp.Diff([]string{"https://t.me/+a"}, links); diff != "" {
		t.Errorf("strings (-want +got):\n%s", diff)
	}
	ids, _ := vars.GetInt64s(ctx, "https://t.me/+a", nil)
	if diff := cmp.Diff([]int64{1, 2}, ids); diff != "" {
		t.Errorf("ints (-want +got):\n%s", diff)
	}

	// Wrong shape falls back to the default.
	if got, _ := vars.GetInt(ctx, "F_sub", -1); got != -1 {
		t.Errorf("wrong-shape int = %d, want default", got)
	}
	if err := vars.Set(ctx, "gone", nil); err != nil {
		t.Fatalf("set nil: %v", err)
	}
	if got, _ := vars.GetInt64s(ctx, "gone", []int64{9}); len(got) != 1 || got[0] != 9 {
		t.Errorf("null value should yield default, got %v", got)
	}
}

func TestSQLiteSchema(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('kv') ORDER BY cid`)
	if err != nil {
		t.Fatalf("table info: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if diff := cmp.Diff([]string{"key", "value", "updated_at"}, cols); diff != "" {
		t.Errorf("kv columns (-want +got):\n%s", diff)
	}

	// Overwrites keep a single row.
	for _, v := range []string{`"a"`, `"b"`} {
		if err := s.Set(ctx, "k", v); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv WHERE key = 'k'`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows for k = %d, want 1", n)
	}
}
