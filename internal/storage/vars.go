package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Vars is the typed client over a KV store. Values are JSON encoded; a
// missing key or a value of the wrong shape yields the caller's default.
type Vars struct {
	kv KV
}

// NewVars wraps kv.
func NewVars(kv KV) *Vars {
	return &Vars{kv: kv}
}

// GetString returns the string stored under key, or def.
func (v *Vars) GetString(ctx context.Context, key, def string) (string, error) {
	var out string
	ok, err := v.get(ctx, key, &out)
	if err != nil || !ok {
		return def, err
	}
	return out, nil
}

// GetInt returns the integer stored under key, or def.
func (v *Vars) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	var out int64
	ok, err := v.get(ctx, key, &out)
	if err != nil || !ok {
		return def, err
	}
	return out, nil
}

// GetInt64s returns the integer list stored under key, or def.
func (v *Vars) GetInt64s(ctx context.Context, key string, def []int64) ([]int64, error) {
	var out []int64
	ok, err := v.get(ctx, key, &out)
	if err != nil || !ok {
		return def, err
	}
	return out, nil
}

// GetStrings returns the string list stored under key, or def.
func (v *Vars) GetStrings(ctx context.Context, key string, def []string) ([]string, error) {
	var out []string
	ok, err := v.get(ctx, key, &out)
	if err != nil || !ok {
		return def, err
	}
	return out, nil
}

// Set stores value under key. value must be a string, integer or list of those.
func (v *Vars) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return v.kv.Set(ctx, key, string(data))
}

// Delete removes keys.
func (v *Vars) Delete(ctx context.Context, keys ...string) error {
	return v.kv.Delete(ctx, keys...)
}

// Update runs fn atomically over keys. See KV.Update.
func (v *Vars) Update(ctx context.Context, keys []string, fn func(tx *VarsTxn) error) error {
	return v.kv.Update(ctx, keys, func(tx Txn) error {
		return fn(&VarsTxn{tx: tx})
	})
}

func (v *Vars) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := v.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return decode(raw, dst), nil
}

// VarsTxn is the typed view of a transaction.
type VarsTxn struct {
	tx Txn
}

// String returns the string under key, or def.
func (t *VarsTxn) String(key, def string) string {
	var out string
	if !t.get(key, &out) {
		return def
	}
	return out
}

// Int returns the integer under key, or def.
func (t *VarsTxn) Int(key string, def int64) int64 {
	var out int64
	if !t.get(key, &out) {
		return def
	}
	return out
}

// Int64s returns the integer list under key, or nil.
func (t *VarsTxn) Int64s(key string) []int64 {
	var out []int64
	t.get(key, &out)
	return out
}

// Strings returns the string list under key, or nil.
func (t *VarsTxn) Strings(key string) []string {
	var out []string
	t.get(key, &out)
	return out
}

// Set stages value under key.
func (t *VarsTxn) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	t.tx.Set(key, string(data))
	return nil
}

// Delete stages removal of key.
func (t *VarsTxn) Delete(key string) {
	t.tx.Delete(key)
}

func (t *VarsTxn) get(key string, dst any) bool {
	raw, ok := t.tx.Get(key)
	if !ok {
		return false
	}
	return decode(raw, dst)
}

func decode(raw string, dst any) bool {
	if raw == "null" {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}
