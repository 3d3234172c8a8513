// Package storage defines the key-value persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
)

// ErrConflict is returned when an optimistic Update keeps losing to concurrent writers.
var ErrConflict = errors.New("concurrent update conflict")

// KV is a string key-value store. Values are opaque JSON documents; use Vars
// for typed access.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error

	// Update runs fn against a consistent view of keys and applies the writes
	// it stages atomically. An error from fn aborts the update with nothing written.
	Update(ctx context.Context, keys []string, fn func(tx Txn) error) error

	Close() error
}

// Txn is the view of a set of keys inside an Update.
type Txn interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

type write struct {
	value   string
	deleted bool
}

// txn buffers writes over a snapshot of the watched keys.
type txn struct {
	read   map[string]string
	writes map[string]write
	order  []string
}

func newTxn(read map[string]string) *txn {
	return &txn{read: read, writes: make(map[string]write)}
}

func (t *txn) Get(key string) (string, bool) {
	if w, ok := t.writes[key]; ok {
		return w.value, !w.deleted
	}
	v, ok := t.read[key]
	return v, ok
}

func (t *txn) Set(key, value string) {
	t.stage(key, write{value: value})
}

func (t *txn) Delete(key string) {
	t.stage(key, write{deleted: true})
}

func (t *txn) stage(key string, w write) {
	if _, ok := t.writes[key]; !ok {
		t.order = append(t.order, key)
	}
	t.writes[key] = w
}
