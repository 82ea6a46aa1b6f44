// Package memory is an in-process implementation of the repository
// contracts. Documents are kept bson-encoded so callers never share memory
// with the store, the same as with a real database. It backs
// DB_DRIVER=memory and the service and controller tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/repositories"
)

type row struct {
	seq int64
	raw []byte
}

// table is one collection.
type table[T any] struct {
	mu     sync.RWMutex
	rows   map[primitive.ObjectID]row
	seq    int64
	id     func(*T) primitive.ObjectID
	unique func(*T) []string
}

func newTable[T any](id func(*T) primitive.ObjectID, unique func(*T) []string) *table[T] {
	return &table[T]{rows: map[primitive.ObjectID]row{}, id: id, unique: unique}
}

func (t *table[T]) decode(r row) (*T, error) {
	var out T
	if err := bson.Unmarshal(r.raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// conflicts reports whether doc collides on a unique key with another row.
// Callers hold the lock.
func (t *table[T]) conflicts(doc *T) error {
	if t.unique == nil {
		return nil
	}
	keys := t.unique(doc)
	if len(keys) == 0 {
		return nil
	}
	self := t.id(doc)
	for id, r := range t.rows {
		if id == self {
			continue
		}
		other, err := t.decode(r)
		if err != nil {
			return err
		}
		for _, a := range t.unique(other) {
			for _, b := range keys {
				if a == b {
					return fmt.Errorf("%w: %s", repositories.ErrDuplicate, a)
				}
			}
		}
	}
	return nil
}

func (t *table[T]) insert(doc *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.id(doc)
	if _, ok := t.rows[id]; ok {
		return fmt.Errorf("%w: _id %s", repositories.ErrDuplicate, id.Hex())
	}
	if err := t.conflicts(doc); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	t.seq++
	t.rows[id] = row{seq: t.seq, raw: raw}
	return nil
}

func (t *table[T]) get(id primitive.ObjectID) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return t.decode(r)
}

func (t *table[T]) put(doc *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.id(doc)
	r, ok := t.rows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := t.conflicts(doc); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	t.rows[id] = row{seq: r.seq, raw: raw}
	return nil
}

// mutate loads id, applies fn and writes it back under one lock, so
// concurrent mutations of other fields are not lost.
func (t *table[T]) mutate(id primitive.ObjectID, fn func(*T)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	doc, err := t.decode(r)
	if err != nil {
		return err
	}
	fn(doc)
	if err := t.conflicts(doc); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	t.rows[id] = row{seq: r.seq, raw: raw}
	return nil
}

func (t *table[T]) remove(id primitive.ObjectID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// scan returns matching documents in insertion order.
func (t *table[T]) scan(match func(*T) bool) ([]T, error) {
	t.mu.RLock()
	rows := make([]row, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r)
	}
	t.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := []T{}
	for _, r := range rows {
		doc, err := t.decode(r)
		if err != nil {
			return nil, err
		}
		if match == nil || match(doc) {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (t *table[T]) snapshot() any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make(map[primitive.ObjectID]row, len(t.rows))
	for k, v := range t.rows {
		cp[k] = v
	}
	return snap{rows: cp, seq: t.seq}
}

func (t *table[T]) restore(s any) {
	v := s.(snap)
	t.mu.Lock()
	t.rows, t.seq = v.rows, v.seq
	t.mu.Unlock()
}

type snap struct {
	rows map[primitive.ObjectID]row
	seq  int64
}

type snapshotter interface {
	snapshot() any
	restore(any)
}

type txKey struct{}

// Tx gives all-or-nothing semantics by snapshotting every table and
// restoring them when fn fails. Transactions are serialised.
type Tx struct {
	mu     sync.Mutex
	tables []snapshotter
}

func (t *Tx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	saved := make([]any, len(t.tables))
	for i, tb := range t.tables {
		saved[i] = tb.snapshot()
	}
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for i, tb := range t.tables {
			tb.restore(saved[i])
		}
		return err
	}
	return nil
}
