package storage

import (
	"bytes"
	"fmt"
)

type opKind uint8

const (
	opPut opKind = iota
	opDelete
	opMultiAdd
	opMultiDelete
	opFunc
)

type op struct {
	kind  opKind
	tree  string
	key   []byte
	sub   []byte
	value []byte
	fn    func(*Tx) error
}

// Batch accumulates mutations that are applied in order inside one
// transaction. Keys and values are copied on enqueue.
type Batch struct {
	ops  []op
	size int
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// Put sets key to value in tree.
func (b *Batch) Put(tree string, key, value []byte) {
	b.ops = append(b.ops, op{kind: opPut, tree: tree, key: bytes.Clone(key), value: bytes.Clone(value)})
	b.size += len(key) + len(value)
}

// Delete removes key from tree.
func (b *Batch) Delete(tree string, key []byte) {
	b.ops = append(b.ops, op{kind: opDelete, tree: tree, key: bytes.Clone(key)})
	b.size += len(key)
}

// MultiAdd adds entry sub=value under key in the multi-valued tree.
func (b *Batch) MultiAdd(tree string, key, sub, value []byte) {
	b.ops = append(b.ops, op{kind: opMultiAdd, tree: tree, key: bytes.Clone(key), sub: bytes.Clone(sub), value: bytes.Clone(value)})
	b.size += len(key) + len(sub) + len(value)
}

// MultiDelete removes entry sub under key in the multi-valued tree.
func (b *Batch) MultiDelete(tree string, key, sub []byte) {
	b.ops = append(b.ops, op{kind: opMultiDelete, tree: tree, key: bytes.Clone(key), sub: bytes.Clone(sub)})
	b.size += len(key) + len(sub)
}

// Do schedules fn to run at its position in the batch. fn sees every
// earlier mutation of the batch.
func (b *Batch) Do(fn func(*Tx) error) {
	b.ops = append(b.ops, op{kind: opFunc, fn: fn})
}

// Len returns the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Size returns the approximate number of key and value bytes queued.
func (b *Batch) Size() int { return b.size }

// Truncate drops every operation queued after the first n.
func (b *Batch) Truncate(n int) {
	if n < 0 || n >= len(b.ops) {
		return
	}
	for _, o := range b.ops[n:] {
		b.size -= len(o.key) + len(o.sub) + len(o.value)
	}
	clear(b.ops[n:])
	b.ops = b.ops[:n]
}

// Reset empties the batch for reuse.
func (b *Batch) Reset() {
	clear(b.ops)
	b.ops = b.ops[:0]
	b.size = 0
}

// Apply runs every queued operation against a write transaction.
func (b *Batch) Apply(tx *Tx) error {
	if !tx.Writable() {
		return ErrReadOnly
	}
	trees := make(map[string]*Tree)
	multi := make(map[string]*MultiTree)

	tree := func(name string) (*Tree, error) {
		if t, ok := trees[name]; ok {
			return t, nil
		}
		t, err := tx.CreateTree(name)
		if err != nil {
			return nil, err
		}
		trees[name] = t
		return t, nil
	}
	multiTree := func(name string) (*MultiTree, error) {
		if m, ok := multi[name]; ok {
			return m, nil
		}
		m, err := tx.CreateMultiTree(name)
		if err != nil {
			return nil, err
		}
		multi[name] = m
		return m, nil
	}

	for i := range b.ops {
		o := &b.ops[i]
		var err error
		switch o.kind {
		case opPut:
			var t *Tree
			if t, err = tree(o.tree); err == nil {
				err = t.Put(o.key, o.value)
			}
		case opDelete:
			var t *Tree
			if t, err = tree(o.tree); err == nil {
				err = t.Delete(o.key)
			}
		case opMultiAdd:
			var m *MultiTree
			if m, err = multiTree(o.tree); err == nil {
				err = m.Add(o.key, o.sub, o.value)
			}
		case opMultiDelete:
			if m := tx.MultiTree(o.tree); m != nil {
				err = m.Delete(o.key, o.sub)
			}
		case opFunc:
			err = o.fn(tx)
		}
		if err != nil {
			return fmt.Errorf("storage: batch op %d on %q: %w", i, o.tree, err)
		}
	}
	return nil
}
