// Package storage adapts go.etcd.io/bbolt to the ordered key-value contract the
// index is written against: named trees, multi-valued trees, forward cursors
// with prefix/upper bounds, snapshot reads and atomic batches.
//
// A tree is a top-level bucket. A multi-valued tree is a top-level bucket whose
// keys own nested buckets; the nested bucket's keys are the values of the key.
// Byte slices returned by any read are only valid for the life of the
// transaction that produced them.
package storage

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrReadOnly is returned when a mutation is attempted in a read transaction.
	ErrReadOnly = errors.New("storage: transaction is read-only")
	// ErrTreeKind is returned when a tree is opened with the wrong kind.
	ErrTreeKind = errors.New("storage: key holds a nested tree")
)

// DefaultInitialMmapSize keeps long-lived read snapshots from blocking writers
// on remap for small and medium indexes.
const DefaultInitialMmapSize = 64 << 20

// Options configures the underlying database.
type Options struct {
	// Timeout bounds how long Open waits for the file lock. Zero waits forever.
	Timeout time.Duration
	// InitialMmapSize is the initial mmap size in bytes.
	InitialMmapSize int
	// NoSync skips fsync on commit. Only safe for tests and rebuildable data.
	NoSync bool
	// ReadOnly opens the database read-only.
	ReadOnly bool
}

// DB is an open storage engine.
type DB struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string, opts Options) (*DB, error) {
	if opts.InitialMmapSize <= 0 {
		opts.InitialMmapSize = DefaultInitialMmapSize
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:         opts.Timeout,
		InitialMmapSize: opts.InitialMmapSize,
		NoSync:          opts.NoSync,
		ReadOnly:        opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.db.Path() }

// Close releases the database. It blocks until open transactions finish.
func (d *DB) Close() error { return d.db.Close() }

// Begin starts a transaction. Read transactions are snapshots and must be
// rolled back by the caller.
func (d *DB) Begin(writable bool) (*Tx, error) {
	tx, err := d.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// View runs fn in a read snapshot.
func (d *DB) View(fn func(*Tx) error) error {
	return d.db.View(func(tx *bolt.Tx) error { return fn(&Tx{tx: tx}) })
}

// Update runs fn in a write transaction, committing if fn returns nil.
func (d *DB) Update(fn func(*Tx) error) error {
	return d.db.Update(func(tx *bolt.Tx) error { return fn(&Tx{tx: tx}) })
}

// Write applies the batch atomically.
func (d *DB) Write(b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	return d.Update(b.Apply)
}

// Tx is a read or write transaction.
type Tx struct {
	tx *bolt.Tx
}

// Writable reports whether the transaction may mutate.
func (t *Tx) Writable() bool { return t.tx.Writable() }

// Rollback discards the transaction. Read transactions must always be rolled back.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// Size returns the current database size in bytes as seen by this transaction.
func (t *Tx) Size() int64 { return t.tx.Size() }

// Tree returns the named tree, or nil if it does not exist.
// Reads on a nil *Tree behave as reads on an empty tree.
func (t *Tx) Tree(name string) *Tree {
	b := t.tx.Bucket([]byte(name))
	if b == nil {
		return nil
	}
	return &Tree{b: b}
}

// CreateTree returns the named tree, creating it if needed.
func (t *Tx) CreateTree(name string) (*Tree, error) {
	if !t.tx.Writable() {
		return nil, ErrReadOnly
	}
	b, err := t.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("storage: create tree %q: %w", name, err)
	}
	return &Tree{b: b}, nil
}

// MultiTree returns the named multi-valued tree, or nil if it does not exist.
func (t *Tx) MultiTree(name string) *MultiTree {
	b := t.tx.Bucket([]byte(name))
	if b == nil {
		return nil
	}
	return &MultiTree{b: b}
}

// CreateMultiTree returns the named multi-valued tree, creating it if needed.
func (t *Tx) CreateMultiTree(name string) (*MultiTree, error) {
	if !t.tx.Writable() {
		return nil, ErrReadOnly
	}
	b, err := t.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("storage: create tree %q: %w", name, err)
	}
	return &MultiTree{b: b}, nil
}

// Tree is a single-valued ordered tree.
type Tree struct {
	b *bolt.Bucket
}

// Get returns the value for key, or nil.
func (t *Tree) Get(key []byte) []byte {
	if t == nil {
		return nil
	}
	return t.b.Get(key)
}

// Put sets key to value.
func (t *Tree) Put(key, value []byte) error { return t.b.Put(key, value) }

// Delete removes key. Deleting an absent key is not an error.
func (t *Tree) Delete(key []byte) error { return t.b.Delete(key) }

// Iterate returns a cursor over the tree restricted by opts.
func (t *Tree) Iterate(opts IterOptions) *Iterator {
	if t == nil {
		return &Iterator{}
	}
	return newIterator(t.b.Cursor(), opts)
}

// MultiTree maps each key to an ordered set of (sub-key, value) entries.
type MultiTree struct {
	b *bolt.Bucket
}

// Add inserts or replaces the entry sub under key.
func (m *MultiTree) Add(key, sub, value []byte) error {
	nb, err := m.b.CreateBucketIfNotExists(key)
	if err != nil {
		if errors.Is(err, bolt.ErrIncompatibleValue) {
			return ErrTreeKind
		}
		return err
	}
	return nb.Put(sub, value)
}

// Delete removes the entry sub under key. The key itself is dropped once its
// last entry goes.
func (m *MultiTree) Delete(key, sub []byte) error {
	nb := m.b.Bucket(key)
	if nb == nil {
		return nil
	}
	if err := nb.Delete(sub); err != nil {
		return err
	}
	if k, _ := nb.Cursor().First(); k == nil {
		return m.b.DeleteBucket(key)
	}
	return nil
}

// Get returns the value of entry sub under key, or nil.
func (m *MultiTree) Get(key, sub []byte) []byte {
	if m == nil {
		return nil
	}
	nb := m.b.Bucket(key)
	if nb == nil {
		return nil
	}
	return nb.Get(sub)
}

// Count returns the number of entries under key.
func (m *MultiTree) Count(key []byte) int {
	if m == nil {
		return 0
	}
	nb := m.b.Bucket(key)
	if nb == nil {
		return 0
	}
	return nb.Stats().KeyN
}

// Values returns a cursor over the entries of key in sub-key order.
func (m *MultiTree) Values(key []byte, opts IterOptions) *Iterator {
	if m == nil {
		return &Iterator{}
	}
	nb := m.b.Bucket(key)
	if nb == nil {
		return &Iterator{}
	}
	return newIterator(nb.Cursor(), opts)
}

