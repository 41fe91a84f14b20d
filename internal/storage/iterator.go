package storage

import (
	"bytes"
	"iter"

	bolt "go.etcd.io/bbolt"
)

// IterOptions bounds an iterator.
type IterOptions struct {
	// Prefix restricts the iterator to keys starting with Prefix.
	Prefix []byte
	// MaxKey is an inclusive upper bound.
	MaxKey []byte
}

// Iterator is a forward cursor. A zero Iterator is empty.
type Iterator struct {
	c      *bolt.Cursor
	prefix []byte
	max    []byte
	k, v   []byte
}

func newIterator(c *bolt.Cursor, opts IterOptions) *Iterator {
	return &Iterator{c: c, prefix: opts.Prefix, max: opts.MaxKey}
}

// SeekToFirst positions at the first key in bounds.
func (it *Iterator) SeekToFirst() bool {
	if it.c == nil {
		return false
	}
	if len(it.prefix) > 0 {
		return it.set(it.c.Seek(it.prefix))
	}
	return it.set(it.c.First())
}

// Seek positions at the first key >= key in bounds.
func (it *Iterator) Seek(key []byte) bool {
	if it.c == nil {
		return false
	}
	if len(it.prefix) > 0 && bytes.Compare(key, it.prefix) < 0 {
		key = it.prefix
	}
	return it.set(it.c.Seek(key))
}

// SeekToLast positions at the last key in bounds.
func (it *Iterator) SeekToLast() bool {
	if it.c == nil {
		return false
	}
	var bound []byte
	if succ := successor(it.prefix); succ != nil {
		bound = succ
	}
	var k, v []byte
	switch {
	case it.max != nil && (bound == nil || bytes.Compare(it.max, bound) < 0):
		k, v = it.c.Seek(it.max)
		if k == nil {
			k, v = it.c.Last()
		} else if bytes.Compare(k, it.max) > 0 {
			k, v = it.c.Prev()
		}
	case bound != nil:
		k, v = it.c.Seek(bound)
		if k == nil {
			k, v = it.c.Last()
		} else {
			k, v = it.c.Prev()
		}
	default:
		k, v = it.c.Last()
	}
	return it.set(k, v)
}

// Next advances the cursor.
func (it *Iterator) Next() bool {
	if it.c == nil || it.k == nil {
		return false
	}
	return it.set(it.c.Next())
}

// Key returns the current key.
func (it *Iterator) Key() []byte { return it.k }

// Value returns the current value. It is nil for keys holding nested trees.
func (it *Iterator) Value() []byte { return it.v }

// All iterates every entry in bounds from the first key.
func (it *Iterator) All() iter.Seq2[[]byte, []byte] {
	return it.From(nil)
}

// From iterates entries in bounds starting at the first key >= start.
func (it *Iterator) From(start []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		var ok bool
		if start == nil {
			ok = it.SeekToFirst()
		} else {
			ok = it.Seek(start)
		}
		for ; ok; ok = it.Next() {
			if !yield(it.k, it.v) {
				return
			}
		}
	}
}

func (it *Iterator) set(k, v []byte) bool {
	if k == nil || !it.inBounds(k) {
		it.k, it.v = nil, nil
		return false
	}
	it.k, it.v = k, v
	return true
}

func (it *Iterator) inBounds(k []byte) bool {
	if len(it.prefix) > 0 && !bytes.HasPrefix(k, it.prefix) {
		return false
	}
	if it.max != nil && bytes.Compare(k, it.max) > 0 {
		return false
	}
	return true
}

// successor returns the smallest key greater than every key with prefix p,
// or nil if none exists.
func successor(p []byte) []byte {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0xff {
			s := bytes.Clone(p[:i+1])
			s[i]++
			return s
		}
	}
	return nil
}
