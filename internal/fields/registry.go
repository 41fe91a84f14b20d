// Package fields maintains the persisted, append-only mapping between field
// names and their small integer ids.
package fields

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/internal/storage"
)

// MaxNameSize is the longest field name in bytes.
const MaxNameSize = 255

var (
	// ErrInvalidName is returned for empty or oversized field names.
	ErrInvalidName = errors.New("invalid field name")
	// ErrExhausted is returned when no field ids remain.
	ErrExhausted = errors.New("field ids exhausted")
)

// Registry maps field names to ids. Lookups are served from memory; a new id
// is committed in its own transaction before it is returned, so it is
// durable and visible before any posting references it.
type Registry struct {
	db     *storage.DB
	logger *slog.Logger

	mu     sync.RWMutex
	byName map[string]uint32
	byID   map[uint32]string

	last  atomic.Uint32
	group singleflight.Group
}

// Load reads the persisted mapping.
func Load(db *storage.DB, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{
		db:     db,
		logger: logger,
		byName: make(map[string]uint32),
		byID:   make(map[uint32]string),
	}
	err := db.View(func(tx *storage.Tx) error {
		for k, v := range tx.Tree(keys.FieldsTree).Iterate(storage.IterOptions{}).All() {
			id, err := keys.ParseUint32(v)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			name := string(k)
			r.byName[name] = id
			r.byID[id] = name
			if id > r.last.Load() {
				r.last.Store(id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ValidateName checks the name constraints.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidName, len(name), MaxNameSize)
	}
	return nil
}

// Lookup returns the id of name without assigning one.
func (r *Registry) Lookup(name string) (uint32, bool) {
	r.mu.RLock()
	id, ok := r.byName[name]
	r.mu.RUnlock()
	return id, ok
}

// GetFieldName returns the name of id.
func (r *Registry) GetFieldName(id uint32) (string, bool) {
	r.mu.RLock()
	name, ok := r.byID[id]
	r.mu.RUnlock()
	return name, ok
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// GetFieldNumber returns the id of name, assigning and persisting a new one
// on first use. Concurrent first uses of one name share a single assignment.
func (r *Registry) GetFieldNumber(name string) (uint32, error) {
	if id, ok := r.Lookup(name); ok {
		return id, nil
	}
	if err := ValidateName(name); err != nil {
		return 0, err
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		if id, ok := r.Lookup(name); ok {
			return id, nil
		}
		id := r.last.Add(1)
		if id == 0 {
			return uint32(0), ErrExhausted
		}
		err := r.db.Update(func(tx *storage.Tx) error {
			t, err := tx.CreateTree(keys.FieldsTree)
			if err != nil {
				return err
			}
			return t.Put([]byte(name), keys.Uint32(id))
		})
		if err != nil {
			return uint32(0), fmt.Errorf("register field %q: %w", name, err)
		}

		r.mu.Lock()
		r.byName[name] = id
		r.byID[id] = name
		r.mu.Unlock()

		r.logger.Debug("field registered", "field", name, "field_id", id)
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}
