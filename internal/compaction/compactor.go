// Package compaction physically removes the index data of tombstoned
// documents.
//
// Each pass runs in a single write transaction, so an interrupted run leaves
// the index consistent: a document is either fully purged or still
// tombstoned. Readers on older snapshots are unaffected.
package compaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/internal/resource"
	"github.com/hupe1980/lexigo/internal/storage"
)

// Config bounds a pass.
type Config struct {
	// BatchSize is the number of tombstones taken per pass.
	BatchSize int
	// MaxWriteBytes stops a pass once this many key bytes were deleted.
	MaxWriteBytes int
}

// FieldNames resolves field ids to names.
type FieldNames interface {
	GetFieldName(id uint32) (string, bool)
}

// Stats summarizes a run.
type Stats struct {
	Passes int
	Purged int
	Bytes  int
}

// Compactor purges tombstoned documents.
type Compactor struct {
	db        *storage.DB
	fields    FieldNames
	cfg       Config
	resources *resource.Controller
	logger    *slog.Logger
}

// New returns a Compactor. resources may be nil.
func New(db *storage.DB, fields FieldNames, cfg Config, resources *resource.Controller, logger *slog.Logger) *Compactor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1024
	}
	if cfg.MaxWriteBytes <= 0 {
		cfg.MaxWriteBytes = 8 << 20
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compactor{db: db, fields: fields, cfg: cfg, resources: resources, logger: logger}
}

// Run executes passes until no tombstones remain or ctx is done. Cancellation
// is observed between passes only.
func (c *Compactor) Run(ctx context.Context) (Stats, error) {
	var st Stats
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		purged, written, err := c.Pass()
		if err != nil {
			return st, err
		}
		if purged == 0 {
			return st, nil
		}
		st.Passes++
		st.Purged += purged
		st.Bytes += written
		c.logger.Debug("compaction pass committed", "purged", purged, "bytes", written)

		if err := c.resources.ThrottleCompaction(ctx, written); err != nil {
			return st, err
		}
	}
}

// Pass purges up to BatchSize tombstoned documents in one transaction and
// returns how many were purged and how many key bytes were deleted.
func (c *Compactor) Pass() (purged, written int, err error) {
	start := time.Now()
	err = c.db.Update(func(tx *storage.Tx) error {
		deletes := tx.Tree(keys.DeletesTree)
		if deletes == nil {
			return nil
		}

		batch := roaring64.New()
		for k := range deletes.Iterate(storage.IterOptions{}).All() {
			id, err := keys.ParseDocID(k)
			if err != nil {
				return fmt.Errorf("tombstone key: %w", err)
			}
			batch.Add(id)
			if int(batch.GetCardinality()) >= c.cfg.BatchSize {
				break
			}
		}

		it := batch.Iterator()
		for it.HasNext() && written < c.cfg.MaxWriteBytes {
			id := it.Next()
			n, err := Purge(tx, c.fields, id)
			if err != nil {
				return fmt.Errorf("purge %d: %w", id, err)
			}
			if err := deletes.Delete(keys.DocID(id)); err != nil {
				return err
			}
			written += n + keys.DocIDSize
			purged++
		}
		return adjustDeleteCount(tx, -int64(purged))
	})
	if err != nil {
		return 0, 0, err
	}
	if purged > 0 {
		c.logger.Debug("compaction pass", "purged", purged, "elapsed", time.Since(start))
	}
	return purged, written, nil
}

type forwardEntry struct {
	key   []byte
	field uint32
	term  []byte
}

// Purge removes the postings, positions, forward entries and stored blob of
// doc, leaving its tombstone, and returns the number of key bytes deleted.
// The write path also uses it to drop the previous version of an updated
// document inside the flush transaction.
func Purge(tx *storage.Tx, fields FieldNames, doc uint64) (int, error) {
	var entries []forwardEntry
	fwd := tx.Tree(keys.ForwardTree)
	for k, v := range fwd.Iterate(storage.IterOptions{Prefix: keys.ForwardDocPrefix(doc)}).All() {
		_, field, _, err := keys.ParseForward(k)
		if err != nil {
			return 0, err
		}
		entries = append(entries, forwardEntry{
			key:   append([]byte(nil), k...),
			field: field,
			term:  append([]byte(nil), v...),
		})
	}

	written := 0
	docKey := keys.DocID(doc)
	positions := tx.Tree(keys.PositionsTree)
	trees := make(map[uint32]*storage.MultiTree)
	for _, e := range entries {
		mt, ok := trees[e.field]
		if !ok {
			name, known := fields.GetFieldName(e.field)
			if !known {
				return written, fmt.Errorf("unknown field id %d", e.field)
			}
			mt = tx.MultiTree(keys.PostingTree(name))
			trees[e.field] = mt
		}
		if mt != nil && mt.Get(e.term, docKey) != nil {
			if err := mt.Delete(e.term, docKey); err != nil {
				return written, err
			}
			written += len(e.term) + keys.DocIDSize
		}
		if positions != nil {
			pk := keys.Position(doc, e.field, e.term)
			if positions.Get(pk) != nil {
				if err := positions.Delete(pk); err != nil {
					return written, err
				}
				written += len(pk)
			}
		}
		if err := fwd.Delete(e.key); err != nil {
			return written, err
		}
		written += len(e.key)
	}

	if stored := tx.Tree(keys.StoredTree); stored != nil && stored.Get(docKey) != nil {
		if err := stored.Delete(docKey); err != nil {
			return written, err
		}
		written += len(docKey)
	}
	return written, nil
}

func adjustDeleteCount(tx *storage.Tx, delta int64) error {
	if delta == 0 {
		return nil
	}
	return AdjustCounter(tx, keys.MetaDeletes, delta)
}

// AdjustCounter adds delta to the u64 metadata counter at key, clamping at
// zero.
func AdjustCounter(tx *storage.Tx, key []byte, delta int64) error {
	meta, err := tx.CreateTree(keys.MetadataTree)
	if err != nil {
		return err
	}
	var cur uint64
	if v := meta.Get(key); v != nil {
		if cur, err = keys.ParseUint64(v); err != nil {
			return err
		}
	}
	next := int64(cur) + delta
	if next < 0 {
		next = 0
	}
	return meta.Put(key, keys.Uint64(uint64(next)))
}
