package lexigo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/lexigo/analysis"
	"github.com/hupe1980/lexigo/codec"
	"github.com/hupe1980/lexigo/internal/compaction"
	"github.com/hupe1980/lexigo/internal/fields"
	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/internal/resource"
	"github.com/hupe1980/lexigo/internal/storage"
)

// Index is an open full-text index. It is safe for concurrent use; create one
// Indexer per writing goroutine and one Searcher per reading goroutine.
type Index struct {
	db        *storage.DB
	opts      options
	id        uuid.UUID
	codec     codec.Codec
	fields    *fields.Registry
	resources *resource.Controller
	compactor *compaction.Compactor
	logger    *Logger
	metrics   MetricsCollector

	// lastDoc is the highest document id handed out.
	lastDoc atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu   sync.Mutex // guards task and orders wg.Add before Close
	task *compactionTask
	wg   sync.WaitGroup // compaction runs
}

// Open opens the index stored in the file at path, creating it if needed.
func Open(path string, optFns ...Option) (*Index, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	db, err := storage.Open(path, storage.Options{
		Timeout:         o.openTimeout,
		InitialMmapSize: o.initialMmapSize,
		NoSync:          o.noSync,
	})
	if err != nil {
		return nil, err
	}

	idx := &Index{
		db:      db,
		opts:    o,
		logger:  o.logger.WithComponent("index"),
		metrics: o.metricsCollector,
	}
	if err := idx.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	idx.fields, err = fields.Load(db, o.logger.WithComponent("fields").Logger)
	if err != nil {
		_ = db.Close()
		return nil, translateError(err)
	}

	idx.resources = resource.New(resource.Limits{
		BufferBytes:           o.memoryLimit,
		CompactionBytesPerSec: o.compactionIOLimit,
	})
	idx.compactor = compaction.New(db, idx.fields, compaction.Config{
		BatchSize:     o.compactionBatchSize,
		MaxWriteBytes: o.compactionMaxBytes,
	}, idx.resources, o.logger.WithComponent("compaction").Logger)
	idx.ctx, idx.cancel = context.WithCancel(context.Background())

	idx.logger.Info("index opened",
		"path", db.Path(),
		"index_id", idx.id,
		"codec", idx.codec.Name(),
		"fields", idx.fields.Len(),
		"last_doc", idx.lastDoc.Load(),
	)
	return idx, nil
}

// init creates the layout on first open and loads identity and counters.
func (idx *Index) init() error {
	return idx.db.Update(func(tx *storage.Tx) error {
		for _, name := range []string{keys.FieldsTree, keys.ForwardTree, keys.StoredTree, keys.DeletesTree} {
			if _, err := tx.CreateTree(name); err != nil {
				return err
			}
		}
		meta, err := tx.CreateTree(keys.MetadataTree)
		if err != nil {
			return err
		}

		if v := meta.Get(keys.MetaIndexID); v != nil {
			if idx.id, err = uuid.FromBytes(v); err != nil {
				return fmt.Errorf("%w: index id: %w", ErrCorrupt, err)
			}
		} else {
			idx.id = uuid.New()
			if err := meta.Put(keys.MetaIndexID, idx.id[:]); err != nil {
				return err
			}
			if err := meta.Put(keys.MetaCodec, []byte(idx.opts.codec.Name())); err != nil {
				return err
			}
		}

		name := string(meta.Get(keys.MetaCodec))
		c, ok := codec.ByName(name)
		if !ok {
			if name != idx.opts.codec.Name() {
				return fmt.Errorf("%w: unknown stored-field codec %q", ErrInvalidArgument, name)
			}
			c = idx.opts.codec
		}
		idx.codec = c

		if v := meta.Get(keys.MetaLastDoc); v != nil {
			last, err := keys.ParseUint64(v)
			if err != nil {
				return translateError(err)
			}
			idx.lastDoc.Store(last)
		}
		return nil
	})
}

// ID returns the identity of the index, fixed at creation.
func (idx *Index) ID() uuid.UUID { return idx.id }

// Analyzer returns the analyzer used for indexed values.
func (idx *Index) Analyzer() analysis.Analyzer { return idx.opts.analyzer }

// NumberOfDocuments returns the committed live document count.
func (idx *Index) NumberOfDocuments() (uint64, error) {
	return idx.counter(keys.MetaDocCount)
}

// NumberOfDeletes returns the committed count of tombstones not yet purged.
func (idx *Index) NumberOfDeletes() (uint64, error) {
	return idx.counter(keys.MetaDeletes)
}

func (idx *Index) counter(key []byte) (uint64, error) {
	if idx.closed.Load() {
		return 0, ErrClosed
	}
	var n uint64
	err := idx.db.View(func(tx *storage.Tx) error {
		var err error
		n, err = readCounter(tx, key)
		return err
	})
	return n, err
}

func readCounter(tx *storage.Tx, key []byte) (uint64, error) {
	v := tx.Tree(keys.MetadataTree).Get(key)
	if v == nil {
		return 0, nil
	}
	n, err := keys.ParseUint64(v)
	return n, translateError(err)
}

// nextDocumentID hands out a fresh, strictly increasing document id.
func (idx *Index) nextDocumentID() uint64 {
	return idx.lastDoc.Add(1)
}

// observeDocumentID keeps later fresh ids above id.
func (idx *Index) observeDocumentID(id uint64) {
	for {
		cur := idx.lastDoc.Load()
		if id <= cur || idx.lastDoc.CompareAndSwap(cur, id) {
			return
		}
	}
}

// CreateIndexer returns a new Indexer. Auto-flush is enabled.
func (idx *Index) CreateIndexer() (*Indexer, error) {
	if idx.closed.Load() {
		return nil, ErrClosed
	}
	return newIndexer(idx), nil
}

// CreateSearcher returns a Searcher over a snapshot of the committed index.
func (idx *Index) CreateSearcher() (*Searcher, error) {
	if idx.closed.Load() {
		return nil, ErrClosed
	}
	return newSearcher(idx)
}

// Close cancels compaction, waits for in-flight runs, including Compact
// calls, to finish and releases the storage. Open indexers and searchers must
// be closed first.
func (idx *Index) Close() error {
	idx.mu.Lock()
	if !idx.closed.CompareAndSwap(false, true) {
		idx.mu.Unlock()
		return nil
	}
	idx.cancel()
	idx.mu.Unlock()

	idx.wg.Wait()
	if err := idx.db.Close(); err != nil {
		return err
	}
	idx.logger.Info("index closed", "path", idx.db.Path(), "index_id", idx.id)
	return nil
}

// compactionTask is the handle of one background compaction run.
type compactionTask struct {
	done chan struct{}
	err  error
}

func (t *compactionTask) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// maybeCompact starts background compaction when tombstones exceed the
// configured share of live documents.
func (idx *Index) maybeCompact() {
	if !idx.opts.autoCompaction || idx.closed.Load() {
		return
	}
	var docs, deletes uint64
	err := idx.db.View(func(tx *storage.Tx) error {
		var err error
		if docs, err = readCounter(tx, keys.MetaDocCount); err != nil {
			return err
		}
		deletes, err = readCounter(tx, keys.MetaDeletes)
		return err
	})
	if err != nil {
		idx.logger.Error("compaction check failed", "error", err)
		return
	}
	if deletes == 0 || float64(deletes) <= float64(docs)*idx.opts.compactionRatio {
		return
	}
	idx.startCompaction()
}

// startCompaction launches a background run unless one is in flight. A run
// that ended with an error is replaced.
func (idx *Index) startCompaction() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		return false
	}
	if t := idx.task; t != nil {
		if !t.finished() {
			return false
		}
		if t.err != nil {
			idx.logger.Warn("replacing faulted compaction task", "error", t.err)
		}
	}

	t := &compactionTask{done: make(chan struct{})}
	idx.task = t
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		defer close(t.done)
		t.err = idx.runCompaction(idx.ctx)
	}()
	return true
}

func (idx *Index) runCompaction(ctx context.Context) error {
	if err := idx.resources.AcquireCompaction(ctx); err != nil {
		return nil
	}
	defer idx.resources.ReleaseCompaction()

	start := time.Now()
	st, err := idx.compactor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	elapsed := time.Since(start)
	idx.metrics.RecordCompaction(st.Purged, elapsed, err)
	idx.logger.LogCompaction(ctx, st.Purged, st.Passes, elapsed, err)
	return err
}

// Compact purges every tombstoned document now, in the calling goroutine.
// Close cancels it.
func (idx *Index) Compact(ctx context.Context) error {
	idx.mu.Lock()
	if idx.closed.Load() {
		idx.mu.Unlock()
		return ErrClosed
	}
	idx.wg.Add(1)
	idx.mu.Unlock()
	defer idx.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(idx.ctx, cancel)
	defer stop()
	return idx.runCompaction(ctx)
}

// AwaitCompaction blocks until the current background compaction, if any,
// finishes, and returns its error.
func (idx *Index) AwaitCompaction(ctx context.Context) error {
	idx.mu.Lock()
	t := idx.task
	idx.mu.Unlock()
	if t == nil {
		return nil
	}
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CompactionErr returns the error of the last background compaction run, or
// nil if it succeeded or is still running.
func (idx *Index) CompactionErr() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.task == nil || !idx.task.finished() {
		return nil
	}
	return idx.task.err
}
