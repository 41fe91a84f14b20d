package lexigo

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hupe1980/lexigo/analysis"
	"github.com/hupe1980/lexigo/codec"
	"github.com/hupe1980/lexigo/internal/compaction"
	"github.com/hupe1980/lexigo/internal/fields"
	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/internal/pool"
	"github.com/hupe1980/lexigo/internal/storage"
)

// FieldOptions control how an indexed value is turned into terms.
type FieldOptions uint8

const (
	// FieldNone analyzes the value with the index analyzer.
	FieldNone FieldOptions = 0
	// FieldNoAnalyzer indexes the whole value as a single term.
	FieldNoAnalyzer FieldOptions = 1 << 0
	// FieldTrackPositions records term positions for phrase queries.
	FieldTrackPositions FieldOptions = 1 << 1
)

// Has reports whether every option in o2 is set.
func (o FieldOptions) Has(o2 FieldOptions) bool { return o&o2 == o2 }

// Field is one value added to the current entry.
type Field struct {
	Name string
	// Indexed is tokenized into terms. Nil skips indexing.
	Indexed io.Reader
	// Stored is kept verbatim and returned by Searcher.Stored. Nil skips
	// storing.
	Stored  *string
	Options FieldOptions
	// Boost scales the scores of this field's terms; 0 means 1. A term keeps
	// the boost of its first occurrence in the entry.
	Boost float32
}

// String returns a pointer to s, for Field.Stored.
func String(s string) *string { return &s }

type termState struct {
	field uint32
	term  []byte // pooled
	freq  uint32
	boost float32
	ords  []uint32
	track bool
}

type entry struct {
	id     uint64
	update bool
	terms  map[string]*termState
	next   map[uint32]uint32 // next ordinal per field
	stored []codec.StoredField
}

// counters accumulates metadata deltas while a batch is applied.
type counters struct {
	docs    int64
	deletes int64
	deleted int // documents tombstoned
}

// termOverhead approximates the bookkeeping bytes of one buffered term.
const termOverhead = 64

// Indexer buffers entries and commits them in batches. It is not safe for
// concurrent use; create one per writing goroutine.
type Indexer struct {
	idx      *Index
	analyzer analysis.Analyzer
	logger   *Logger
	batch    *storage.Batch
	delta    *counters
	sources  map[string]analysis.TokenSource

	cur     *entry
	active  bool
	scratch [][]byte
	arena   []byte
	keyBuf  []byte

	entries       int
	pendingTerms  int
	pendingStored int
	maxDoc        uint64
	reserved      int64
	overLimit     bool

	autoFlush bool
	closed    bool
}

func newIndexer(idx *Index) *Indexer {
	return &Indexer{
		idx:      idx,
		analyzer: idx.opts.analyzer,
		logger:   idx.opts.logger.WithComponent("indexer"),
		batch:    storage.NewBatch(),
		delta:    &counters{},
		sources:  make(map[string]analysis.TokenSource),
		cur: &entry{
			terms: make(map[string]*termState),
			next:  make(map[uint32]uint32),
		},
		autoFlush: true,
	}
}

// SetAutoFlush toggles committing when buffered work crosses the flush
// threshold or the memory limit.
func (ix *Indexer) SetAutoFlush(enabled bool) { ix.autoFlush = enabled }

// AutoFlush reports whether auto-flush is enabled.
func (ix *Indexer) AutoFlush() bool { return ix.autoFlush }

// CurrentDocumentID returns the id of the entry being built, or 0.
func (ix *Indexer) CurrentDocumentID() uint64 {
	if !ix.active {
		return 0
	}
	return ix.cur.id
}

// NewEntry finishes the current entry and starts a new one with a fresh id.
func (ix *Indexer) NewEntry() (uint64, error) {
	if err := ix.beginEntry(); err != nil {
		return 0, err
	}
	id := ix.idx.nextDocumentID()
	ix.start(id, false)
	return id, nil
}

// UpdateEntry finishes the current entry and starts a replacement for id.
// On commit the previous version is removed and any tombstone cleared; an
// absent id is created.
func (ix *Indexer) UpdateEntry(id uint64) error {
	if id == 0 {
		return fmt.Errorf("%w: document id 0", ErrInvalidArgument)
	}
	if err := ix.beginEntry(); err != nil {
		return err
	}
	ix.idx.observeDocumentID(id)
	ix.start(id, true)
	return nil
}

// DeleteEntry finishes the current entry and tombstones id on commit. Deleting
// an absent or already deleted document has no effect.
func (ix *Indexer) DeleteEntry(id uint64) error {
	if ix.closed {
		return ErrClosed
	}
	if id == 0 {
		return fmt.Errorf("%w: document id 0", ErrInvalidArgument)
	}
	if err := ix.finish(); err != nil {
		return err
	}
	ix.batch.Do(deleteDocument(id, ix.delta))
	return nil
}

func (ix *Indexer) beginEntry() error {
	if ix.closed {
		return ErrClosed
	}
	if err := ix.finish(); err != nil {
		return err
	}
	if ix.autoFlush && ix.overThreshold() {
		return ix.commit()
	}
	return nil
}

func (ix *Indexer) overThreshold() bool {
	t := ix.idx.opts.flushThreshold
	return ix.pendingTerms >= t || ix.pendingStored >= t || ix.overLimit
}

func (ix *Indexer) start(id uint64, update bool) {
	ix.cur.id = id
	ix.cur.update = update
	ix.active = true
}

// AddText indexes text with opts and stores it verbatim.
func (ix *Indexer) AddText(name, text string, opts FieldOptions) error {
	return ix.AddField(Field{Name: name, Indexed: strings.NewReader(text), Stored: &text, Options: opts})
}

// Store stores value verbatim without indexing it.
func (ix *Indexer) Store(name, value string) error {
	return ix.AddField(Field{Name: name, Stored: &value})
}

// AddField adds f to the current entry. Input errors leave the entry as it
// was.
func (ix *Indexer) AddField(f Field) error {
	if ix.closed {
		return ErrClosed
	}
	if !ix.active {
		return ErrNoEntry
	}
	if err := fields.ValidateName(f.Name); err != nil {
		return &FieldError{Field: f.Name, cause: err}
	}
	if f.Indexed == nil && f.Stored == nil {
		return fmt.Errorf("%w: field %q has neither an indexed nor a stored value", ErrInvalidArgument, f.Name)
	}

	terms, err := ix.collect(f)
	if err != nil {
		return err
	}

	fid, err := ix.idx.fields.GetFieldNumber(f.Name)
	if err != nil {
		return &FieldError{Field: f.Name, cause: err}
	}

	boost := f.Boost
	if boost == 0 {
		boost = 1
	}
	track := f.Options.Has(FieldTrackPositions)
	for _, t := range terms {
		ix.addTerm(fid, t, boost, track)
	}

	if f.Stored != nil {
		ix.cur.stored = append(ix.cur.stored, codec.StoredField{Field: fid, Value: *f.Stored})
		ix.pendingStored++
		ix.reserve(int64(len(*f.Stored)))
	}
	return nil
}

// collect turns the indexed value of f into terms held in the scratch arena.
func (ix *Indexer) collect(f Field) ([][]byte, error) {
	ix.scratch = ix.scratch[:0]
	ix.arena = ix.arena[:0]
	if f.Indexed == nil {
		return nil, nil
	}

	if f.Options.Has(FieldNoAnalyzer) {
		v, err := io.ReadAll(io.LimitReader(f.Indexed, analysis.MaxTermSize+1))
		if err != nil {
			return nil, fmt.Errorf("read field %q: %w", f.Name, err)
		}
		if len(v) > analysis.MaxTermSize {
			return nil, &TermTooLongError{Field: f.Name, Size: len(v)}
		}
		if len(v) > 0 {
			ix.scratch = append(ix.scratch, v)
		}
		return ix.scratch, nil
	}

	src := ix.analyzer.CreateSource(f.Name, ix.sources[f.Name])
	ix.sources[f.Name] = src
	src.Reset(f.Indexed)
	var spans [][2]int
	for src.Next() {
		term, ok := ix.analyzer.Process(f.Name, src.Token())
		if !ok {
			continue
		}
		if len(term) > analysis.MaxTermSize {
			return nil, &TermTooLongError{Field: f.Name, Size: len(term)}
		}
		spans = append(spans, [2]int{len(ix.arena), len(ix.arena) + len(term)})
		ix.arena = append(ix.arena, term...)
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("read field %q: %w", f.Name, err)
	}
	for _, s := range spans {
		ix.scratch = append(ix.scratch, ix.arena[s[0]:s[1]])
	}
	return ix.scratch, nil
}

func (ix *Indexer) addTerm(fid uint32, term []byte, boost float32, track bool) {
	e := ix.cur
	ix.keyBuf = append(keys.AppendUint32(ix.keyBuf[:0], fid), term...)

	st, ok := e.terms[string(ix.keyBuf)]
	if !ok {
		buf := pool.Default.Get(len(term))
		st = &termState{field: fid, term: append(buf, term...), boost: boost}
		e.terms[string(ix.keyBuf)] = st
		ix.reserve(int64(cap(buf) + len(ix.keyBuf) + termOverhead))
	}
	ord := e.next[fid]
	e.next[fid] = ord + 1

	st.freq++
	st.ords = append(st.ords, ord)
	st.track = st.track || track
	ix.pendingTerms++
}

func (ix *Indexer) reserve(n int64) {
	if !ix.idx.resources.ReserveBuffer(n) {
		ix.overLimit = true
		return
	}
	ix.reserved += n
}

// finish moves the current entry into the batch.
func (ix *Indexer) finish() error {
	if !ix.active {
		return nil
	}
	e := ix.cur
	ix.active = false
	defer ix.clearEntry()

	content := len(e.terms) > 0 || len(e.stored) > 0
	if e.update {
		ix.batch.Do(replaceDocument(ix.idx.fields, e.id, content, ix.delta))
	} else if content {
		ix.delta.docs++
	}
	if !content {
		return nil
	}

	docKey := keys.DocID(e.id)
	for _, st := range e.terms {
		name, _ := ix.idx.fields.GetFieldName(st.field)
		ix.batch.MultiAdd(keys.PostingTree(name), st.term, docKey, keys.Posting(st.freq, st.boost))
		for _, ord := range st.ords {
			ix.batch.Put(keys.ForwardTree, keys.Forward(e.id, st.field, ord), st.term)
		}
		if st.track {
			ix.batch.Put(keys.PositionsTree, keys.Position(e.id, st.field, st.term), keys.Positions(st.ords))
		}
	}
	if len(e.stored) > 0 {
		blob, err := encodeStored(ix.idx.codec, ix.idx.opts.compression, e.stored)
		if err != nil {
			return err
		}
		ix.batch.Put(keys.StoredTree, docKey, blob)
	}
	ix.entries++
	ix.maxDoc = max(ix.maxDoc, e.id)
	return nil
}

func (ix *Indexer) clearEntry() {
	e := ix.cur
	for _, st := range e.terms {
		pool.Default.Put(st.term)
	}
	clear(e.terms)
	clear(e.next)
	e.stored = e.stored[:0]
	e.id, e.update = 0, false
}

// Flush finishes the current entry and commits every buffered operation in
// one transaction. When the commit fails the buffered operations are kept and
// the next Flush retries them.
func (ix *Indexer) Flush() error {
	if ix.closed {
		return ErrClosed
	}
	if err := ix.finish(); err != nil {
		return err
	}
	return ix.commit()
}

func (ix *Indexer) commit() error {
	if ix.batch.Len() == 0 {
		ix.reset()
		return nil
	}
	if ix.idx.closed.Load() {
		ix.reset()
		return ErrClosed
	}

	queued := ix.batch.Len()
	buffered := *ix.delta
	delta, maxDoc := ix.delta, ix.maxDoc
	ix.batch.Do(func(tx *storage.Tx) error {
		if err := compaction.AdjustCounter(tx, keys.MetaDocCount, delta.docs); err != nil {
			return err
		}
		if err := compaction.AdjustCounter(tx, keys.MetaDeletes, delta.deletes); err != nil {
			return err
		}
		meta := tx.Tree(keys.MetadataTree)
		var last uint64
		if v := meta.Get(keys.MetaLastDoc); v != nil {
			var err error
			if last, err = keys.ParseUint64(v); err != nil {
				return err
			}
		}
		if maxDoc > last {
			return meta.Put(keys.MetaLastDoc, keys.Uint64(maxDoc))
		}
		return nil
	})

	ops, docs := ix.batch.Len(), ix.entries
	start := time.Now()
	err := ix.idx.db.Write(ix.batch)
	elapsed := time.Since(start)

	if err != nil {
		// The transaction rolled back: drop the counter update and undo
		// what the batch closures counted.
		ix.batch.Truncate(queued)
		*ix.delta = buffered
		err = &FlushError{Operations: ops, cause: translateError(err)}
		ix.idx.metrics.RecordFlush(docs, ops, elapsed, err)
		ix.logger.LogFlush(context.Background(), docs, ops, elapsed, err)
		return err
	}

	deleted := delta.deleted
	ix.reset()
	for range deleted {
		ix.idx.metrics.RecordDelete()
	}
	ix.idx.metrics.RecordFlush(docs, ops, elapsed, nil)
	ix.logger.LogFlush(context.Background(), docs, ops, elapsed, nil)
	ix.idx.maybeCompact()
	return nil
}

func (ix *Indexer) reset() {
	ix.batch.Reset()
	ix.delta = &counters{}
	ix.entries, ix.pendingTerms, ix.pendingStored = 0, 0, 0
	ix.maxDoc = 0
	ix.idx.resources.ReleaseBuffer(ix.reserved)
	ix.reserved = 0
	ix.overLimit = false
}

// Close flushes when auto-flush is enabled and otherwise discards buffered
// work. Work that fails to flush is discarded too. The indexer is unusable
// afterwards.
func (ix *Indexer) Close() error {
	if ix.closed {
		return nil
	}
	var err error
	if ix.autoFlush {
		if err = ix.Flush(); err != nil {
			ix.reset()
		}
	} else {
		ix.clearEntry()
		ix.active = false
		ix.reset()
	}
	ix.closed = true
	return err
}

// hasData reports whether doc has a forward entry or a stored blob.
func hasData(tx *storage.Tx, doc uint64) bool {
	if tx.Tree(keys.StoredTree).Get(keys.DocID(doc)) != nil {
		return true
	}
	return tx.Tree(keys.ForwardTree).Iterate(storage.IterOptions{Prefix: keys.ForwardDocPrefix(doc)}).SeekToFirst()
}

var tombstone = []byte{1}

func deleteDocument(doc uint64, delta *counters) func(*storage.Tx) error {
	return func(tx *storage.Tx) error {
		docKey := keys.DocID(doc)
		if tx.Tree(keys.DeletesTree).Get(docKey) != nil || !hasData(tx, doc) {
			return nil
		}
		t, err := tx.CreateTree(keys.DeletesTree)
		if err != nil {
			return err
		}
		if err := t.Put(docKey, tombstone); err != nil {
			return err
		}
		delta.docs--
		delta.deletes++
		delta.deleted++
		return nil
	}
}

// replaceDocument drops the previous version of doc, and its tombstone,
// before the replacement's mutations run.
func replaceDocument(names compaction.FieldNames, doc uint64, content bool, delta *counters) func(*storage.Tx) error {
	return func(tx *storage.Tx) error {
		docKey := keys.DocID(doc)
		deletes := tx.Tree(keys.DeletesTree)
		dead := deletes.Get(docKey) != nil
		live := !dead && hasData(tx, doc)

		if _, err := compaction.Purge(tx, names, doc); err != nil {
			return fmt.Errorf("replace %d: %w", doc, err)
		}
		if dead {
			if err := deletes.Delete(docKey); err != nil {
				return err
			}
			delta.deletes--
		}
		switch {
		case content && !live:
			delta.docs++
		case !content && live:
			delta.docs--
		}
		return nil
	}
}
