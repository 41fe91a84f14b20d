package lexigo

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/internal/queue"
	"github.com/hupe1980/lexigo/internal/storage"
	"github.com/hupe1980/lexigo/query"
)

// Results is the outcome of QueryTop.
type Results struct {
	// Matches holds at most take matches, best first.
	Matches []query.Match
	// TotalMatches counts every match, retained or not.
	TotalMatches int
}

// Searcher evaluates queries against one consistent snapshot of the index.
// It is not safe for concurrent use. Close it to release the snapshot; the
// index cannot close while searchers are open.
type Searcher struct {
	idx    *Index
	tx     *storage.Tx
	qctx   *query.Context
	scorer *query.DefaultScorer
	logger *Logger
	closed bool
}

func newSearcher(idx *Index) (*Searcher, error) {
	tx, err := idx.db.Begin(false)
	if err != nil {
		return nil, err
	}
	s := &Searcher{
		idx:    idx,
		tx:     tx,
		scorer: query.NewDefaultScorer(idx.opts.conventions),
		logger: idx.opts.logger.WithComponent("searcher"),
	}

	deleted := roaring64.New()
	for k := range tx.Tree(keys.DeletesTree).Iterate(storage.IterOptions{}).All() {
		id, err := keys.ParseDocID(k)
		if err != nil {
			_ = tx.Rollback()
			return nil, translateError(err)
		}
		deleted.Add(id)
	}
	total, err := readCounter(tx, keys.MetaDocCount)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	s.qctx = &query.Context{
		Tx:          tx,
		Fields:      idx.fields,
		Conventions: idx.opts.conventions,
		TotalDocs:   total,
	}
	if !deleted.IsEmpty() {
		s.qctx.Deleted = deleted
	}
	return s, nil
}

// TotalDocuments returns the live document count of the snapshot.
func (s *Searcher) TotalDocuments() uint64 { return s.qctx.TotalDocs }

// Query streams the matches of q in ascending document id order. A nil scorer
// selects the default scorer.
func (s *Searcher) Query(q query.Query, scorer query.Scorer) iter.Seq2[query.Match, error] {
	return func(yield func(query.Match, error) bool) {
		if err := s.initialize(q, scorer); err != nil {
			yield(query.Match{}, err)
			return
		}
		for m, err := range q.Execute() {
			if err != nil {
				yield(query.Match{}, translateError(err))
				return
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (s *Searcher) initialize(q query.Query, scorer query.Scorer) error {
	if s.closed {
		return ErrClosed
	}
	if q == nil {
		return fmt.Errorf("%w: nil query", ErrInvalidArgument)
	}
	if scorer == nil {
		scorer = s.scorer
	}
	return translateError(q.Initialize(s.qctx, scorer))
}

// QueryTop returns the best take matches of q. Without a sorter matches rank
// by score, ties going to the lower document id. take == 0 only counts.
func (s *Searcher) QueryTop(q query.Query, take int, scorer query.Scorer, sorter *Sorter) (Results, error) {
	start := time.Now()
	res, err := s.queryTop(q, take, scorer, sorter)
	s.idx.metrics.RecordQuery(take, res.TotalMatches, time.Since(start), err)
	name := "<nil>"
	if q != nil {
		name = q.String()
	}
	s.logger.LogQuery(context.Background(), name, take, res.TotalMatches, err)
	return res, err
}

func (s *Searcher) queryTop(q query.Query, take int, scorer query.Scorer, sorter *Sorter) (Results, error) {
	if take < 0 {
		return Results{}, fmt.Errorf("%w: negative take %d", ErrInvalidArgument, take)
	}

	var sortFields []uint32
	var sortKnown []bool
	for _, f := range sortFieldsOf(sorter) {
		id, ok := s.idx.fields.Lookup(f.Field)
		sortFields = append(sortFields, id)
		sortKnown = append(sortKnown, ok)
	}

	top := queue.NewBounded(take, func(a, b *candidate) bool {
		return sorter.rank(a, b) < 0
	})
	var res Results
	for m, err := range s.Query(q, scorer) {
		if err != nil {
			return Results{}, err
		}
		res.TotalMatches++
		if take == 0 {
			continue
		}
		c := &candidate{match: m}
		if n := sorter.len(); n > 0 {
			c.keys = make([]sortValue, n)
			for i := range n {
				if !sortKnown[i] {
					continue
				}
				v, ok := s.firstTerm(m.DocumentID, sortFields[i])
				c.keys[i] = sortValue{value: v, present: ok}
			}
		}
		top.Push(c)
	}

	best := top.Drain()
	res.Matches = make([]query.Match, len(best))
	for i, c := range best {
		res.Matches[i] = c.match
	}
	return res, nil
}

func sortFieldsOf(s *Sorter) []SortField {
	if s == nil {
		return nil
	}
	return s.Fields
}

// firstTerm returns the lowest-ordinal indexed term of field in doc.
func (s *Searcher) firstTerm(doc uint64, field uint32) (string, bool) {
	it := s.tx.Tree(keys.ForwardTree).Iterate(storage.IterOptions{Prefix: keys.ForwardFieldPrefix(doc, field)})
	if !it.SeekToFirst() {
		return "", false
	}
	return string(it.Value()), true
}

// Term returns the first indexed term of field in document id, the value
// sorting uses.
func (s *Searcher) Term(id uint64, field string) (string, bool, error) {
	if s.closed {
		return "", false, ErrClosed
	}
	if s.qctx.Deleted != nil && s.qctx.Deleted.Contains(id) {
		return "", false, nil
	}
	fid, ok := s.idx.fields.Lookup(field)
	if !ok {
		return "", false, nil
	}
	v, ok := s.firstTerm(id, fid)
	return v, ok, nil
}

// Stored returns the stored values of document id in insertion order.
func (s *Searcher) Stored(id uint64) ([]StoredValue, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.qctx.Deleted != nil && s.qctx.Deleted.Contains(id) {
		return nil, ErrNotFound
	}
	blob := s.tx.Tree(keys.StoredTree).Get(keys.DocID(id))
	if blob == nil {
		return nil, ErrNotFound
	}
	stored, err := decodeStored(s.idx.codec, blob)
	if err != nil {
		return nil, fmt.Errorf("document %d: %w", id, err)
	}
	out := make([]StoredValue, len(stored))
	for i, f := range stored {
		name, ok := s.idx.fields.GetFieldName(f.Field)
		if !ok {
			return nil, fmt.Errorf("%w: document %d references unknown field %d", ErrCorrupt, id, f.Field)
		}
		out[i] = StoredValue{Field: name, Value: f.Value}
	}
	return out, nil
}

// Close releases the snapshot.
func (s *Searcher) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tx.Rollback()
}
