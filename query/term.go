package query

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/internal/storage"
)

// posting is one live entry of a posting list.
type posting struct {
	doc   uint64
	freq  uint32
	boost float32
}

// postingList is an initialized (field, term) lookup shared by the queries.
type postingList struct {
	ctx    *Context
	tree   *storage.MultiTree
	term   []byte
	df     int
	weight float32
}

func openPostings(ctx *Context, field, term string) postingList {
	pl := postingList{ctx: ctx, term: []byte(term)}
	if _, ok := ctx.Fields.Lookup(field); !ok {
		return pl
	}
	pl.tree = ctx.Tx.MultiTree(keys.PostingTree(field))
	pl.df = pl.tree.Count(pl.term)
	if pl.df > 0 {
		pl.weight = ctx.Conventions.Weight(ctx.TotalDocs, uint64(pl.df))
	}
	return pl
}

// all streams live postings in document order.
func (pl postingList) all() iter.Seq2[posting, error] {
	return func(yield func(posting, error) bool) {
		if pl.df == 0 {
			return
		}
		for k, v := range pl.tree.Values(pl.term, storage.IterOptions{}).All() {
			doc, err := keys.ParseDocID(k)
			if err != nil {
				yield(posting{}, fmt.Errorf("posting key for %q: %w", pl.term, err))
				return
			}
			if pl.ctx.deleted(doc) {
				continue
			}
			freq, boost, err := keys.ParsePosting(v)
			if err != nil {
				yield(posting{}, fmt.Errorf("posting %d for %q: %w", doc, pl.term, err))
				return
			}
			if !yield(posting{doc: doc, freq: freq, boost: boost}, nil) {
				return
			}
		}
	}
}

// TermQuery matches documents containing a literal term in a field.
type TermQuery struct {
	Field string
	Value string
	// Boost multiplies every score. Zero means 1.
	Boost float32

	scorer Scorer
	pl     postingList
	ready  bool
}

var _ Query = (*TermQuery)(nil)

// Term returns a query for value in field.
func Term(field, value string) *TermQuery {
	return &TermQuery{Field: field, Value: value}
}

// WithBoost sets the query boost.
func (q *TermQuery) WithBoost(boost float32) *TermQuery {
	q.Boost = boost
	return q
}

// DocumentFrequency returns the number of postings of the term, tombstoned
// documents included. Valid after Initialize.
func (q *TermQuery) DocumentFrequency() int { return q.pl.df }

// Initialize implements Query.
func (q *TermQuery) Initialize(ctx *Context, scorer Scorer) error {
	q.ready = false
	if err := validField(q.Field); err != nil {
		return err
	}
	q.scorer = orDefaultScorer(ctx, scorer)
	q.pl = openPostings(ctx, q.Field, q.Value)
	q.ready = true
	return nil
}

// Execute implements Query.
func (q *TermQuery) Execute() iter.Seq2[Match, error] {
	if !q.ready {
		return failed(ErrNotInitialized)
	}
	boost := boostOf(q.Boost)
	return func(yield func(Match, error) bool) {
		for p, err := range q.pl.all() {
			if err != nil {
				yield(Match{}, err)
				return
			}
			score := q.scorer.Score(q.pl.weight, p.freq, p.boost*boost)
			if !yield(Match{DocumentID: p.doc, Score: score}, nil) {
				return
			}
		}
	}
}

func (q *TermQuery) String() string {
	s := q.Field + ":" + strconv.Quote(q.Value)
	if q.Boost != 0 && q.Boost != 1 {
		s += "^" + strconv.FormatFloat(float64(q.Boost), 'g', -1, 32)
	}
	return s
}

func (*TermQuery) isQuery() {}

func boostOf(b float32) float32 {
	if b == 0 {
		return 1
	}
	return b
}

func orDefaultScorer(ctx *Context, s Scorer) Scorer {
	if s != nil {
		return s
	}
	return NewDefaultScorer(ctx.Conventions)
}
