package query

import (
	"bytes"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/hupe1980/lexigo/internal/keys"
	"github.com/hupe1980/lexigo/internal/storage"
)

// DefaultSlop requires phrase terms to be adjacent.
const DefaultSlop = 1

// PhraseQuery matches documents containing its terms in order, each term at
// most Slop positions after the previous one.
type PhraseQuery struct {
	Field string
	Terms []string
	// Slop is the largest allowed position gap between consecutive terms.
	// Zero means DefaultSlop.
	Slop int
	// Boost multiplies every score. Zero means 1.
	Boost float32

	ctx     *Context
	fieldID uint32
	terms   []*TermQuery
	ready   bool
}

var _ Query = (*PhraseQuery)(nil)

// Phrase returns a query for terms appearing in order in field.
func Phrase(field string, terms ...string) *PhraseQuery {
	return &PhraseQuery{Field: field, Terms: terms}
}

// WithSlop sets the allowed gap between consecutive terms.
func (q *PhraseQuery) WithSlop(slop int) *PhraseQuery {
	q.Slop = slop
	return q
}

// WithBoost sets the query boost.
func (q *PhraseQuery) WithBoost(boost float32) *PhraseQuery {
	q.Boost = boost
	return q
}

func (q *PhraseQuery) slop() uint32 {
	if q.Slop <= 0 {
		return DefaultSlop
	}
	return uint32(q.Slop)
}

// Initialize implements Query.
func (q *PhraseQuery) Initialize(ctx *Context, scorer Scorer) error {
	q.ready = false
	if err := validField(q.Field); err != nil {
		return err
	}
	if len(q.Terms) == 0 {
		return fmt.Errorf("%w: phrase without terms", ErrInvalidQuery)
	}
	scorer = orDefaultScorer(ctx, scorer)
	q.ctx = ctx
	q.fieldID, _ = ctx.Fields.Lookup(q.Field)
	q.terms = q.terms[:0]
	for _, v := range q.Terms {
		t := &TermQuery{Field: q.Field, Value: v, Boost: q.Boost}
		if err := t.Initialize(ctx, scorer); err != nil {
			return err
		}
		q.terms = append(q.terms, t)
	}
	q.ready = true
	return nil
}

// Execute implements Query.
func (q *PhraseQuery) Execute() iter.Seq2[Match, error] {
	if !q.ready {
		return failed(ErrNotInitialized)
	}
	seqs := make([]iter.Seq2[Match, error], len(q.terms))
	for i, t := range q.terms {
		if t.DocumentFrequency() == 0 {
			return empty
		}
		seqs[i] = t.Execute()
	}
	if len(seqs) == 1 {
		return seqs[0]
	}
	return intersect(func(doc uint64, _ []Match) (bool, error) {
		pos, err := q.positions(doc)
		if err != nil {
			return false, err
		}
		return inOrder(pos, q.slop()), nil
	}, seqs...)
}

// positions returns, per phrase term, the ascending ordinals of that term in
// the document. They are read from the positions tree when the field tracks
// positions and rebuilt from forward entries otherwise.
func (q *PhraseQuery) positions(doc uint64) ([][]uint32, error) {
	out := make([][]uint32, len(q.Terms))

	if pt := q.ctx.Tx.Tree(keys.PositionsTree); pt != nil {
		found := true
		for i, term := range q.Terms {
			v := pt.Get(keys.Position(doc, q.fieldID, []byte(term)))
			if v == nil {
				found = false
				break
			}
			var err error
			if out[i], err = keys.ParsePositions(out[i][:0], v); err != nil {
				return nil, fmt.Errorf("positions of %d: %w", doc, err)
			}
		}
		if found {
			return out, nil
		}
		clear(out)
	}

	terms := make([][]byte, len(q.Terms))
	for i, t := range q.Terms {
		terms[i] = []byte(t)
	}
	it := q.ctx.Tx.Tree(keys.ForwardTree).Iterate(storage.IterOptions{Prefix: keys.ForwardFieldPrefix(doc, q.fieldID)})
	for k, v := range it.All() {
		_, _, ord, err := keys.ParseForward(k)
		if err != nil {
			return nil, fmt.Errorf("forward entry of %d: %w", doc, err)
		}
		for i, t := range terms {
			if bytes.Equal(v, t) {
				out[i] = append(out[i], ord)
			}
		}
	}
	return out, nil
}

// inOrder reports whether one ordinal can be picked per list so that each is
// greater than the previous by at most slop.
func inOrder(pos [][]uint32, slop uint32) bool {
	reach := pos[0]
	next := make([]uint32, 0, 8)
	for _, cand := range pos[1:] {
		next = next[:0]
		j := 0
		for _, p := range cand {
			// advance to the last reachable position below p
			for j+1 < len(reach) && reach[j+1] < p {
				j++
			}
			if len(reach) > 0 && reach[j] < p && p-reach[j] <= slop {
				next = append(next, p)
			}
		}
		if len(next) == 0 {
			return false
		}
		reach = append(reach[:0:0], next...)
	}
	return len(reach) > 0
}

func (q *PhraseQuery) String() string {
	s := q.Field + ":" + strconv.Quote(strings.Join(q.Terms, " "))
	if q.Slop > 0 {
		s += "~" + strconv.Itoa(q.Slop)
	}
	return s
}

func (*PhraseQuery) isQuery() {}
