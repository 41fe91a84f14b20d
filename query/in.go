package query

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// InQuery matches documents containing any of a set of terms in one field.
// Each document is emitted once, scored by the sum of its matching terms.
type InQuery struct {
	Field  string
	Values []string
	// Boost multiplies every score. Zero means 1.
	Boost float32

	terms []*TermQuery
	ready bool
}

var _ Query = (*InQuery)(nil)

// In returns a query for any of values in field.
func In(field string, values ...string) *InQuery {
	return &InQuery{Field: field, Values: values}
}

// WithBoost sets the query boost.
func (q *InQuery) WithBoost(boost float32) *InQuery {
	q.Boost = boost
	return q
}

// Initialize implements Query. Values are deduplicated and processed in
// sorted order.
func (q *InQuery) Initialize(ctx *Context, scorer Scorer) error {
	q.ready = false
	if err := validField(q.Field); err != nil {
		return err
	}
	scorer = orDefaultScorer(ctx, scorer)
	values := slices.Compact(slices.Sorted(slices.Values(q.Values)))

	q.terms = q.terms[:0]
	for _, v := range values {
		t := &TermQuery{Field: q.Field, Value: v, Boost: q.Boost}
		if err := t.Initialize(ctx, scorer); err != nil {
			return err
		}
		if t.DocumentFrequency() > 0 {
			q.terms = append(q.terms, t)
		}
	}
	q.ready = true
	return nil
}

// Execute implements Query.
func (q *InQuery) Execute() iter.Seq2[Match, error] {
	if !q.ready {
		return failed(ErrNotInitialized)
	}
	if len(q.terms) == 0 {
		return empty
	}
	seqs := make([]iter.Seq2[Match, error], len(q.terms))
	for i, t := range q.terms {
		seqs[i] = t.Execute()
	}
	return union(seqs...)
}

func (q *InQuery) String() string {
	quoted := make([]string, len(q.Values))
	for i, v := range q.Values {
		quoted[i] = strconv.Quote(v)
	}
	return q.Field + ":in(" + strings.Join(quoted, ", ") + ")"
}

func (*InQuery) isQuery() {}
