package query

import (
	"fmt"
	"iter"
)

// Operator combines the two sides of a BooleanQuery.
type Operator uint8

const (
	// And keeps documents matched by both sides.
	And Operator = iota
	// Or keeps documents matched by either side.
	Or
)

func (o Operator) String() string {
	switch o {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return fmt.Sprintf("Operator(%d)", uint8(o))
	}
}

// BooleanQuery intersects or unites two queries by document id. A document
// matched by both sides counts once, scored by the sum of both sides.
type BooleanQuery struct {
	Op    Operator
	Left  Query
	Right Query

	ready bool
}

var _ Query = (*BooleanQuery)(nil)

// Boolean returns a query combining left and right with op.
func Boolean(op Operator, left, right Query) *BooleanQuery {
	return &BooleanQuery{Op: op, Left: left, Right: right}
}

// AndQuery returns left AND right.
func AndQuery(left, right Query) *BooleanQuery { return Boolean(And, left, right) }

// OrQuery returns left OR right.
func OrQuery(left, right Query) *BooleanQuery { return Boolean(Or, left, right) }

// Initialize implements Query.
func (q *BooleanQuery) Initialize(ctx *Context, scorer Scorer) error {
	q.ready = false
	if q.Left == nil || q.Right == nil {
		return fmt.Errorf("%w: boolean query needs two operands", ErrInvalidQuery)
	}
	if q.Op != And && q.Op != Or {
		return fmt.Errorf("%w: unknown operator %d", ErrInvalidQuery, q.Op)
	}
	scorer = orDefaultScorer(ctx, scorer)
	if err := q.Left.Initialize(ctx, scorer); err != nil {
		return err
	}
	if err := q.Right.Initialize(ctx, scorer); err != nil {
		return err
	}
	q.ready = true
	return nil
}

// Execute implements Query.
func (q *BooleanQuery) Execute() iter.Seq2[Match, error] {
	if !q.ready {
		return failed(ErrNotInitialized)
	}
	if q.Op == And {
		return intersect(nil, q.Left.Execute(), q.Right.Execute())
	}
	return union(q.Left.Execute(), q.Right.Execute())
}

func (q *BooleanQuery) String() string {
	return "(" + operand(q.Left) + " " + q.Op.String() + " " + operand(q.Right) + ")"
}

func operand(q Query) string {
	if q == nil {
		return "<nil>"
	}
	return q.String()
}

func (*BooleanQuery) isQuery() {}
