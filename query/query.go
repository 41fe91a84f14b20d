// Package query implements the query algebra evaluated by a searcher: term,
// phrase, set-membership and boolean queries over the posting trees of an
// index.
//
// Every query yields matches in ascending document id order, which lets
// compound queries merge their children as streams.
package query

import (
	"errors"
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/lexigo/internal/storage"
)

// ErrInvalidQuery is returned by Initialize for malformed queries.
var ErrInvalidQuery = errors.New("invalid query")

// ErrNotInitialized is yielded by Execute when Initialize has not succeeded.
var ErrNotInitialized = errors.New("query not initialized")

// Match is a scored document.
type Match struct {
	DocumentID uint64
	Score      float32
}

// FieldLookup resolves field names without assigning new ids.
type FieldLookup interface {
	Lookup(name string) (uint32, bool)
}

// Context is the read state a query is initialized against.
type Context struct {
	Tx          *storage.Tx
	Fields      FieldLookup
	Conventions Conventions
	// Deleted holds tombstoned document ids. Nil means none.
	Deleted *roaring64.Bitmap
	// TotalDocs is the live document count used for idf.
	TotalDocs uint64
}

func (c *Context) deleted(id uint64) bool {
	return c.Deleted != nil && c.Deleted.Contains(id)
}

// Query is one of *TermQuery, *PhraseQuery, *InQuery or *BooleanQuery.
//
// A query is restartable only by calling Initialize again.
type Query interface {
	// Initialize prepares the query for execution. scorer may be nil.
	Initialize(ctx *Context, scorer Scorer) error
	// Execute streams matches in ascending document id order.
	Execute() iter.Seq2[Match, error]
	// String renders the query for logs.
	String() string

	isQuery()
}

func validField(field string) error {
	if field == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidQuery)
	}
	return nil
}

func empty(yield func(Match, error) bool) {}

func failed(err error) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) { yield(Match{}, err) }
}
