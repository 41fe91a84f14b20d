// Package analysis turns raw field text into index terms: a tokenizer splits
// the text, and an analyzer runs each token through an ordered chain of
// filters that either transform it or reject it.
package analysis

import "strings"

// MaxTermSize is the largest term, in bytes, the index accepts.
const MaxTermSize = 256

// Filter transforms a term or rejects it. The returned slice may alias term.
// A filter keeps no state between calls.
type Filter func(term []byte) ([]byte, bool)

// Analyzer produces token sources for fields and normalizes their tokens.
type Analyzer interface {
	// CreateSource returns a token source for field. existing, when non-nil,
	// is a source previously returned by this analyzer that may be reused;
	// the caller resets it before use.
	CreateSource(field string, existing TokenSource) TokenSource
	// Process runs one token through the filter chain for field. It returns
	// the normalized term and false if any filter rejected the token.
	Process(field string, term []byte) ([]byte, bool)
}

// Chain is an Analyzer applying the same filters to every field.
type Chain struct {
	filters    []Filter
	bufferSize int
}

var _ Analyzer = (*Chain)(nil)

// NewAnalyzer returns a Chain running filters in order.
func NewAnalyzer(filters ...Filter) *Chain {
	return &Chain{filters: filters, bufferSize: DefaultBufferSize}
}

// DefaultAnalyzer lower-cases, strips possessive suffixes and drops English
// stop words.
func DefaultAnalyzer() *Chain {
	return NewAnalyzer(LowerCase, RemovePossessiveSuffix, StopWords(DefaultStopWords...))
}

// WithBufferSize sets the token buffer capacity of sources created by c.
func (c *Chain) WithBufferSize(n int) *Chain {
	cc := *c
	cc.bufferSize = n
	return &cc
}

// CreateSource implements Analyzer.
func (c *Chain) CreateSource(_ string, existing TokenSource) TokenSource {
	if existing != nil {
		return existing
	}
	return NewStringTokenizer(nil, c.bufferSize)
}

// Process implements Analyzer.
func (c *Chain) Process(_ string, term []byte) ([]byte, bool) {
	return Apply(term, c.filters...)
}

// Apply runs term through filters, stopping at the first rejection. Empty
// results are rejected.
func Apply(term []byte, filters ...Filter) ([]byte, bool) {
	if len(term) == 0 {
		return nil, false
	}
	for _, f := range filters {
		var ok bool
		if term, ok = f(term); !ok || len(term) == 0 {
			return nil, false
		}
	}
	return term, true
}

// PerField routes fields to dedicated analyzers and falls back to a default.
type PerField struct {
	Default Analyzer
	Fields  map[string]Analyzer
}

var _ Analyzer = (*PerField)(nil)

func (p *PerField) analyzer(field string) Analyzer {
	if a, ok := p.Fields[field]; ok {
		return a
	}
	return p.Default
}

// CreateSource implements Analyzer.
func (p *PerField) CreateSource(field string, existing TokenSource) TokenSource {
	return p.analyzer(field).CreateSource(field, existing)
}

// Process implements Analyzer.
func (p *PerField) Process(field string, term []byte) ([]byte, bool) {
	return p.analyzer(field).Process(field, term)
}

// Terms tokenizes and analyzes text for field, returning accepted terms.
// It is meant for query construction and tests, not the write path.
func Terms(a Analyzer, field, text string) []string {
	src := a.CreateSource(field, nil)
	src.Reset(strings.NewReader(text))
	var out []string
	for src.Next() {
		tok := append([]byte(nil), src.Token()...)
		if term, ok := a.Process(field, tok); ok {
			out = append(out, string(term))
		}
	}
	return out
}
