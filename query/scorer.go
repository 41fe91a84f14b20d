package query

import (
	"math"
	"sync"
)

// Conventions holds the pluggable term-frequency and inverse-document-frequency
// formulas.
type Conventions struct {
	// Tf weighs the frequency of a term within one document.
	Tf func(freq uint32) float32
	// Idf weighs how rare a term is across totalDocs documents.
	Idf func(totalDocs, docsWithTerm uint64) float32
}

// DefaultConventions returns tf = sqrt(freq) and
// idf = 1 + ln(totalDocs / (docsWithTerm + 1)).
func DefaultConventions() Conventions {
	return Conventions{Tf: DefaultTf, Idf: DefaultIdf}
}

// DefaultTf is sqrt(freq).
func DefaultTf(freq uint32) float32 {
	return float32(math.Sqrt(float64(freq)))
}

// DefaultIdf is 1 + ln(totalDocs / (docsWithTerm + 1)).
func DefaultIdf(totalDocs, docsWithTerm uint64) float32 {
	return float32(1 + math.Log(float64(totalDocs)/float64(docsWithTerm+1)))
}

func (c Conventions) orDefault() Conventions {
	if c.Tf == nil {
		c.Tf = DefaultTf
	}
	if c.Idf == nil {
		c.Idf = DefaultIdf
	}
	return c
}

// Weight is the query weight of a term: idf squared.
func (c Conventions) Weight(totalDocs, docsWithTerm uint64) float32 {
	idf := c.orDefault().Idf(max(totalDocs, 1), docsWithTerm)
	return idf * idf
}

// Scorer turns term statistics into a relevance score. Score must be a pure
// function of its arguments.
type Scorer interface {
	Score(weight float32, freq uint32, boost float32) float32
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(weight float32, freq uint32, boost float32) float32

// Score implements Scorer.
func (f ScorerFunc) Score(weight float32, freq uint32, boost float32) float32 {
	return f(weight, freq, boost)
}

type scoreKey struct {
	weight float32
	freq   uint32
	boost  float32
}

// DefaultScorer computes weight * tf(freq) * boost, memoizing results.
// It is safe for concurrent use.
type DefaultScorer struct {
	tf   func(uint32) float32
	mu   sync.RWMutex
	memo map[scoreKey]float32
}

// maxMemo caps the memo so adversarial inputs cannot grow it without bound.
const maxMemo = 4096

// NewDefaultScorer returns a scorer using conv.Tf.
func NewDefaultScorer(conv Conventions) *DefaultScorer {
	return &DefaultScorer{
		tf:   conv.orDefault().Tf,
		memo: make(map[scoreKey]float32),
	}
}

// Score implements Scorer.
func (s *DefaultScorer) Score(weight float32, freq uint32, boost float32) float32 {
	k := scoreKey{weight, freq, boost}
	s.mu.RLock()
	v, ok := s.memo[k]
	s.mu.RUnlock()
	if ok {
		return v
	}
	v = weight * s.tf(freq) * boost
	s.mu.Lock()
	if len(s.memo) >= maxMemo {
		clear(s.memo)
	}
	s.memo[k] = v
	s.mu.Unlock()
	return v
}
