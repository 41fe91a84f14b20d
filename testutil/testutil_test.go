package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabulary(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.Vocabulary(50)

	require.Len(t, v, 50)
	seen := make(map[string]bool)
	for _, w := range v {
		assert.False(t, seen[w], "duplicate word %q", w)
		seen[w] = true
		assert.GreaterOrEqual(t, len(w), 3)
		assert.LessOrEqual(t, len(w), 8)
		assert.Equal(t, strings.ToLower(w), w)
	}
}

func TestDocuments(t *testing.T) {
	rng := NewRNG(4711)
	vocab := rng.Vocabulary(20)

	docs := rng.Documents(100, 5, vocab, 1.1)

	require.Len(t, docs, 100)
	for _, d := range docs {
		n := len(strings.Fields(d))
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 5)
	}
}

func TestDeterministic(t *testing.T) {
	a, b := NewRNG(4711), NewRNG(4711)
	va, vb := a.Vocabulary(10), b.Vocabulary(10)
	assert.Equal(t, va, vb)
	assert.Equal(t, a.Documents(20, 4, va, 1.1), b.Documents(20, 4, vb, 1.1))
}

func TestZipf(t *testing.T) {
	rng := NewRNG(1)

	counts := make([]int, 10)
	for range 2000 {
		k := rng.Zipf(10, 1.5)
		require.GreaterOrEqual(t, k, 0)
		require.Less(t, k, 10)
		counts[k]++
	}
	assert.Greater(t, counts[0], counts[9])
	assert.Equal(t, 0, rng.Zipf(1, 1.5))
}

func TestContaining(t *testing.T) {
	docs := []string{"a b c", "b c", "c d", "ab"}

	assert.Equal(t, []uint64{1, 2}, ContainingAll(docs, "b", "c"))
	assert.Equal(t, []uint64{1, 3}, ContainingAny(docs, "a", "d"))
	assert.Nil(t, ContainingAll(docs, "x"))
}

func TestComputeRecall(t *testing.T) {
	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
	assert.Equal(t, 0.0, ComputeRecall(nil, []uint64{1}))
	assert.Equal(t, 0.5, ComputeRecall([]uint64{1, 2}, []uint64{2, 3}))
}
