package testutil

import (
	"math"
	"math/rand"
	"slices"
	"strings"
	"sync"
)

// RNG is a seeded source for reproducible corpora. It is safe for
// concurrent use.
type RNG struct {
	mu    sync.Mutex
	rand  *rand.Rand
	zipfs map[zipfKey][]float64
}

// NewRNG returns an RNG seeded with seed. Equal seeds produce equal corpora.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand:  rand.New(rand.NewSource(seed)),
		zipfs: make(map[zipfKey][]float64),
	}
}

type zipfKey struct {
	n int
	s float64
}

// Zipf returns a rank in [0, n) where P(k) is proportional to 1/(k+1)^s.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}
	cdf := r.cdfLocked(n, s)
	u := r.rand.Float64() * cdf[n-1]
	k, _ := slices.BinarySearch(cdf, u)
	return min(k, n-1)
}

// cdfLocked returns the cumulative, unnormalized Zipf weights of n ranks.
func (r *RNG) cdfLocked(n int, s float64) []float64 {
	key := zipfKey{n, s}
	if cdf, ok := r.zipfs[key]; ok {
		return cdf
	}
	cdf := make([]float64, n)
	var sum float64
	for k := range n {
		sum += 1 / math.Pow(float64(k+1), s)
		cdf[k] = sum
	}
	r.zipfs[key] = cdf
	return cdf
}

// Vocabulary returns n distinct lower-case words of 3 to 8 letters. Word i
// is the i-th most frequent under Zipf sampling.
func (r *RNG) Vocabulary(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, n)
	words := make([]string, 0, n)
	var b strings.Builder
	for len(words) < n {
		b.Reset()
		size := 3 + r.rand.Intn(6)
		for range size {
			b.WriteByte(byte('a' + r.rand.Intn(26)))
		}
		w := b.String()
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}

// Documents returns num texts of 1 to maxWords words drawn from vocab with
// Zipf skew s.
func (r *RNG) Documents(num, maxWords int, vocab []string, s float64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := make([]string, num)
	words := make([]string, 0, maxWords)
	for i := range num {
		words = words[:0]
		n := 1 + r.rand.Intn(maxWords)
		for range n {
			words = append(words, vocab[r.zipfLocked(len(vocab), s)])
		}
		docs[i] = strings.Join(words, " ")
	}
	return docs
}

// ContainingAll returns, in ascending order, the 1-based positions of the
// docs holding every one of terms as a whole word. It is ground truth for
// term and conjunction queries over whitespace-separated texts.
func ContainingAll(docs []string, terms ...string) []uint64 {
	var out []uint64
	for i, d := range docs {
		words := strings.Fields(d)
		ok := true
		for _, t := range terms {
			if !slices.Contains(words, t) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, uint64(i+1))
		}
	}
	return out
}

// ContainingAny is the disjunctive counterpart of ContainingAll.
func ContainingAny(docs []string, terms ...string) []uint64 {
	var out []uint64
	for i, d := range docs {
		words := strings.Fields(d)
		for _, t := range terms {
			if slices.Contains(words, t) {
				out = append(out, uint64(i+1))
				break
			}
		}
	}
	return out
}

// ComputeRecall returns the share of truth found in got.
func ComputeRecall(truth, got []uint64) float64 {
	if len(truth) == 0 {
		if len(got) == 0 {
			return 1.0
		}
		return 0.0
	}
	set := make(map[uint64]struct{}, len(got))
	for _, id := range got {
		set[id] = struct{}{}
	}
	hits := 0
	for _, id := range truth {
		if _, ok := set[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
