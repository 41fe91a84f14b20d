package analysis

import (
	"bytes"
	"unicode/utf8"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopWords is the classic English stop-word list.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in",
	"into", "is", "it", "no", "not", "of", "on", "or", "such", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "was", "will",
	"with",
}

// LowerCase folds term to lower case, in place when it is ASCII.
func LowerCase(term []byte) ([]byte, bool) {
	for i, c := range term {
		if c >= utf8.RuneSelf {
			return bytes.ToLower(term), true
		}
		if 'A' <= c && c <= 'Z' {
			term[i] = c + ('a' - 'A')
		}
	}
	return term, true
}

var (
	possessive      = []byte("'s")
	possessiveUpper = []byte("'S")
	possessiveCurly = []byte("’s")
)

// RemovePossessiveSuffix strips a trailing 's or ’s.
func RemovePossessiveSuffix(term []byte) ([]byte, bool) {
	switch {
	case bytes.HasSuffix(term, possessive), bytes.HasSuffix(term, possessiveUpper):
		return term[:len(term)-len(possessive)], true
	case bytes.HasSuffix(term, possessiveCurly):
		return term[:len(term)-len(possessiveCurly)], true
	}
	return term, true
}

// StopWords rejects the given words. Matching is exact, so place it after
// LowerCase.
func StopWords(words ...string) Filter {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return func(term []byte) ([]byte, bool) {
		_, stop := set[string(term)]
		return term, !stop
	}
}

// MinLength rejects terms with fewer than n runes.
func MinLength(n int) Filter {
	return func(term []byte) ([]byte, bool) {
		return term, utf8.RuneCount(term) >= n
	}
}

// NormalizeNFKC applies Unicode compatibility composition, so ligatures and
// full-width forms match their plain spellings.
func NormalizeNFKC(term []byte) ([]byte, bool) {
	if norm.NFKC.IsNormal(term) {
		return term, true
	}
	return norm.NFKC.Bytes(term), true
}

// Stem reduces an English word to its Snowball stem. Place it after LowerCase.
func Stem(term []byte) ([]byte, bool) {
	env := snowballstem.NewEnv(string(term))
	english.Stem(env)
	return append(term[:0], env.Current()...), true
}
