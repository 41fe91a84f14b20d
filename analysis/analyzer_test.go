package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAnalyzer(t *testing.T) {
	a := DefaultAnalyzer()
	assert.Equal(t, []string{"oren", "ayende"}, Terms(a, "Name", "Oren and Ayende"))
	assert.Equal(t, []string{"oren", "house"}, Terms(a, "Name", "Oren's house"))
	assert.Equal(t, []string{"ayende", "book"}, Terms(a, "Name", "Ayende’s book"))
	assert.Equal(t, []string{"ayende@ayende.com"}, Terms(a, "Email", "Ayende@Ayende.com"))
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		in     string
		want   string
		keep   bool
	}{
		{"lower ascii", LowerCase, "HeLLo", "hello", true},
		{"lower unicode", LowerCase, "ÄRGER", "ärger", true},
		{"possessive", RemovePossessiveSuffix, "oren's", "oren", true},
		{"possessive upper", RemovePossessiveSuffix, "OREN'S", "OREN", true},
		{"no possessive", RemovePossessiveSuffix, "boss", "boss", true},
		{"stop word", StopWords("and"), "and", "", false},
		{"not a stop word", StopWords("and"), "android", "android", true},
		{"min length", MinLength(3), "ab", "", false},
		{"nfkc ligature", NormalizeNFKC, "ﬁle", "file", true},
		{"nfkc already normal", NormalizeNFKC, "file", "file", true},
		{"stem", Stem, "running", "run", true},
		{"stem plural", Stem, "cats", "cat", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, keep := tc.filter([]byte(tc.in))
			assert.Equal(t, tc.keep, keep)
			if tc.keep {
				assert.Equal(t, tc.want, string(got))
			}
		})
	}
}

func TestApply_RejectsEmpty(t *testing.T) {
	_, ok := Apply(nil, LowerCase)
	assert.False(t, ok)

	_, ok = Apply([]byte("'s"), RemovePossessiveSuffix)
	assert.False(t, ok)
}

func TestFilters_AreIndependentAcrossCalls(t *testing.T) {
	a := NewAnalyzer(LowerCase, StopWords(DefaultStopWords...))
	first, ok := a.Process("f", []byte("One"))
	assert.True(t, ok)
	assert.Equal(t, "one", string(first))

	second, ok := a.Process("f", []byte("TWO"))
	assert.True(t, ok)
	assert.Equal(t, "two", string(second))
}

func TestPerField(t *testing.T) {
	a := &PerField{
		Default: DefaultAnalyzer(),
		Fields:  map[string]Analyzer{"Body": NewAnalyzer(LowerCase, Stem)},
	}
	assert.Equal(t, []string{"run", "dog"}, Terms(a, "Body", "Running Dogs"))
	assert.Equal(t, []string{"running", "dogs"}, Terms(a, "Title", "Running Dogs"))
}

func TestChain_CreateSourceReuses(t *testing.T) {
	a := DefaultAnalyzer().WithBufferSize(8)
	src := a.CreateSource("f", nil)
	assert.Same(t, src, a.CreateSource("f", src))
}
