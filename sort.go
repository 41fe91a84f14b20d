package lexigo

import (
	"strings"

	"github.com/hupe1980/lexigo/query"
)

// SortField orders results by the first indexed term of Field.
type SortField struct {
	Field      string
	Descending bool
}

// Sorter is an ordered list of sort keys. The first key that differs
// decides; ties fall back to score, then to the lower document id.
type Sorter struct {
	Fields []SortField
}

// SortBy returns a Sorter over fields.
func SortBy(fields ...SortField) *Sorter {
	return &Sorter{Fields: fields}
}

// sortValue is one resolved key; a missing value ranks below every present
// one before the direction is applied.
type sortValue struct {
	value   string
	present bool
}

type candidate struct {
	match query.Match
	keys  []sortValue
}

func compareValues(a, b sortValue) int {
	switch {
	case a.present == b.present:
		return strings.Compare(a.value, b.value)
	case a.present:
		return 1
	default:
		return -1
	}
}

// rankByScore orders by score, then by lower document id.
func rankByScore(a, b query.Match) int {
	switch {
	case a.Score < b.Score:
		return -1
	case a.Score > b.Score:
		return 1
	case a.DocumentID > b.DocumentID:
		return -1
	case a.DocumentID < b.DocumentID:
		return 1
	}
	return 0
}

// rank returns a positive number when a ranks above b.
func (s *Sorter) rank(a, b *candidate) int {
	if s != nil {
		for i, f := range s.Fields {
			c := compareValues(a.keys[i], b.keys[i])
			if c == 0 {
				continue
			}
			// Ascending order puts smaller values first.
			if f.Descending {
				return c
			}
			return -c
		}
	}
	return rankByScore(a.match, b.match)
}

func (s *Sorter) len() int {
	if s == nil {
		return 0
	}
	return len(s.Fields)
}
