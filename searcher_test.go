package lexigo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexigo/analysis"
	"github.com/hupe1980/lexigo/codec"
	"github.com/hupe1980/lexigo/query"
	"github.com/hupe1980/lexigo/testutil"
)

func createSearcher(t *testing.T, idx *Index) *Searcher {
	t.Helper()
	s, err := idx.CreateSearcher()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func matchIDs(ms []query.Match) []uint64 {
	ids := make([]uint64, len(ms))
	for i, m := range ms {
		ids[i] = m.DocumentID
	}
	return ids
}

func TestQueryTop(t *testing.T) {
	idx := openIndex(t)
	index(t, idx, "Body", "x", "x", "x x", "x")

	s, err := idx.CreateSearcher()
	require.NoError(t, err)
	defer s.Close()

	t.Run("RanksByScoreThenID", func(t *testing.T) {
		res, err := s.QueryTop(query.Term("Body", "x"), 10, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, res.TotalMatches)
		assert.Equal(t, []uint64{3, 1, 2, 4}, matchIDs(res.Matches))
		assert.Greater(t, res.Matches[0].Score, res.Matches[1].Score)
	})

	t.Run("Take", func(t *testing.T) {
		res, err := s.QueryTop(query.Term("Body", "x"), 2, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, res.TotalMatches)
		assert.Equal(t, []uint64{3, 1}, matchIDs(res.Matches))
	})

	t.Run("CountOnly", func(t *testing.T) {
		res, err := s.QueryTop(query.Term("Body", "x"), 0, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, res.TotalMatches)
		assert.Empty(t, res.Matches)
	})

	t.Run("NegativeTake", func(t *testing.T) {
		_, err := s.QueryTop(query.Term("Body", "x"), -1, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("NoMatches", func(t *testing.T) {
		res, err := s.QueryTop(query.Term("Body", "missing"), 5, nil, nil)
		require.NoError(t, err)
		assert.Zero(t, res.TotalMatches)
		assert.Empty(t, res.Matches)
	})

	t.Run("InvalidQuery", func(t *testing.T) {
		_, err := s.QueryTop(query.Term("", "x"), 5, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = s.QueryTop(query.AndQuery(nil, query.Term("Body", "x")), 5, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = s.QueryTop(nil, 5, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("CustomScorer", func(t *testing.T) {
		constant := query.ScorerFunc(func(float32, uint32, float32) float32 { return 1 })
		res, err := s.QueryTop(query.Term("Body", "x"), 10, constant, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3, 4}, matchIDs(res.Matches))
	})
}

func TestQueryTopSort(t *testing.T) {
	idx := openIndex(t)
	ix := createIndexer(t, idx)
	for _, doc := range []struct{ name, age string }{
		{"b", "30"},
		{"a", "30"},
		{"a", "20"},
		{"", "10"},
	} {
		_, err := ix.NewEntry()
		require.NoError(t, err)
		require.NoError(t, ix.AddText("Tag", "all", FieldNoAnalyzer))
		if doc.name != "" {
			require.NoError(t, ix.AddText("Name", doc.name, FieldNoAnalyzer))
		}
		require.NoError(t, ix.AddText("Age", doc.age, FieldNoAnalyzer))
	}
	require.NoError(t, ix.Close())

	s := createSearcher(t, idx)
	q := query.Term("Tag", "all")

	tests := []struct {
		name   string
		sorter *Sorter
		take   int
		want   []uint64
	}{
		{"NameAscAgeDesc", SortBy(SortField{Field: "Name"}, SortField{Field: "Age", Descending: true}), 10, []uint64{4, 2, 3, 1}},
		{"NameDescAgeDesc", SortBy(SortField{Field: "Name", Descending: true}, SortField{Field: "Age", Descending: true}), 10, []uint64{1, 2, 3, 4}},
		{"NameAscAgeAsc", SortBy(SortField{Field: "Name"}, SortField{Field: "Age"}), 10, []uint64{4, 3, 2, 1}},
		{"AgeAscTop2", SortBy(SortField{Field: "Age"}), 2, []uint64{4, 3}},
		{"TieFallsBackToID", SortBy(SortField{Field: "Tag"}), 10, []uint64{1, 2, 3, 4}},
		{"UnknownField", SortBy(SortField{Field: "Nope"}), 10, []uint64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.QueryTop(q, tt.take, nil, tt.sorter)
			require.NoError(t, err)
			assert.Equal(t, 4, res.TotalMatches)
			assert.Equal(t, tt.want, matchIDs(res.Matches))
		})
	}

	v, ok, err := s.Term(1, "Name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	_, ok, err = s.Term(4, "Name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPhrase(t *testing.T) {
	for _, opts := range []FieldOptions{FieldNone, FieldTrackPositions} {
		idx := openIndex(t)
		ix := createIndexer(t, idx)
		for _, text := range []string{"the quick brown fox", "quick red fox", "brown quick"} {
			_, err := ix.NewEntry()
			require.NoError(t, err)
			require.NoError(t, ix.AddText("Body", text, opts))
		}
		require.NoError(t, ix.Close())

		assert.Equal(t, []uint64{1}, search(t, idx, query.Phrase("Body", "quick", "brown")))
		assert.Equal(t, []uint64{1}, search(t, idx, query.Phrase("Body", "quick", "brown", "fox")))
		assert.Equal(t, []uint64{3}, search(t, idx, query.Phrase("Body", "brown", "quick")))
		assert.Nil(t, search(t, idx, query.Phrase("Body", "quick", "fox")))
		assert.Equal(t, []uint64{1, 2}, search(t, idx, query.Phrase("Body", "quick", "fox").WithSlop(2)))
	}
}

func TestStoredRoundTrip(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	for _, c := range []codec.Codec{codec.Binary{}, codec.JSON{}, codec.GoJSON{}} {
		for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
			t.Run(c.Name()+"/"+comp.String(), func(t *testing.T) {
				idx := openIndex(t, WithCodec(c), WithCompression(comp))
				ix := createIndexer(t, idx)
				_, err := ix.NewEntry()
				require.NoError(t, err)
				require.NoError(t, ix.AddText("Title", "Hello, World", FieldNone))
				require.NoError(t, ix.Store("Body", long))
				require.NoError(t, ix.AddField(Field{Name: "Empty", Stored: String("")}))
				require.NoError(t, ix.Close())

				s := createSearcher(t, idx)
				stored, err := s.Stored(1)
				require.NoError(t, err)
				assert.Equal(t, []StoredValue{
					{Field: "Title", Value: "Hello, World"},
					{Field: "Body", Value: long},
					{Field: "Empty", Value: ""},
				}, stored)

				_, err = s.Stored(2)
				assert.ErrorIs(t, err, ErrNotFound)
			})
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	idx := openIndex(t)
	index(t, idx, "Body", "first")

	s := createSearcher(t, idx)
	index(t, idx, "Body", "first again")

	res, err := s.QueryTop(query.Term("Body", "first"), 10, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, uint64(1), s.TotalDocuments())

	assert.Equal(t, []uint64{1, 2}, search(t, idx, query.Term("Body", "first")))
}

func TestSearcherClosed(t *testing.T) {
	idx := openIndex(t)
	s, err := idx.CreateSearcher()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.QueryTop(query.Term("Body", "x"), 1, nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Stored(1)
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = s.Term(1, "Body")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueryStopsEarly(t *testing.T) {
	idx := openIndex(t)
	index(t, idx, "Body", "x", "x", "x")
	s := createSearcher(t, idx)

	var got []uint64
	for m, err := range s.Query(query.Term("Body", "x"), nil) {
		require.NoError(t, err)
		got = append(got, m.DocumentID)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []uint64{1, 2}, got)
}

func TestCorpus(t *testing.T) {
	rng := testutil.NewRNG(4711)
	vocab := rng.Vocabulary(60)
	docs := rng.Documents(300, 10, vocab, 1.1)

	idx := openIndex(t, WithAnalyzer(analysis.NewAnalyzer()), WithFlushThreshold(256))
	ids := index(t, idx, "Body", docs...)
	require.Len(t, ids, len(docs))

	// Tombstone every seventh document.
	ix := createIndexer(t, idx)
	var deleted []uint64
	for id := uint64(7); id <= uint64(len(docs)); id += 7 {
		require.NoError(t, ix.DeleteEntry(id))
		deleted = append(deleted, id)
	}
	require.NoError(t, ix.Close())

	live := func(ids []uint64) []uint64 {
		var out []uint64
		for _, id := range ids {
			if id%7 != 0 {
				out = append(out, id)
			}
		}
		return out
	}

	check := func(t *testing.T) {
		for i := range 10 {
			a, b := vocab[i], vocab[i+10]
			assert.Equal(t, live(testutil.ContainingAll(docs, a)), search(t, idx, query.Term("Body", a)), a)
			assert.Equal(t, live(testutil.ContainingAll(docs, a, b)), search(t, idx, query.AndQuery(query.Term("Body", a), query.Term("Body", b))))
			assert.Equal(t, live(testutil.ContainingAny(docs, a, b)), search(t, idx, query.OrQuery(query.Term("Body", a), query.Term("Body", b))))
			assert.Equal(t, live(testutil.ContainingAny(docs, a, b)), search(t, idx, query.In("Body", b, a)))
		}
	}

	t.Run("Tombstoned", check)

	n, err := idx.NumberOfDeletes()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(deleted)), n)

	require.NoError(t, idx.Compact(t.Context()))
	t.Run("Compacted", check)

	docsLeft, deletes := counts(t, idx)
	assert.Equal(t, uint64(len(docs)-len(deleted)), docsLeft)
	assert.Zero(t, deletes)
}
