package lexigo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexigo/query"
	"github.com/hupe1980/lexigo/testutil"
)

func benchCorpus(n int) ([]string, []string) {
	rng := testutil.NewRNG(42)
	vocab := rng.Vocabulary(2000)
	return vocab, rng.Documents(n, 24, vocab, 1.1)
}

func BenchmarkIndexing(b *testing.B) {
	_, docs := benchCorpus(1000)
	idx, err := Open(filepath.Join(b.TempDir(), "bench.idx"), WithNoSync(true), WithAutoCompaction(false))
	require.NoError(b, err)
	defer idx.Close()

	ix, err := idx.CreateIndexer()
	require.NoError(b, err)
	defer ix.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ix.NewEntry(); err != nil {
			b.Fatal(err)
		}
		if err := ix.AddText("Body", docs[i%len(docs)], FieldNone); err != nil {
			b.Fatal(err)
		}
	}
	require.NoError(b, ix.Flush())
}

func BenchmarkQueryTop(b *testing.B) {
	vocab, docs := benchCorpus(5000)
	idx, err := Open(filepath.Join(b.TempDir(), "bench.idx"), WithNoSync(true), WithAutoCompaction(false))
	require.NoError(b, err)
	defer idx.Close()

	ix, err := idx.CreateIndexer()
	require.NoError(b, err)
	for _, d := range docs {
		_, err := ix.NewEntry()
		require.NoError(b, err)
		require.NoError(b, ix.AddText("Body", d, FieldNone))
	}
	require.NoError(b, ix.Close())

	queries := map[string]query.Query{
		"Term": query.Term("Body", vocab[0]),
		"Or":   query.OrQuery(query.Term("Body", vocab[1]), query.Term("Body", vocab[2])),
		"And":  query.AndQuery(query.Term("Body", vocab[0]), query.Term("Body", vocab[3])),
		"In":   query.In("Body", vocab[4], vocab[5], vocab[6]),
	}
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			s, err := idx.CreateSearcher()
			require.NoError(b, err)
			defer s.Close()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.QueryTop(q, 10, nil, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
