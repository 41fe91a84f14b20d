package lexigo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexigo/codec"
	"github.com/hupe1980/lexigo/query"
)

func openIndex(t *testing.T, opts ...Option) *Index {
	t.Helper()
	return openIndexAt(t, filepath.Join(t.TempDir(), "test.idx"), opts...)
}

func openIndexAt(t *testing.T, path string, opts ...Option) *Index {
	t.Helper()
	opts = append([]Option{WithNoSync(true), WithAutoCompaction(false), WithOpenTimeout(time.Second)}, opts...)
	idx, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

// index adds one entry per text to field with the default options and
// flushes. It returns the assigned ids.
func index(t *testing.T, idx *Index, field string, texts ...string) []uint64 {
	t.Helper()
	ix, err := idx.CreateIndexer()
	require.NoError(t, err)
	ids := make([]uint64, 0, len(texts))
	for _, text := range texts {
		id, err := ix.NewEntry()
		require.NoError(t, err)
		require.NoError(t, ix.AddText(field, text, FieldTrackPositions))
		ids = append(ids, id)
	}
	require.NoError(t, ix.Close())
	return ids
}

func search(t *testing.T, idx *Index, q query.Query) []uint64 {
	t.Helper()
	s, err := idx.CreateSearcher()
	require.NoError(t, err)
	defer s.Close()

	var out []uint64
	for m, err := range s.Query(q, nil) {
		require.NoError(t, err)
		out = append(out, m.DocumentID)
	}
	return out
}

func counts(t *testing.T, idx *Index) (docs, deletes uint64) {
	t.Helper()
	docs, err := idx.NumberOfDocuments()
	require.NoError(t, err)
	deletes, err = idx.NumberOfDeletes()
	require.NoError(t, err)
	return docs, deletes
}

func TestIndex(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		idx := openIndex(t)

		docs, deletes := counts(t, idx)
		assert.Zero(t, docs)
		assert.Zero(t, deletes)
		assert.NotEqual(t, [16]byte{}, [16]byte(idx.ID()))
		assert.Nil(t, search(t, idx, query.Term("Name", "oren")))
	})

	t.Run("Reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reopen.idx")
		idx, err := Open(path, WithNoSync(true), WithAutoCompaction(false))
		require.NoError(t, err)
		id := idx.ID()
		index(t, idx, "Name", "Oren Eini", "Ayende Rahien")
		require.NoError(t, idx.Close())

		idx = openIndexAt(t, path)
		assert.Equal(t, id, idx.ID())
		docs, _ := counts(t, idx)
		assert.Equal(t, uint64(2), docs)
		assert.Equal(t, []uint64{2}, search(t, idx, query.Term("Name", "rahien")))

		ids := index(t, idx, "Name", "Third")
		assert.Equal(t, []uint64{3}, ids)
	})

	t.Run("CodecIsFixedAtCreation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "codec.idx")
		idx, err := Open(path, WithNoSync(true), WithCodec(codec.JSON{}))
		require.NoError(t, err)
		index(t, idx, "Name", "Oren")
		require.NoError(t, idx.Close())

		idx = openIndexAt(t, path, WithCodec(codec.Binary{}))
		assert.Equal(t, "json", idx.codec.Name())

		s, err := idx.CreateSearcher()
		require.NoError(t, err)
		defer s.Close()
		stored, err := s.Stored(1)
		require.NoError(t, err)
		assert.Equal(t, []StoredValue{{Field: "Name", Value: "Oren"}}, stored)
	})

	t.Run("Closed", func(t *testing.T) {
		idx, err := Open(filepath.Join(t.TempDir(), "closed.idx"), WithNoSync(true))
		require.NoError(t, err)
		require.NoError(t, idx.Close())
		require.NoError(t, idx.Close())

		_, err = idx.CreateIndexer()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = idx.CreateSearcher()
		assert.ErrorIs(t, err, ErrClosed)
		_, err = idx.NumberOfDocuments()
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, idx.Compact(context.Background()), ErrClosed)
	})

	t.Run("IndexerFlushAfterClose", func(t *testing.T) {
		idx, err := Open(filepath.Join(t.TempDir(), "late.idx"), WithNoSync(true))
		require.NoError(t, err)
		ix, err := idx.CreateIndexer()
		require.NoError(t, err)
		_, err = ix.NewEntry()
		require.NoError(t, err)
		require.NoError(t, ix.AddText("Name", "late", FieldNone))
		require.NoError(t, idx.Close())

		assert.ErrorIs(t, ix.Flush(), ErrClosed)
	})
}

func TestCompaction(t *testing.T) {
	t.Run("Manual", func(t *testing.T) {
		idx := openIndex(t, WithCompactionBatch(2, 0))
		ids := index(t, idx, "Body", "apple pie", "apple tart", "banana split", "apple crumble", "cherry pie")

		ix, err := idx.CreateIndexer()
		require.NoError(t, err)
		for _, id := range ids[:4] {
			require.NoError(t, ix.DeleteEntry(id))
		}
		require.NoError(t, ix.Close())

		docs, deletes := counts(t, idx)
		assert.Equal(t, uint64(1), docs)
		assert.Equal(t, uint64(4), deletes)

		require.NoError(t, idx.Compact(context.Background()))

		docs, deletes = counts(t, idx)
		assert.Equal(t, uint64(1), docs)
		assert.Zero(t, deletes)
		assert.Nil(t, search(t, idx, query.Term("Body", "apple")))
		assert.Equal(t, []uint64{5}, search(t, idx, query.Term("Body", "pie")))
		assert.Equal(t, []uint64{5}, search(t, idx, query.Phrase("Body", "cherry", "pie")))

		s, err := idx.CreateSearcher()
		require.NoError(t, err)
		defer s.Close()
		_, err = s.Stored(1)
		assert.ErrorIs(t, err, ErrNotFound)
		_, ok, err := s.Term(1, "Body")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Automatic", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		idx := openIndex(t, WithAutoCompaction(true), WithMetricsCollector(metrics))
		ids := index(t, idx, "Body", "one", "two", "three", "four", "five")

		ix, err := idx.CreateIndexer()
		require.NoError(t, err)
		require.NoError(t, ix.DeleteEntry(ids[0]))
		require.NoError(t, ix.DeleteEntry(ids[1]))
		require.NoError(t, ix.Close())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, idx.AwaitCompaction(ctx))
		require.NoError(t, idx.CompactionErr())

		_, deletes := counts(t, idx)
		assert.Zero(t, deletes)
		assert.Equal(t, int64(1), metrics.GetStats().CompactionCount)
		assert.Equal(t, int64(2), metrics.GetStats().CompactionPurged)
	})

	t.Run("AtRatio", func(t *testing.T) {
		idx := openIndex(t, WithAutoCompaction(true), WithCompactionRatio(0.5))
		ids := index(t, idx, "Body", "one", "two", "three")

		ix := createIndexer(t, idx)
		require.NoError(t, ix.DeleteEntry(ids[0]))
		require.NoError(t, ix.Flush())

		require.NoError(t, idx.AwaitCompaction(context.Background()))
		_, deletes := counts(t, idx)
		assert.Equal(t, uint64(1), deletes, "one tombstone per two live documents does not exceed 0.5")

		require.NoError(t, ix.DeleteEntry(ids[1]))
		require.NoError(t, ix.Close())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, idx.AwaitCompaction(ctx))
		_, deletes = counts(t, idx)
		assert.Zero(t, deletes)
	})

	t.Run("TaskHandle", func(t *testing.T) {
		idx := openIndex(t, WithAutoCompaction(true))
		ids := index(t, idx, "Body", "one", "two", "three")

		running := &compactionTask{done: make(chan struct{})}
		idx.mu.Lock()
		idx.task = running
		idx.mu.Unlock()
		assert.False(t, idx.startCompaction())
		assert.NoError(t, idx.CompactionErr())

		errPass := errors.New("pass failed")
		running.err = errPass
		close(running.done)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.ErrorIs(t, idx.CompactionErr(), errPass)
		assert.ErrorIs(t, idx.AwaitCompaction(ctx), errPass)

		ix := createIndexer(t, idx)
		require.NoError(t, ix.DeleteEntry(ids[0]))
		require.NoError(t, ix.DeleteEntry(ids[1]))
		require.NoError(t, ix.Close())

		require.NoError(t, idx.AwaitCompaction(ctx))
		assert.NoError(t, idx.CompactionErr())
		idx.mu.Lock()
		assert.NotSame(t, running, idx.task)
		idx.mu.Unlock()

		_, deletes := counts(t, idx)
		assert.Zero(t, deletes)
	})

	t.Run("CloseWaitsForCompact", func(t *testing.T) {
		idx, err := Open(filepath.Join(t.TempDir(), "close.idx"), WithNoSync(true), WithAutoCompaction(false), WithCompactionBatch(1, 0))
		require.NoError(t, err)
		ids := index(t, idx, "Body", "a b", "b c", "c d", "d e", "e f", "f g")

		ix := createIndexer(t, idx)
		for _, id := range ids {
			require.NoError(t, ix.DeleteEntry(id))
		}
		require.NoError(t, ix.Close())

		done := make(chan error, 1)
		go func() { done <- idx.Compact(context.Background()) }()
		require.NoError(t, idx.Close())

		if err := <-done; err != nil {
			assert.ErrorIs(t, err, ErrClosed)
		}
	})

	t.Run("BelowRatio", func(t *testing.T) {
		idx := openIndex(t, WithAutoCompaction(true), WithCompactionRatio(0.5))
		ids := index(t, idx, "Body", "one", "two", "three", "four", "five")

		ix, err := idx.CreateIndexer()
		require.NoError(t, err)
		require.NoError(t, ix.DeleteEntry(ids[0]))
		require.NoError(t, ix.Close())

		require.NoError(t, idx.AwaitCompaction(context.Background()))
		_, deletes := counts(t, idx)
		assert.Equal(t, uint64(1), deletes)
	})
}

func TestMetrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	idx := openIndex(t, WithMetricsCollector(metrics))
	index(t, idx, "Body", "alpha", "beta")

	ix, err := idx.CreateIndexer()
	require.NoError(t, err)
	require.NoError(t, ix.DeleteEntry(1))
	require.NoError(t, ix.DeleteEntry(1))
	require.NoError(t, ix.DeleteEntry(99))
	require.NoError(t, ix.Close())

	s, err := idx.CreateSearcher()
	require.NoError(t, err)
	defer s.Close()
	_, err = s.QueryTop(query.Term("Body", "beta"), 10, nil, nil)
	require.NoError(t, err)
	_, err = s.QueryTop(query.Term("Body", "beta"), -1, nil, nil)
	require.Error(t, err)

	st := metrics.GetStats()
	assert.Equal(t, int64(2), st.FlushCount)
	assert.Equal(t, int64(2), st.FlushDocs)
	assert.Zero(t, st.FlushErrors)
	assert.Equal(t, int64(1), st.DeleteCount)
	assert.Equal(t, int64(2), st.QueryCount)
	assert.Equal(t, int64(1), st.QueryErrors)
}
