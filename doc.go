// Package lexigo provides an embedded full-text search index for Go.
//
// An index lives in a single file. Documents are numbered entries made of
// named fields; indexed field values are split into terms by an analyzer and
// stored field values are kept verbatim. Queries are scored with tf-idf and
// ranked with a bounded top-K selection.
//
// # Quick Start
//
//	idx, _ := lexigo.Open("./people.idx")
//	defer idx.Close()
//
//	ix, _ := idx.CreateIndexer()
//	id, _ := ix.NewEntry()
//	ix.AddText("Name", "Oren Eini", lexigo.FieldNone)
//	ix.Flush()
//	ix.Close()
//
//	s, _ := idx.CreateSearcher()
//	defer s.Close()
//	res, _ := s.QueryTop(query.Term("Name", "oren"), 10, nil, nil)
//
// # Writing
//
// An Indexer buffers entries and commits them atomically on Flush. With
// auto-flush enabled (the default) it also commits when the buffered terms or
// stored values reach the flush threshold, or the memory limit is hit, at the
// start of the next entry:
//
//	ix.NewEntry()                       // fresh id
//	ix.UpdateEntry(id)                  // replace document id
//	ix.DeleteEntry(id)                  // tombstone document id
//	ix.AddField(lexigo.Field{
//	    Name:    "Body",
//	    Indexed: strings.NewReader(text),
//	    Options: lexigo.FieldTrackPositions,
//	})
//
// Deleted documents stop matching once the delete is committed. Their data is
// removed by compaction, which runs in the background after a flush once the
// tombstones exceed a share of the live documents (see WithCompactionRatio),
// or on demand with Index.Compact.
//
// # Reading
//
// A Searcher sees the committed index as of its creation. Queries are built
// from the query package:
//
//	q := query.AndQuery(
//	    query.Term("Name", "oren"),
//	    query.Phrase("Body", "raven", "db").WithSlop(2),
//	)
//	for m, err := range s.Query(q, nil) {
//	    fmt.Println(m.DocumentID, m.Score)
//	}
//
// Query values are literal terms. Use analysis.Terms(idx.Analyzer(), field,
// text) to normalize user input the way indexed values were.
//
// # Observability
//
// Structured logging uses log/slog through WithLogger; operation metrics are
// reported to a MetricsCollector (see metrics/prometheus).
package lexigo
