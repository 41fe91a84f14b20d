// Package testutil provides testing utilities for lexigo.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible text corpora and computes exact match sets to
// verify query results against.
//
// # Corpus Generation
//
//	rng := testutil.NewRNG(seed)
//	vocab := rng.Vocabulary(500)
//	docs := rng.Documents(1000, 12, vocab, 1.1)
//
// # Ground Truth
//
//	want := testutil.ContainingAll(docs, "foo", "bar")
//	recall := testutil.ComputeRecall(want, got)
package testutil
