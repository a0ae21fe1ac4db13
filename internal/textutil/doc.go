// Package textutil provides tokenization, term-frequency fingerprints, and
// cosine similarity for comparing short runs of text.
//
// The primary consumer is the deterministic segmenter, which compares
// per-page header lines ("Clarinet in Bb 2", "Horn in F 1") across contiguous
// pages. Tokenization lowercases, splits on non-alphanumeric characters, and
// keeps every non-empty token: single-character tokens like part numbers are
// significant for headers.
package textutil
