// Package chunk splits extracted document text into fixed-size
// overlapping pieces for embedding. Splitting is a pure function of the
// input text and policy so repeated ingestion of the same document
// produces identical chunk boundaries.
package chunk
