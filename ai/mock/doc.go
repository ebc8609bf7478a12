// Package mock provides test doubles for the ai interfaces.
//
// The mocks generate deterministic embeddings from text hashes so tests
// can exercise similarity search without an embedding service, and allow
// behavior injection via function fields for error-path testing.
package mock
