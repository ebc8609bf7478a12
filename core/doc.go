// Package core defines the domain model for corpus: chunks, ingestion
// jobs, and the job status state machine. It has no dependencies on
// storage or AI services; those layers depend on it.
package core
