// Package ingest drives documents through the ingestion state machine:
// queued, extracting_text, generating_embeddings, then completed or
// failed. Jobs run asynchronously on a worker pool behind a per-tenant
// admission gate, so one tenant cannot monopolize embedding capacity.
//
// Stage transitions are persisted before the next stage begins; a job
// snapshot always reflects the last completed stage. Transient provider
// failures retry with bounded exponential backoff, while malformed
// input fails the job immediately.
package ingest
