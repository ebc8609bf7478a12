package storage

import (
	"context"
	"time"

	"github.com/poiesic/corpus/core"
)

// ChunkRepository stores chunk records and answers nearest-neighbor queries
// scoped to one tenant collection. Implementations must be thread-safe and
// support concurrent access.
type ChunkRepository interface {
	// AddChunks appends one or more chunk records. Writes are append-only;
	// each write is atomic and no partially-written record is ever visible
	// to FindSimilar. Every record is tagged with its tenant id at write
	// time. Records carry their own expiry horizon.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// FindSimilar finds chunks similar to the given vector within one
	// tenant collection. Returns up to limit results ordered by similarity
	// score descending, ties broken by chunk ordinal ascending. Never
	// returns chunks belonging to a different tenant; a record that fails
	// the tenant check aborts the query with ErrCrossTenant.
	FindSimilar(ctx context.Context, tenant, collection string, vector []float32, limit int) ([]*core.SearchResult, error)

	// CountChunks returns the number of chunks stored for a document
	// within one tenant collection.
	CountChunks(ctx context.Context, tenant, collection, documentID string) (int, error)

	// Close closes the repository and releases resources.
	Close() error
}

// JobRepository provides durable records of pipeline run state.
type JobRepository interface {
	// CreateJob persists a new job. Returns ErrDuplicateKey if a job with
	// the same id already exists.
	CreateJob(ctx context.Context, job *core.Job) error

	// GetJob retrieves a job snapshot by id.
	// Returns ErrNotFound if the id is unknown or has expired.
	GetJob(ctx context.Context, id string) (*core.Job, error)

	// UpdateJob applies mutate to the stored job atomically with respect
	// to concurrent updates of the same id, and persists the result.
	// If mutate returns an error, nothing is written. Returns the job as
	// persisted. Returns ErrNotFound if the id is unknown.
	UpdateJob(ctx context.Context, id string, mutate func(job *core.Job) error) (*core.Job, error)

	// Close closes the repository and releases resources.
	Close() error
}

// BlobRepository stores raw uploaded files, keyed by an opaque ref,
// with automatic expiry.
type BlobRepository interface {
	// PutBlob stores the given bytes and returns an opaque ref.
	// The blob expires after ttl; a ttl of zero stores without expiry.
	PutBlob(ctx context.Context, data []byte, ttl time.Duration) (string, error)

	// GetBlob retrieves blob bytes by ref.
	// Returns ErrNotFound if the ref is unknown or has expired.
	GetBlob(ctx context.Context, ref string) ([]byte, error)

	// DeleteBlob removes a blob. Deleting an unknown ref is not an error.
	DeleteBlob(ctx context.Context, ref string) error

	// Close closes the repository and releases resources.
	Close() error
}
