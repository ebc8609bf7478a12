package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for chunk records.
// It is generated using content-based hashing so that identical content
// at the same position produces identical IDs.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the ID for a chunk from its document, position, and text.
// Two chunks of the same document with the same ordinal and text always
// receive the same ID.
func ChunkID(documentID string, ordinal int, text string) ID {
	return IDFromContent(documentID + ":" + strconv.Itoa(ordinal) + ":" + text)
}

// JobStatus identifies the stage an ingestion job has reached.
// Transitions are strictly monotonic; see Job.Transition.
type JobStatus int

const (
	// JobQueued is the initial state: accepted but not yet executing.
	JobQueued JobStatus = iota + 1
	// JobExtracting means text extraction and chunking are in progress.
	JobExtracting
	// JobEmbedding means embedding generation and index writes are in progress.
	JobEmbedding
	// JobCompleted is the terminal success state.
	JobCompleted
	// JobFailed is the terminal failure state, reachable from any non-terminal state.
	JobFailed
)

// String returns the wire name of the status.
func (s JobStatus) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobExtracting:
		return "extracting_text"
	case JobEmbedding:
		return "generating_embeddings"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobError captures a structured failure reason for a failed job.
type JobError struct {
	Kind    string
	Message string
}

// JobResult summarizes the output of an ingestion job.
type JobResult struct {
	PagesProcessed      int
	ChunksCreated       int
	EmbeddingsGenerated int
}

// Job represents one ingestion run. It is created when an upload is
// accepted and mutated only by the pipeline as stages advance.
type Job struct {
	Id         string
	Tenant     string
	Collection string
	DocumentID string
	BlobRef    string
	Status     JobStatus
	Progress   int // 0-100
	Error      *JobError
	Result     JobResult
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// CompletedAt is the zero value until the job reaches a terminal state.
	CompletedAt time.Time
	// ExpiresAt inherits the owning tenant's TTL horizon. Jobs are never
	// deleted explicitly; they expire alongside the tenant's collection.
	ExpiresAt time.Time
}

// Transition moves the job to a new status, enforcing monotonicity.
// JobFailed is reachable from any non-terminal state; every other
// transition must advance the stage order. Terminal states set CompletedAt.
func (j *Job) Transition(to JobStatus, now time.Time) error {
	if j.Status.Terminal() {
		return ErrStatusRegression
	}
	if to != JobFailed && to <= j.Status {
		return ErrStatusRegression
	}
	j.Status = to
	j.UpdatedAt = now
	if to.Terminal() {
		j.CompletedAt = now
	}
	return nil
}

// Chunk is a unit of retrievable text: a bounded span of source text plus
// its embedding vector. Chunks are immutable once written and belong to
// exactly one tenant and one source document.
type Chunk struct {
	Id         ID
	Tenant     string
	Collection string
	DocumentID string
	Ordinal    int
	Text       string
	Vector     []float32
	Metadata   map[string]string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// SearchResult pairs a chunk with its similarity score for one query.
// Results are ephemeral and never persisted.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
