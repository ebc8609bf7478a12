// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/chunk"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/extract"
	"github.com/poiesic/corpus/storage"
)

// Progress checkpoints reported through the job tracker. Extraction and
// chunking share the first half of the bar; embedding fills the rest.
const (
	progressExtracting = 10
	progressChunked    = 40
	progressEmbedding  = 50
	progressIndexed    = 90
)

// DefaultEmbedBatchSize is how many chunks are sent per embedding call.
const DefaultEmbedBatchSize = 10

// Pipeline orchestrates document ingestion: extraction, chunking,
// embedding, and indexing. Jobs execute asynchronously on a worker
// pool; each job runs its stages sequentially and records every status
// transition before the next stage begins.
type Pipeline struct {
	chunks   storage.ChunkRepository
	jobs     storage.JobRepository
	blobs    storage.BlobRepository
	embedder ai.Embedder
	policy   TenantPolicy

	pool           *ants.Pool
	gate           *admissionGate
	retry          ai.RetryPolicy
	embedBatchSize int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent job execution.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithRetryPolicy sets the retry policy for transient provider errors.
func WithRetryPolicy(policy ai.RetryPolicy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		p.retry = policy
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per provider call.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.embedBatchSize = size
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	chunks storage.ChunkRepository,
	jobs storage.JobRepository,
	blobs storage.BlobRepository,
	provider ai.Provider,
	policy TenantPolicy,
	opts ...Option,
) (*Pipeline, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if blobs == nil {
		return nil, ErrBlobRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if policy == nil {
		return nil, ErrPolicyRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunks:         chunks,
		jobs:           jobs,
		blobs:          blobs,
		embedder:       provider.Embedder(),
		policy:         policy,
		pool:           pool,
		retry:          ai.DefaultRetryPolicy(),
		embedBatchSize: DefaultEmbedBatchSize,
		logger:         slog.Default().With("component", "ingest"),
	}
	p.gate = newAdmissionGate(policy.ConcurrencyLimit)

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// SubmitRequest describes one document upload.
type SubmitRequest struct {
	Tenant     string
	Collection string
	// DocumentID identifies the source document for citation. Generated
	// when empty. Resubmitting the same id creates a new independent job;
	// the pipeline never deduplicates by content.
	DocumentID string
	MediaType  string
	Data       []byte
}

// Submit validates the upload, persists a queued job, and schedules it
// for execution. It returns the job id immediately; callers observe
// progress through GetJob on the job repository.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := core.ValidateTenant(req.Tenant); err != nil {
		return "", err
	}
	if err := core.ValidateCollection(req.Collection); err != nil {
		return "", err
	}
	if len(req.Data) == 0 {
		return "", ErrEmptyDocument
	}
	if limit := p.policy.MaxFileSize(req.Tenant); limit > 0 && int64(len(req.Data)) > limit {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrDocumentTooLarge, len(req.Data), limit)
	}
	if !extract.Supported(req.MediaType) {
		return "", fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, req.MediaType)
	}

	ttl := p.policy.TTL(req.Tenant)

	blobRef, err := p.blobs.PutBlob(ctx, req.Data, ttl)
	if err != nil {
		return "", err
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.NewString()
	}

	now := time.Now().UTC()
	job := &core.Job{
		Id:         uuid.NewString(),
		Tenant:     req.Tenant,
		Collection: req.Collection,
		DocumentID: documentID,
		BlobRef:    blobRef,
		Status:     core.JobQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ttl > 0 {
		job.ExpiresAt = now.Add(ttl)
	}

	if err := p.jobs.CreateJob(ctx, job); err != nil {
		return "", err
	}

	mediaType := req.MediaType
	if err := p.pool.Submit(func() {
		p.run(job.Id, mediaType)
	}); err != nil {
		p.fail(context.Background(), job.Id, "internal", err)
		return "", err
	}

	p.logger.Info("job submitted",
		"job", job.Id, "tenant", req.Tenant, "collection", req.Collection,
		"bytes", len(req.Data))

	return job.Id, nil
}

// run executes all stages of one job. It is the only writer of the
// job's status after submission.
func (p *Pipeline) run(jobID string, mediaType string) {
	ctx := context.Background()
	logger := p.logger.With("job", jobID)

	job, err := p.jobs.GetJob(ctx, jobID)
	if err != nil {
		logger.Error("error loading job", "err", err)
		return
	}

	// The job stays queued until the tenant has a free execution slot.
	if err := p.gate.Acquire(ctx, job.Tenant); err != nil {
		p.fail(ctx, jobID, "internal", err)
		return
	}
	defer p.gate.Release(job.Tenant)

	pages, chunks, err := p.extractStage(ctx, job, mediaType)
	if err != nil {
		p.fail(ctx, jobID, stageErrorKind(err), err)
		return
	}

	embedded, err := p.embedStage(ctx, job, chunks)
	if err != nil {
		p.fail(ctx, jobID, stageErrorKind(err), err)
		return
	}

	p.complete(ctx, job, pages, len(chunks), embedded)
}

// extractStage pulls the blob, extracts text, and chunks it. Returns
// the page count and the chunk records, vectors still unset.
func (p *Pipeline) extractStage(ctx context.Context, job *core.Job, mediaType string) (int, []*core.Chunk, error) {
	if err := p.transition(ctx, job.Id, core.JobExtracting, progressExtracting); err != nil {
		return 0, nil, err
	}

	data, err := p.blobs.GetBlob(ctx, job.BlobRef)
	if err != nil {
		return 0, nil, err
	}

	pages, err := extract.Extract(ctx, data, mediaType)
	if err != nil {
		return 0, nil, err
	}

	policy := p.policy.ChunkPolicy(job.Tenant)

	// Pages are joined before chunking so boundaries follow the document
	// text as a whole and a chunk may span a page break. Each chunk is
	// attributed to the page where it starts.
	var builder strings.Builder
	pageStarts := make([]int, len(pages))
	offset := 0
	for i, page := range pages {
		if i > 0 {
			builder.WriteString("\n")
			offset++
		}
		pageStarts[i] = offset
		builder.WriteString(page.Text)
		offset += utf8.RuneCountInString(page.Text)
	}

	spans, err := chunk.SplitSpans(builder.String(), policy)
	if err != nil {
		return 0, nil, err
	}

	records := make([]*core.Chunk, 0, len(spans))
	for ordinal, span := range spans {
		page := pages[pageIndexAt(pageStarts, span.Start)]
		records = append(records, &core.Chunk{
			Id:         core.ChunkID(job.DocumentID, ordinal, span.Text),
			Tenant:     job.Tenant,
			Collection: job.Collection,
			DocumentID: job.DocumentID,
			Ordinal:    ordinal,
			Text:       span.Text,
			Metadata:   map[string]string{"page": fmt.Sprintf("%d", page.Number)},
			ExpiresAt:  job.ExpiresAt,
		})
	}

	if len(records) == 0 {
		return 0, nil, extract.ErrEmptyDocument
	}

	if err := p.setProgress(ctx, job.Id, progressChunked); err != nil {
		return 0, nil, err
	}

	return len(pages), records, nil
}

// embedStage embeds chunks in batches and writes each batch to the
// index as it completes. Already-indexed batches are not rolled back if
// a later batch fails; the failed job status is what excludes them from
// being treated as a complete document.
func (p *Pipeline) embedStage(ctx context.Context, job *core.Job, records []*core.Chunk) (int, error) {
	if err := p.transition(ctx, job.Id, core.JobEmbedding, progressEmbedding); err != nil {
		return 0, err
	}

	embedded := 0
	for start := 0; start < len(records); start += p.embedBatchSize {
		end := start + p.embedBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := p.embedBatch(ctx, batch); err != nil {
			return embedded, err
		}

		if err := p.chunks.AddChunks(ctx, batch...); err != nil {
			return embedded, err
		}
		embedded += len(batch)

		progress := progressEmbedding +
			(progressIndexed-progressEmbedding)*embedded/len(records)
		if err := p.setProgress(ctx, job.Id, progress); err != nil {
			return embedded, err
		}
	}

	return embedded, nil
}

// embedBatch fills in the vectors for one batch. Transient provider
// errors are retried with backoff. If the provider rejects the batch as
// invalid input, each chunk is retried individually so one bad chunk is
// pinpointed instead of blaming the whole batch.
func (p *Pipeline) embedBatch(ctx context.Context, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = record.Text
	}

	var vectors [][]float32
	err := ai.RetryTransient(ctx, func() error {
		var embedErr error
		vectors, embedErr = p.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, p.retry)
	if err == nil {
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vectors))
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}
		return nil
	}

	if ai.KindOf(err) != ai.KindInvalidInput || len(batch) == 1 {
		return err
	}

	// Batch-level rejection: isolate the offending chunk.
	for _, record := range batch {
		var vector []float32
		itemErr := ai.RetryTransient(ctx, func() error {
			var embedErr error
			vector, embedErr = p.embedder.EmbedText(ctx, record.Text)
			return embedErr
		}, p.retry)
		if itemErr != nil {
			return fmt.Errorf("chunk %d: %w", record.Ordinal, itemErr)
		}
		record.Vector = vector
	}

	return nil
}

// pageIndexAt returns the index of the page containing the given rune
// offset. pageStarts is ascending, one entry per page.
func pageIndexAt(pageStarts []int, start int) int {
	idx := sort.SearchInts(pageStarts, start+1) - 1
	if idx < 0 {
		idx = 0
	}
	return idx
}

// transition moves the job to the given status and progress.
func (p *Pipeline) transition(ctx context.Context, jobID string, to core.JobStatus, progress int) error {
	_, err := p.jobs.UpdateJob(ctx, jobID, func(job *core.Job) error {
		if err := job.Transition(to, time.Now().UTC()); err != nil {
			return err
		}
		job.Progress = progress
		return nil
	})
	return err
}

func (p *Pipeline) setProgress(ctx context.Context, jobID string, progress int) error {
	_, err := p.jobs.UpdateJob(ctx, jobID, func(job *core.Job) error {
		job.Progress = progress
		job.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}

// complete marks the job done and records the result summary.
func (p *Pipeline) complete(ctx context.Context, job *core.Job, pages, chunksCreated, embedded int) {
	logger := p.logger.With("job", job.Id)

	_, err := p.jobs.UpdateJob(ctx, job.Id, func(j *core.Job) error {
		if err := j.Transition(core.JobCompleted, time.Now().UTC()); err != nil {
			return err
		}
		j.Progress = 100
		j.Result = core.JobResult{
			PagesProcessed:      pages,
			ChunksCreated:       chunksCreated,
			EmbeddingsGenerated: embedded,
		}
		return nil
	})
	if err != nil {
		logger.Error("error completing job", "err", err)
		return
	}

	// The blob served its purpose; its TTL would reclaim it eventually
	// but there is no reason to hold the bytes once indexed.
	if err := p.blobs.DeleteBlob(ctx, job.BlobRef); err != nil {
		logger.Warn("error deleting blob", "ref", job.BlobRef, "err", err)
	}

	logger.Info("job completed", "pages", pages, "chunks", chunksCreated, "embeddings", embedded)
}

// fail records a terminal failure with a structured error.
func (p *Pipeline) fail(ctx context.Context, jobID string, kind string, cause error) {
	logger := p.logger.With("job", jobID)
	logger.Error("job failed", "kind", kind, "err", cause)

	_, err := p.jobs.UpdateJob(ctx, jobID, func(job *core.Job) error {
		if job.Status.Terminal() {
			return nil
		}
		if err := job.Transition(core.JobFailed, time.Now().UTC()); err != nil {
			return err
		}
		job.Error = &core.JobError{Kind: kind, Message: cause.Error()}
		return nil
	})
	if err != nil {
		logger.Error("error recording job failure", "err", err)
	}
}

// stageErrorKind maps a stage error to the structured kind surfaced in
// the job snapshot.
func stageErrorKind(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, extract.ErrCorruptInput), errors.Is(err, extract.ErrEmptyDocument):
		return "corrupt_input"
	}

	if kind := ai.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "internal"
}

// Release releases the worker pool. In-flight jobs are abandoned; the
// pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
