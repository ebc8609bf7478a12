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


package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/ai/googleai"
	"github.com/poiesic/corpus/ai/openai"
	"github.com/poiesic/corpus/answer"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/ingest"
	"github.com/poiesic/corpus/search"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/storage/badger"
)

// Store is the top-level entry point: one embedded vector database plus
// the ingestion pipeline and retrieval engine wired over it.
type Store struct {
	backend   *badger.Backend
	chunkRepo storage.ChunkRepository
	jobRepo   storage.JobRepository
	blobRepo  storage.BlobRepository
	provider  ai.Provider
	pipeline  *ingest.Pipeline
	searcher  *search.Searcher
	composer  *answer.Composer
	logger    *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	policy   ingest.TenantPolicy
	inMemory bool
}

// WithAIConfig sets the AI backend configuration.
func WithAIConfig(config *ai.Config) StoreOption {
	return func(o *storeOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider, bypassing aiConfig.
// Used by tests to substitute mocks.
func WithProvider(provider ai.Provider) StoreOption {
	return func(o *storeOptions) {
		o.provider = provider
	}
}

// WithPolicy sets the tenant policy source.
// Default is ingest.DefaultStaticPolicy().
func WithPolicy(policy ingest.TenantPolicy) StoreOption {
	return func(o *storeOptions) {
		o.policy = policy
	}
}

// WithInMemory opens the storage backend without touching disk.
func WithInMemory() StoreOption {
	return func(o *storeOptions) {
		o.inMemory = true
	}
}

// NewStore opens the store at filePath and wires up all components.
func NewStore(filePath string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{
		aiConfig: ai.DefaultConfig(),
		policy:   ingest.DefaultStaticPolicy(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	jobRepo, err := badger.NewJobRepository(backend)
	if err != nil {
		chunkRepo.Close()
		backend.Close()
		return nil, err
	}

	blobRepo, err := badger.NewBlobRepository(backend)
	if err != nil {
		jobRepo.Close()
		chunkRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = newProvider(options.aiConfig)
		if err != nil {
			blobRepo.Close()
			jobRepo.Close()
			chunkRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	s := &Store{
		backend:   backend,
		chunkRepo: chunkRepo,
		jobRepo:   jobRepo,
		blobRepo:  blobRepo,
		provider:  provider,
		logger:    slog.Default(),
	}

	s.pipeline, err = ingest.NewPipeline(chunkRepo, jobRepo, blobRepo, provider, options.policy)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.searcher, err = search.NewSearcher(chunkRepo, provider)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.composer, err = answer.NewComposer(provider)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// newProvider selects the AI backend from configuration.
func newProvider(config *ai.Config) (ai.Provider, error) {
	switch config.Backend {
	case ai.BackendOpenAI:
		return openai.NewProvider(config)
	case ai.BackendGoogleAI:
		return googleai.NewProvider(context.Background(), config)
	default:
		return nil, fmt.Errorf("unknown AI backend: %s", config.Backend)
	}
}

// SubmitIngestion validates and queues one document for ingestion.
// Returns the job id; progress is observable through GetJob.
func (s *Store) SubmitIngestion(ctx context.Context, req ingest.SubmitRequest) (string, error) {
	return s.pipeline.Submit(ctx, req)
}

// GetJob returns a snapshot of the job's current state.
func (s *Store) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	return s.jobRepo.GetJob(ctx, jobID)
}

// Query retrieves the most similar passages from the tenant's
// collection and composes a grounded answer over them.
func (s *Store) Query(ctx context.Context, tenant, collection, question string, topK int) (*answer.Answer, error) {
	passages, err := s.searcher.FindSimilar(ctx, tenant, collection, question, topK)
	if err != nil {
		return nil, err
	}
	return s.composer.Compose(ctx, question, passages)
}

// ChunkRepository exposes the underlying chunk index.
func (s *Store) ChunkRepository() storage.ChunkRepository {
	return s.chunkRepo
}

// JobRepository exposes the underlying job tracker.
func (s *Store) JobRepository() storage.JobRepository {
	return s.jobRepo
}

// Close releases the pipeline and closes the provider and storage.
func (s *Store) Close() error {
	if s.pipeline != nil {
		s.pipeline.Release()
	}

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	if err := s.blobRepo.Close(); err != nil {
		s.logger.Error("error closing blob repository", "err", err)
		return err
	}
	if err := s.jobRepo.Close(); err != nil {
		s.logger.Error("error closing job repository", "err", err)
		return err
	}
	if err := s.chunkRepo.Close(); err != nil {
		s.logger.Error("error closing chunk repository", "err", err)
		return err
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
