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


package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

const (
	// MaxTopK caps how many passages one query may request. Requests
	// above it are clamped, not rejected, to bound downstream prompt
	// size.
	MaxTopK = 50

	// DefaultOversample is how many times topK candidates the index
	// scan considers before re-ranking by exact similarity.
	DefaultOversample = 10
)

// Searcher answers tenant-scoped similarity queries over indexed chunks.
type Searcher struct {
	chunkRepository storage.ChunkRepository
	embedder        ai.Embedder
	oversample      int
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithOversample sets the candidate multiplier for index scans.
// Values below 1 fall back to 1 (no oversampling).
func WithOversample(factor int) Option {
	return func(s *Searcher) error {
		if factor < 1 {
			factor = 1
		}
		s.oversample = factor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	chunkRepository storage.ChunkRepository,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		chunkRepository: chunkRepository,
		embedder:        provider.Embedder(),
		oversample:      DefaultOversample,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar returns up to topK chunks from the tenant's collection
// ranked by similarity to the query. topK is clamped to [1, MaxTopK].
// Only chunks written under the requesting tenant are ever returned.
func (s *Searcher) FindSimilar(ctx context.Context, tenant, collection, query string, topK int) ([]*core.SearchResult, error) {
	if err := core.ValidateTenant(tenant); err != nil {
		return nil, err
	}
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	topK = ClampTopK(topK)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	// Scan wider than requested, then keep the exact-similarity top.
	candidates := topK * s.oversample

	matches, err := s.chunkRepository.FindSimilar(ctx, tenant, collection, embedding, candidates)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// ClampTopK bounds a requested result count to [1, MaxTopK].
func ClampTopK(topK int) int {
	if topK < 1 {
		return 1
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}
