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


package badger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
//
// Records are stored under tenant-and-collection prefixed keys with a TTL
// derived from the record's expiry horizon, so a tenant's chunks vanish
// together when the tenant expires.
type ChunkRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (storage.ChunkRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &ChunkRepository{
		backend: backend,
		logger:  slog.Default().With("component", "chunk-repository"),
	}, nil
}

// Close releases resources. The backend is owned by the caller.
func (r *ChunkRepository) Close() error {
	return nil
}

// AddChunks appends chunk records. Each record is validated and tagged
// with its tenant id before the write; the whole batch is written in one
// transaction so no partially-written record is ever visible to search.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if chunk.Id == 0 {
				chunk.Id = core.ChunkID(chunk.DocumentID, chunk.Ordinal, chunk.Text)
			}
			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = time.Now().UTC()
			}

			key := makeChunkKey(chunk.Tenant, chunk.Collection, chunk.DocumentID, chunk.Ordinal)
			value := storage.MarshalChunk(chunk)
			if err := setWithTTL(tx, key, value, ttlUntil(chunk.ExpiresAt)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindSimilar scans the tenant collection and ranks chunks by cosine
// similarity to the query vector. Vectors are expected to be normalized,
// so the dot product is the cosine similarity.
//
// Every record read back is checked against the requesting tenant. The
// key prefix already scopes the scan, but the check guards against a
// mislabeled record reaching a caller: a mismatch aborts the query.
func (r *ChunkRepository) FindSimilar(ctx context.Context, tenant, collection string, vector []float32, limit int) ([]*core.SearchResult, error) {
	if err := core.ValidateTenant(tenant); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}
	if err := core.ValidateCollection(collection); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}
	if limit <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScanPrefix(tenant, collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}

			if chunk.Tenant != tenant {
				r.logger.Error("security: record tenant does not match requesting tenant",
					"requestingTenant", tenant, "recordTenant", chunk.Tenant, "chunkID", chunk.Id)
				return fmt.Errorf("%w: chunk %d", storage.ErrCrossTenant, chunk.Id)
			}

			// Skip records without embeddings
			if len(chunk.Vector) == 0 {
				continue
			}

			// A dimension mismatch means the record was embedded with a
			// different model than the query; its score would be
			// meaningless, so it never ranks.
			if len(chunk.Vector) != len(vector) {
				r.logger.Warn("skipping chunk with mismatched vector dimensions",
					"chunkID", chunk.Id, "recordDims", len(chunk.Vector), "queryDims", len(vector))
				continue
			}

			results = append(results, &core.SearchResult{
				Chunk: chunk,
				Score: dotProduct(vector, chunk.Vector),
			})
		}

		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending; ties broken by ordinal ascending so
	// ranking is deterministic.
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return a.Chunk.Ordinal - b.Chunk.Ordinal
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// CountChunks counts the chunks stored for one document.
func (r *ChunkRepository) CountChunks(ctx context.Context, tenant, collection, documentID string) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocumentPrefix(tenant, collection, documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// dotProduct calculates the dot product of two equal-length vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
