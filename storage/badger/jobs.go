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
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (storage.JobRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &JobRepository{backend: backend}, nil
}

// Close releases resources. The backend is owned by the caller.
func (r *JobRepository) Close() error {
	return nil
}

// CreateJob persists a new job record.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.Job) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.Id)

		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: job %s", storage.ErrDuplicateKey, job.Id)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if job.CreatedAt.IsZero() {
			job.CreatedAt = time.Now().UTC()
		}
		if job.UpdatedAt.IsZero() {
			job.UpdatedAt = job.CreatedAt
		}

		if err := setWithTTL(tx, key, storage.MarshalJob(job), ttlUntil(job.ExpiresAt)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a job snapshot by id.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*core.Job, error) {
	var job *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		job, err = readJob(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJob applies mutate to the stored job inside a write transaction.
// Badger transactions give per-key atomicity: two concurrent updates of
// the same job conflict and one retries at the caller's level, so no
// update is ever lost or applied to a stale snapshot.
func (r *JobRepository) UpdateJob(ctx context.Context, id string, mutate func(job *core.Job) error) (*core.Job, error) {
	var job *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		job, err = readJob(tx, id)
		if err != nil {
			return err
		}

		if err := mutate(job); err != nil {
			return err
		}

		if err := setWithTTL(tx, makeJobKey(id), storage.MarshalJob(job), ttlUntil(job.ExpiresAt)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func readJob(tx *badger.Txn, id string) (*core.Job, error) {
	item, err := tx.Get(makeJobKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: job %s", storage.ErrNotFound, id)
		}
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var err error
		job, err = storage.UnmarshalJob(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
