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


package core

import (
	"fmt"
	"strings"
)

// ValidateTenant validates a tenant identifier.
//
// Tenant ids are embedded in storage keys, so the key separator is reserved.
func ValidateTenant(tenant string) error {
	if tenant == "" {
		return ErrEmptyTenant
	}
	if strings.ContainsRune(tenant, ':') {
		return fmt.Errorf("%w: tenant %q", ErrInvalidName, tenant)
	}
	return nil
}

// ValidateCollection validates a collection name.
func ValidateCollection(collection string) error {
	if collection == "" {
		return ErrEmptyCollection
	}
	if strings.ContainsRune(collection, ':') {
		return fmt.Errorf("%w: collection %q", ErrInvalidName, collection)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Tenant and Collection must be valid key components
//   - Text must not be empty
//
// NOT validated (populated by the embedding stage):
//   - Vector (written together with the record, but dimensionality is a
//     deployment property, not a domain rule)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if err := ValidateTenant(chunk.Tenant); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	if err := ValidateCollection(chunk.Collection); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	return nil
}

// ValidateJob validates a Job according to domain rules.
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.Id == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidJob)
	}

	if err := ValidateTenant(job.Tenant); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if err := ValidateCollection(job.Collection); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if err := ValidateJobStatus(job.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	return nil
}

// ValidateJobStatus validates that a JobStatus has a valid value.
func ValidateJobStatus(status JobStatus) error {
	if status < JobQueued || status > JobFailed {
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
	return nil
}
