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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrEmptyText indicates the chunk Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyTenant indicates the tenant id is empty.
	ErrEmptyTenant = errors.New("tenant cannot be empty")

	// ErrEmptyCollection indicates the collection name is empty.
	ErrEmptyCollection = errors.New("collection cannot be empty")

	// ErrInvalidName indicates a tenant or collection name contains
	// characters reserved by the storage key scheme.
	ErrInvalidName = errors.New("name contains reserved characters")

	// ErrInvalidStatus indicates an invalid JobStatus value.
	ErrInvalidStatus = errors.New("invalid job status")

	// ErrStatusRegression indicates an attempt to move a job backwards
	// through its lifecycle or out of a terminal state.
	ErrStatusRegression = errors.New("job status cannot regress")
)
