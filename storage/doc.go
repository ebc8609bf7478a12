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


// Package storage provides the storage abstraction layer for corpus.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic:
//
//   - ChunkRepository: the per-tenant vector index
//   - JobRepository: durable ingestion job state
//   - BlobRepository: raw uploaded files with expiry
//
// Constructors in implementation packages return these interfaces to
// enforce abstraction and enable alternative backends. The bundled
// implementation lives in storage/badger.
//
// # Tenant isolation
//
// ChunkRepository implementations tag every record with its tenant id at
// write time and verify the tenant id of every record read back at query
// time. A mismatch is reported as ErrCrossTenant, never silently dropped.
//
// # Thread safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
