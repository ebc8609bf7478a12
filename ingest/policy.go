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
	"time"

	"github.com/poiesic/corpus/chunk"
)

// TenantPolicy supplies per-tenant ingestion limits. Implementations
// are typically backed by a plan or billing system; the pipeline only
// consults them, it never caches results across jobs.
type TenantPolicy interface {
	// ConcurrencyLimit returns the maximum number of jobs the tenant
	// may have executing at once. Values below 1 are treated as 1.
	ConcurrencyLimit(tenant string) int

	// ChunkPolicy returns the chunking configuration for the tenant.
	ChunkPolicy(tenant string) chunk.Policy

	// TTL returns how long the tenant's jobs, blobs, and indexed
	// chunks are retained. Zero means no expiry.
	TTL(tenant string) time.Duration

	// MaxFileSize returns the largest accepted upload in bytes.
	// Zero means unlimited.
	MaxFileSize(tenant string) int64
}

// StaticPolicy applies the same limits to every tenant.
type StaticPolicy struct {
	Concurrency int
	Chunking    chunk.Policy
	Retention   time.Duration
	MaxBytes    int64
}

var _ TenantPolicy = (*StaticPolicy)(nil)

// DefaultStaticPolicy returns limits suitable for development and tests.
func DefaultStaticPolicy() *StaticPolicy {
	return &StaticPolicy{
		Concurrency: 2,
		Chunking:    chunk.DefaultPolicy(),
		Retention:   24 * time.Hour,
		MaxBytes:    10 << 20,
	}
}

func (p *StaticPolicy) ConcurrencyLimit(tenant string) int {
	return p.Concurrency
}

func (p *StaticPolicy) ChunkPolicy(tenant string) chunk.Policy {
	return p.Chunking
}

func (p *StaticPolicy) TTL(tenant string) time.Duration {
	return p.Retention
}

func (p *StaticPolicy) MaxFileSize(tenant string) int64 {
	return p.MaxBytes
}
