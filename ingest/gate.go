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
	"sync"
)

// admissionGate bounds the number of concurrently executing jobs per
// tenant. Jobs past the limit block in Acquire and keep reporting
// their queued status until a slot frees.
//
// The semaphore capacity is fixed at first use per tenant; a policy
// change takes effect for tenants that have not run a job yet.
type admissionGate struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	limit func(tenant string) int
}

func newAdmissionGate(limit func(tenant string) int) *admissionGate {
	return &admissionGate{
		slots: make(map[string]chan struct{}),
		limit: limit,
	}
}

func (g *admissionGate) semaphore(tenant string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	sem, ok := g.slots[tenant]
	if !ok {
		n := g.limit(tenant)
		if n < 1 {
			n = 1
		}
		sem = make(chan struct{}, n)
		g.slots[tenant] = sem
	}
	return sem
}

// Acquire blocks until the tenant has a free execution slot or the
// context is cancelled.
func (g *admissionGate) Acquire(ctx context.Context, tenant string) error {
	select {
	case g.semaphore(tenant) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot previously obtained with Acquire.
func (g *admissionGate) Release(tenant string) {
	select {
	case <-g.semaphore(tenant):
	default:
		// Release without Acquire is a programming error; dropping it
		// is safer than blocking.
	}
}
