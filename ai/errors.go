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


package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a provider failure for retry decisions.
type ErrorKind int

const (
	// KindRateLimited means the provider throttled the request. Transient.
	KindRateLimited ErrorKind = iota + 1
	// KindUnavailable means the provider could not be reached or answered
	// with a server error or timeout. Transient.
	KindUnavailable
	// KindInvalidInput means the provider rejected the request content.
	// Permanent; retrying the same input cannot succeed.
	KindInvalidInput
)

// String returns the wire name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "provider_unavailable"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// ProviderError is a typed failure from an embedding or generation backend.
type ProviderError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrInvalidMaxAttempts is returned when a retry policy has no attempts.
var ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

// IsTransient reports whether err is a provider failure worth retrying.
// Only rate limiting and unavailability are transient; everything else,
// including malformed input, is permanent.
func IsTransient(err error) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Kind == KindRateLimited || perr.Kind == KindUnavailable
}

// KindOf extracts the error kind from err, or 0 if err carries none.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

// Classify wraps a raw backend error in a ProviderError.
//
// Backend SDKs surface HTTP failures as opaque errors, so classification
// sniffs the message for status codes. Timeouts and cancellations count as
// unavailability per the retry contract. Unknown errors default to
// unavailable: retrying an unknown failure is bounded anyway, while not
// retrying a transient one fails the whole job.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return err
	}

	kind := KindUnavailable
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindUnavailable
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		kind = KindRateLimited
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid") || strings.Contains(msg, "too long"):
		kind = KindInvalidInput
	}

	return &ProviderError{Kind: kind, Op: op, Err: err}
}
