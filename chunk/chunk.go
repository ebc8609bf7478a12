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

package chunk

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 500

	// DefaultOverlap is the fraction of each chunk shared with its
	// predecessor.
	DefaultOverlap = 0.2
)

var (
	ErrInvalidSize    = errors.New("chunk size must be positive")
	ErrInvalidOverlap = errors.New("chunk overlap must be in [0, 1)")
)

// Policy controls chunk boundaries. Size is measured in characters
// (runes), not bytes, so multi-byte text chunks the same as ASCII.
type Policy struct {
	Size    int
	Overlap float64
}

// DefaultPolicy returns the standard chunking policy.
func DefaultPolicy() Policy {
	return Policy{Size: DefaultSize, Overlap: DefaultOverlap}
}

func (p Policy) Validate() error {
	if p.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, p.Size)
	}
	if p.Overlap < 0 || p.Overlap >= 1 {
		return fmt.Errorf("%w: %g", ErrInvalidOverlap, p.Overlap)
	}
	return nil
}

// stride is the distance between consecutive chunk starts. Overlap is
// rounded down; a degenerate rounding that produces no forward progress
// falls back to a stride of one.
func (p Policy) stride() int {
	s := p.Size - int(float64(p.Size)*p.Overlap)
	if s < 1 {
		s = 1
	}
	return s
}

// Span is one chunk of the source text together with its starting
// rune offset, so callers can map a chunk back to where it came from.
type Span struct {
	Start int
	Text  string
}

// SplitSpans breaks text into overlapping chunks per the policy and
// reports each chunk's starting rune offset.
//
// The walk is deterministic: identical text and policy always produce
// byte-identical boundaries. Whitespace-only chunks are dropped. The
// returned slice preserves source order.
func SplitSpans(text string, policy Policy) ([]Span, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	stride := policy.stride()

	var spans []Span
	for start := 0; start < len(runes); start += stride {
		end := start + policy.Size
		if end > len(runes) {
			end = len(runes)
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			spans = append(spans, Span{Start: start, Text: piece})
		}

		if end == len(runes) {
			break
		}
	}

	return spans, nil
}

// Split breaks text into overlapping chunks per the policy, keeping
// only the chunk text.
func Split(text string, policy Policy) ([]string, error) {
	spans, err := SplitSpans(text, policy)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, nil
	}

	chunks := make([]string, len(spans))
	for i, span := range spans {
		chunks[i] = span.Text
	}
	return chunks, nil
}
