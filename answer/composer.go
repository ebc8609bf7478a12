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


package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
)

// InsufficientInformation is returned as the answer text when no
// indexed passage can ground a response.
const InsufficientInformation = "No relevant information found."

// groundingPrompt forbids the model from answering outside the
// retrieved passages. Ungrounded answers are the primary failure mode
// of retrieval systems, so this contract is enforced in the prompt and
// backed by the empty-passage short circuit in Compose.
const groundingPrompt = `You are an AI assistant.
Answer the question using ONLY the context below.
If the context does not contain the information needed to answer, reply exactly: %s

Context:
%s

Question:
%s`

// Answer is a grounded response plus the passages it was grounded on.
// Passages are returned exactly as they were surfaced to generation;
// there is no re-ranking between grounding and citation.
type Answer struct {
	Text     string
	Passages []*core.SearchResult
}

// Composer turns ranked passages into a grounded natural-language answer.
type Composer struct {
	generator ai.Generator
	logger    *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewComposer creates a new answer composer.
func NewComposer(provider ai.Provider, opts ...Option) (*Composer, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	c := &Composer{
		generator: provider.Generator(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Compose generates an answer to the query grounded in the given
// passages. With no passages it returns InsufficientInformation without
// calling the generation backend. A generation failure is returned as
// an error; raw passages are never passed off as an answer.
func (c *Composer) Compose(ctx context.Context, query string, passages []*core.SearchResult) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	if len(passages) == 0 {
		return &Answer{Text: InsufficientInformation}, nil
	}

	var sb strings.Builder
	for _, passage := range passages {
		sb.WriteString("- ")
		sb.WriteString(passage.Chunk.Text)
		sb.WriteString("\n\n")
	}

	prompt := fmt.Sprintf(groundingPrompt, InsufficientInformation, sb.String(), query)

	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		c.logger.Error("error generating answer", "err", err)
		return nil, err
	}

	return &Answer{
		Text:     strings.TrimSpace(text),
		Passages: passages,
	}, nil
}
