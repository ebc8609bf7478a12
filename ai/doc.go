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


// Package ai provides abstractions for the AI services used by corpus.
//
// This package defines interfaces for text embeddings and answer
// generation, a typed error taxonomy for provider failures, and a bounded
// retry helper for the transient kinds. It follows the dependency
// inversion principle: the pipeline and retrieval engine depend on these
// abstractions, never on a concrete backend.
//
// # Interfaces
//
//   - Embedder: generates vector embeddings from text
//   - Generator: produces grounded answer text from a prompt
//   - Provider: aggregates both for initialization and lifecycle
//
// # Implementation packages
//
//   - ai/openai: any OpenAI-compatible API (Ollama, vLLM, OpenAI itself)
//   - ai/googleai: Google Gemini
//   - ai/mock: test doubles for unit testing without external services
//
// The backend is selected by Config.Backend at process start.
//
// # Error taxonomy
//
// Backends wrap raw SDK errors in ProviderError with a Kind of
// KindRateLimited, KindUnavailable, or KindInvalidInput. The first two are
// transient and retried by RetryTransient with bounded exponential
// backoff; invalid input is permanent and fails the caller immediately.
//
// # Constructor return type pattern
//
// Public constructors (openai.NewProvider, googleai.NewProvider) return
// interface types to enforce abstraction. Mock constructors return
// concrete types so tests can inject behavior and assert call counts.
package ai
