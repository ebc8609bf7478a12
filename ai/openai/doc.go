// Package openai implements the ai interfaces against any OpenAI-compatible
// API: OpenAI itself, Ollama, LocalAI, vLLM, and similar services.
package openai
