// Package googleai implements the ai interfaces against Google Gemini
// models for both embeddings and answer generation.
package googleai
