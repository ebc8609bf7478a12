package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passages(texts ...string) []*core.SearchResult {
	results := make([]*core.SearchResult, len(texts))
	for i, text := range texts {
		results[i] = &core.SearchResult{
			Chunk: &core.Chunk{
				Tenant:     "tenant-1",
				Collection: "docs",
				DocumentID: "doc-1",
				Ordinal:    i,
				Text:       text,
			},
			Score: 1.0 - float32(i)*0.1,
		}
	}
	return results
}

func TestNewComposer_Validation(t *testing.T) {
	_, err := NewComposer(nil)
	assert.Equal(t, ErrAIProviderRequired, err)
}

func TestComposer_Compose(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "Paris is the capital of France.", nil
	}

	composer, err := NewComposer(provider)
	require.NoError(t, err)

	retrieved := passages("the capital of France is Paris", "France is in Europe")
	result, err := composer.Compose(context.Background(), "What is the capital of France?", retrieved)
	require.NoError(t, err)

	assert.Equal(t, "Paris is the capital of France.", result.Text)
	// Provenance is exactly what was surfaced to generation
	assert.Equal(t, retrieved, result.Passages)
}

func TestComposer_PromptContainsPassagesAndContract(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	generator := provider.GetMockGenerator()

	composer, err := NewComposer(provider)
	require.NoError(t, err)

	_, err = composer.Compose(context.Background(), "what color is the sky?",
		passages("the sky is blue", "grass is green"))
	require.NoError(t, err)

	prompt := generator.LastPrompt()
	assert.Contains(t, prompt, "ONLY the context below")
	assert.Contains(t, prompt, InsufficientInformation)
	assert.Contains(t, prompt, "the sky is blue")
	assert.Contains(t, prompt, "grass is green")
	assert.Contains(t, prompt, "what color is the sky?")
}

func TestComposer_NoPassages(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)

	composer, err := NewComposer(provider)
	require.NoError(t, err)

	result, err := composer.Compose(context.Background(), "anything?", nil)
	require.NoError(t, err)

	assert.Equal(t, InsufficientInformation, result.Text)
	assert.Empty(t, result.Passages)

	// The generation backend is never consulted without grounding material
	assert.Zero(t, provider.GetMockGenerator().CallCount())
}

func TestComposer_GenerationFailureFailsFast(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model overloaded")
	}

	composer, err := NewComposer(provider)
	require.NoError(t, err)

	// No fallback to raw passages: the error propagates
	_, err = composer.Compose(context.Background(), "question?", passages("some passage"))
	require.Error(t, err)
}

func TestComposer_EmptyQuery(t *testing.T) {
	composer, err := NewComposer(mock.NewMockProvider())
	require.NoError(t, err)

	_, err = composer.Compose(context.Background(), "  ", passages("text"))
	require.ErrorIs(t, err, ErrEmptyQuery)
}
