package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, Policy{Size: 500, Overlap: 0.2}.Validate())
	assert.NoError(t, Policy{Size: 1, Overlap: 0}.Validate())

	require.ErrorIs(t, Policy{Size: 0, Overlap: 0.2}.Validate(), ErrInvalidSize)
	require.ErrorIs(t, Policy{Size: -5, Overlap: 0.2}.Validate(), ErrInvalidSize)
	require.ErrorIs(t, Policy{Size: 500, Overlap: 1.0}.Validate(), ErrInvalidOverlap)
	require.ErrorIs(t, Policy{Size: 500, Overlap: -0.1}.Validate(), ErrInvalidOverlap)
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	policy := Policy{Size: 400, Overlap: 0.2}

	first, err := Split(text, policy)
	require.NoError(t, err)
	second, err := Split(text, policy)
	require.NoError(t, err)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestSplit_SizeAndOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 100) // 1000 chars
	policy := Policy{Size: 400, Overlap: 0.2}

	chunks, err := Split(text, policy)
	require.NoError(t, err)

	// stride = 400 - 80 = 320: windows start at 0, 320, 640
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 400, "chunk %d too long", i)
	}

	// Consecutive chunks share the overlap region
	tail := chunks[0][len(chunks[0])-80:]
	assert.Equal(t, tail, chunks[1][:80])
}

func TestSplit_NoOverlap(t *testing.T) {
	text := strings.Repeat("x", 1000)

	chunks, err := Split(text, Policy{Size: 250, Overlap: 0})
	require.NoError(t, err)
	assert.Len(t, chunks, 4)
}

func TestSplit_ShortText(t *testing.T) {
	chunks, err := Split("short", Policy{Size: 400, Overlap: 0.2})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0])
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	policy := DefaultPolicy()

	chunks, err := Split("", policy)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = Split("   \n\t  ", policy)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_WhitespaceOnlyTrailingChunkDropped(t *testing.T) {
	// 10 content chars then spaces: the second window is all whitespace
	text := "abcdefghij" + strings.Repeat(" ", 15)

	chunks, err := Split(text, Policy{Size: 10, Overlap: 0})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "abcdefghij", chunks[0])
}

func TestSplit_MultiByteRunes(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 50)

	chunks, err := Split(text, Policy{Size: 100, Overlap: 0.1})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100, "chunk %d exceeds rune budget", i)
	}
	// Boundaries never split a rune
	for _, c := range chunks {
		assert.True(t, strings.ToValidUTF8(c, "") == c)
	}
}

func TestSplitSpans_Offsets(t *testing.T) {
	text := strings.Repeat("abcdefghij", 100) // 1000 chars
	policy := Policy{Size: 400, Overlap: 0.2}

	spans, err := SplitSpans(text, policy)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	// Starts advance by the stride; each span reads back from its offset
	runes := []rune(text)
	for i, span := range spans {
		assert.Equal(t, i*320, span.Start)
		assert.Equal(t, string(runes[span.Start:span.Start+len([]rune(span.Text))]), span.Text)
	}
}

func TestSplitSpans_MultiByteOffsets(t *testing.T) {
	text := strings.Repeat("héllo ", 20) // 120 runes, 140 bytes

	spans, err := SplitSpans(text, Policy{Size: 50, Overlap: 0})
	require.NoError(t, err)
	require.Len(t, spans, 3)

	// Offsets are rune positions, not byte positions
	runes := []rune(text)
	for _, span := range spans {
		assert.Equal(t, string(runes[span.Start:span.Start+len([]rune(span.Text))]), span.Text)
	}
	assert.Equal(t, 50, spans[1].Start)
	assert.Equal(t, 100, spans[2].Start)
}

func TestSplit_InvalidPolicy(t *testing.T) {
	_, err := Split("text", Policy{Size: 0})
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestSplit_DegenerateStride(t *testing.T) {
	// Overlap rounding could stall the walk; stride clamps to 1
	chunks, err := Split("abcdef", Policy{Size: 1, Overlap: 0.9})
	require.NoError(t, err)
	assert.Len(t, chunks, 6)
}
