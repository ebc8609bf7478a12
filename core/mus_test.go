package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMUS_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	original := Chunk{
		Id:         ChunkID("doc-1", 3, "some text"),
		Tenant:     "tenant-1",
		Collection: "docs",
		DocumentID: "doc-1",
		Ordinal:    3,
		Text:       "some text with unicode: héllo wörld",
		Vector:     []float32{0.1, -0.5, 0.25},
		Metadata:   map[string]string{"page": "2"},
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}

	bs := make([]byte, ChunkMUS.Size(original))
	n := ChunkMUS.Marshal(original, bs)
	assert.Equal(t, len(bs), n)

	decoded, n, err := ChunkMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)
	assert.Equal(t, original, decoded)
}

func TestChunkMUS_RoundTrip_SparseFields(t *testing.T) {
	// Vector, metadata, and expiry unset: the shape of a chunk between
	// chunking and embedding.
	original := Chunk{
		Tenant:     "tenant-1",
		Collection: "docs",
		DocumentID: "doc-1",
		Text:       "text",
	}

	bs := make([]byte, ChunkMUS.Size(original))
	ChunkMUS.Marshal(original, bs)

	decoded, _, err := ChunkMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, original.Text, decoded.Text)
	assert.Empty(t, decoded.Vector)
	assert.Empty(t, decoded.Metadata)
	assert.True(t, decoded.CreatedAt.IsZero())
	assert.True(t, decoded.ExpiresAt.IsZero())
}

func TestJobMUS_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	original := Job{
		Id:          "job-1",
		Tenant:      "tenant-1",
		Collection:  "docs",
		DocumentID:  "doc-1",
		BlobRef:     "blob-1",
		Status:      JobCompleted,
		Progress:    100,
		Result:      JobResult{PagesProcessed: 2, ChunksCreated: 7, EmbeddingsGenerated: 7},
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: now,
		ExpiresAt:   now.Add(time.Hour),
	}

	bs := make([]byte, JobMUS.Size(original))
	n := JobMUS.Marshal(original, bs)
	assert.Equal(t, len(bs), n)

	decoded, n, err := JobMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)
	assert.Equal(t, original, decoded)
}

func TestJobMUS_RoundTrip_FailedWithError(t *testing.T) {
	original := Job{
		Id:         "job-2",
		Tenant:     "tenant-1",
		Collection: "docs",
		Status:     JobFailed,
		Error:      &JobError{Kind: "corrupt_input", Message: "parse failed at page 3"},
	}

	bs := make([]byte, JobMUS.Size(original))
	JobMUS.Marshal(original, bs)

	decoded, _, err := JobMUS.Unmarshal(bs)
	require.NoError(t, err)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, "corrupt_input", decoded.Error.Kind)
	assert.Equal(t, "parse failed at page 3", decoded.Error.Message)
	// A job that never completed has no completion timestamp
	assert.True(t, decoded.CompletedAt.IsZero())
}

func TestJobMUS_RoundTrip_NoError(t *testing.T) {
	original := Job{
		Id:         "job-3",
		Tenant:     "tenant-1",
		Collection: "docs",
		Status:     JobQueued,
	}

	bs := make([]byte, JobMUS.Size(original))
	JobMUS.Marshal(original, bs)

	decoded, _, err := JobMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Nil(t, decoded.Error)
	assert.Equal(t, JobQueued, decoded.Status)
}
