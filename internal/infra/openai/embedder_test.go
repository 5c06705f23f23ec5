package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
	assert.Equal(t, 100, embedder.MaxBatchSize())
}

func TestEmbed_WithoutAPIKeyReturnsUnavailable(t *testing.T) {
	embedder := NewEmbedder("")

	_, err := embedder.Embed(context.Background(), "some text")
	assert.ErrorIs(t, err, indexing.ErrEmbeddingUnavailable)
}

func TestBatchEmbed_RejectsOversizedBatch(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	texts := make([]string, 101)
	for i := range texts {
		texts[i] = "text"
	}

	_, err := embedder.BatchEmbed(context.Background(), texts)
	assert.Error(t, err)
}

func TestBatchEmbed_RejectsEmptyInput(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	_, err := embedder.BatchEmbed(context.Background(), nil)
	assert.Error(t, err)
}
