package hf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

func TestRecognize_ParsesAggregatedEntities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/models/dslim/bert-base-NER", r.URL.Path)
		w.Write([]byte(`[
			{"entity_group": "PER", "word": "Barack Obama", "score": 0.95},
			{"entity_group": "LOC", "word": "Washington", "score": 0.88}
		]`))
	}))
	defer server.Close()

	recognizer := NewRecognizer("test-key", WithEndpoint(server.URL))

	entities, err := recognizer.Recognize(context.Background(), "Barack Obama visited Washington.")
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, "Barack Obama", entities[0].Word)
	assert.Equal(t, "PER", entities[0].EntityType)
	assert.Equal(t, 0.95, entities[0].Score)
}

func TestRecognize_ParsesBIOTaggedEntities(t *testing.T) {
	// aggregationなしのモデルは entity フィールドにBIOタグを返す
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"entity": "B-PER", "word": "Barack", "score": 0.9}]`))
	}))
	defer server.Close()

	recognizer := NewRecognizer("", WithEndpoint(server.URL))

	entities, err := recognizer.Recognize(context.Background(), "Barack")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "B-PER", entities[0].EntityType)
}

func TestRecognize_ParsesNestedBatchFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[[{"entity_group": "ORG", "word": "OpenAI", "score": 0.99}]]`))
	}))
	defer server.Close()

	recognizer := NewRecognizer("", WithEndpoint(server.URL))

	entities, err := recognizer.Recognize(context.Background(), "OpenAI")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "OpenAI", entities[0].Word)
}

func TestRecognize_NonOKStatusIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "model loading"}`))
	}))
	defer server.Close()

	recognizer := NewRecognizer("", WithEndpoint(server.URL))

	_, err := recognizer.Recognize(context.Background(), "text")
	require.Error(t, err)

	var providerErr *indexing.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "huggingface", providerErr.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, providerErr.StatusCode)
}

func TestRecognize_UnparsableResponseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`"unexpected"`))
	}))
	defer server.Close()

	recognizer := NewRecognizer("", WithEndpoint(server.URL))

	_, err := recognizer.Recognize(context.Background(), "text")
	assert.Error(t, err)
}
