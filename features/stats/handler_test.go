package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualrag/internal/index"
)

type fakeSessions int

func (f fakeSessions) Count() int { return int(f) }

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

type failingIndex struct {
	index.Index
}

func (failingIndex) Stats(ctx context.Context) (index.Stats, error) {
	return index.Stats{}, errors.New("backend down")
}

func seedIndex(t *testing.T) index.Index {
	t.Helper()
	idx := index.NewMemory()
	_, err := idx.InsertDocument(context.Background(), index.Document{
		Fingerprint: "fp1",
		Source:      "a.txt",
		Chunks: []index.Chunk{
			{ID: "fp1_0", Position: 0, Content: "one", Embedding: []float32{1, 0}},
			{ID: "fp1_1", Position: 1, Content: "two", Embedding: []float32{0, 1}},
		},
	})
	require.NoError(t, err)
	return idx
}

func TestStatsGet(t *testing.T) {
	t.Run("reports counters and availability", func(t *testing.T) {
		h := NewHandler(seedIndex(t), fakeSessions(3), &fakePinger{}, "llama3.2")

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Documents)
		assert.Equal(t, 2, resp.Chunks)
		assert.Equal(t, 3, resp.ActiveSessions)
		assert.Equal(t, "llama3.2", resp.LLMModel)
		assert.True(t, resp.LLMAvailable)
	})

	t.Run("unreachable model reports unavailable", func(t *testing.T) {
		h := NewHandler(seedIndex(t), fakeSessions(0), &fakePinger{err: errors.New("refused")}, "llama3.2")

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.LLMAvailable)
	})

	t.Run("index failure is a structured error", func(t *testing.T) {
		h := NewHandler(failingIndex{}, fakeSessions(0), nil, "llama3.2")

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		errObj, ok := resp["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "STATS_ERROR", errObj["code"])
		assert.Contains(t, errObj["message"], "backend down")
	})
}
