package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedderEmbed(t *testing.T) {
	t.Run("returns vector", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/embeddings", r.URL.Path)

			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "nomic-embed-text", req.Model)
			assert.Equal(t, "hello", req.Prompt)

			json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{0.1, -0.5, 1}})
		}))
		defer srv.Close()

		embedder := NewEmbedder(srv.URL, "")
		vec, err := embedder.Embed(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, -0.5, 1}, vec)
	})

	t.Run("surfaces server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}))
		defer srv.Close()

		embedder := NewEmbedder(srv.URL, "missing-model")
		_, err := embedder.Embed(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})
}

func TestLLMStream(t *testing.T) {
	streamHandler := func(fragments []string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if !req.Stream {
				http.Error(w, "expected streaming request", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/x-ndjson")
			for _, f := range fragments {
				json.NewEncoder(w).Encode(generateResponse{Response: f})
			}
			json.NewEncoder(w).Encode(generateResponse{Done: true})
		}
	}

	t.Run("emits fragments in order", func(t *testing.T) {
		srv := httptest.NewServer(streamHandler([]string{"Machine ", "learning ", "is great."}))
		defer srv.Close()

		llm := NewLLM(srv.URL, "", 0.7, 128)
		var got []string
		err := llm.Stream(context.Background(), "what is ML?", func(fragment string) error {
			got = append(got, fragment)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Machine ", "learning ", "is great."}, got)
	})

	t.Run("passes generation options", func(t *testing.T) {
		var captured generateRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(generateResponse{Done: true})
		}))
		defer srv.Close()

		llm := NewLLM(srv.URL, "llama3.2", 0.7, 2048)
		require.NoError(t, llm.Stream(context.Background(), "hi", func(string) error { return nil }))

		require.NotNil(t, captured.Options)
		assert.Equal(t, 0.7, captured.Options.Temperature)
		assert.Equal(t, 2048, captured.Options.NumPredict)
	})

	t.Run("emit error aborts the stream", func(t *testing.T) {
		srv := httptest.NewServer(streamHandler([]string{"a", "b", "c"}))
		defer srv.Close()

		llm := NewLLM(srv.URL, "", 0, 0)
		sinkErr := errors.New("client gone")
		calls := 0
		err := llm.Stream(context.Background(), "hi", func(string) error {
			calls++
			return sinkErr
		})
		assert.ErrorIs(t, err, sinkErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("context deadline cuts generation short", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flusher := w.(http.Flusher)
			fmt.Fprintln(w, `{"response":"slow"}`)
			flusher.Flush()
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		llm := NewLLM(srv.URL, "", 0, 0)
		err := llm.Stream(ctx, "hi", func(string) error { return nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("surfaces server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "out of memory", http.StatusInternalServerError)
		}))
		defer srv.Close()

		llm := NewLLM(srv.URL, "", 0, 0)
		err := llm.Stream(context.Background(), "hi", func(string) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestPing(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/tags", r.URL.Path)
			w.Write([]byte(`{"models":[]}`))
		}))
		defer srv.Close()

		assert.NoError(t, NewEmbedder(srv.URL, "").Ping(context.Background()))
		assert.NoError(t, NewLLM(srv.URL, "", 0, 0).Ping(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(nil)
		srv.Close()

		assert.Error(t, NewEmbedder(srv.URL, "").Ping(context.Background()))
	})
}
