package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualrag/internal/config"
)

// Boots the whole server on a memory index and waits for it to answer.
func TestServerComesUp(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	cfg := &config.Config{
		Addr:                 addr,
		SharedSecret:         "secret",
		IndexBackend:         "memory",
		ChunkSize:            500,
		ChunkOverlap:         50,
		TopKResults:          3,
		MaxConversationTurns: 5,
		EmbedProvider:        "ollama",
		LLMModel:             "llama3.2",
		LLMTimeoutSeconds:    5,
		MaxUploadSizeMB:      50,
		QueryLogPath:         t.TempDir() + "/query.log",
	}
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, slog.New(slog.DiscardHandler)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server never became healthy")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
