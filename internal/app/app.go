// Package app wires configuration, adapters, and features into a running
// server.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"virtualrag/features/chat"
	"virtualrag/features/stats"
	"virtualrag/internal/config"
	"virtualrag/internal/extract"
	"virtualrag/internal/ingest"
	"virtualrag/internal/middleware"
	"virtualrag/internal/retrieval"
)

type App struct {
	Handler http.Handler
	Manager *chat.Manager
	Index   interface{ Close() error }

	addr   string
	logger *slog.Logger
}

func New(cfg *config.Config, deps *Dependencies, logger *slog.Logger) *App {
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		logger.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	ingestor := ingest.NewService(deps.Index, deps.Embedder, logger, cfg.ChunkSize, cfg.ChunkOverlap)
	responder := retrieval.NewService(deps.Embedder, deps.Index, deps.LLM, deps.Reranker,
		queryLogger, logger, cfg.TopKResults, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)

	reader := extract.NewFileReader(int(cfg.MaxUploadSizeMB))
	manager := chat.NewManager(logger)
	chatHandler := chat.NewHandler(cfg.SharedSecret, reader, ingestor, responder, manager,
		cfg.MaxConversationTurns, logger)
	statsHandler := stats.NewHandler(deps.Index, manager, deps.LLM, cfg.LLMModel)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.CorrelationID(chatHandler))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.Get)))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler: mux,
		Manager: manager,
		Index:   deps.Index,
		addr:    cfg.Addr,
		logger:  logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully and closes
// the index.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.addr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		a.logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", "error", err)
		}
	}()

	a.logger.Info("server starting", "addr", a.addr)
	err := srv.ListenAndServe()
	if closeErr := a.Index.Close(); closeErr != nil {
		a.logger.Error("failed to close index", "error", closeErr)
	}
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}
