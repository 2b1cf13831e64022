// Package retrieval answers chat queries with context retrieved from the
// vector index, streaming the model's tokens to the caller.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"virtualrag/internal/index"
	"virtualrag/internal/middleware"
)

var ErrInferenceTimeout = errors.New("model response timed out")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]index.SearchResult, error)
}

type LLM interface {
	Stream(ctx context.Context, prompt string, emit func(fragment string) error) error
}

type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]int, error)
}

// Sink receives the response as it is produced. Retrieval fires exactly
// once, before any Token call, even when nothing was retrieved.
type Sink interface {
	Retrieval(count int, sources []string) error
	Token(text string) error
}

type Service struct {
	embedder Embedder
	searcher Searcher
	llm      LLM
	reranker Reranker
	logger   *QueryLogger
	slogger  *slog.Logger

	topK    int
	timeout time.Duration
}

func NewService(e Embedder, s Searcher, llm LLM, r Reranker, l *QueryLogger, slogger *slog.Logger, topK int, timeout time.Duration) *Service {
	return &Service{
		embedder: e,
		searcher: s,
		llm:      llm,
		reranker: r,
		logger:   l,
		slogger:  slogger,
		topK:     topK,
		timeout:  timeout,
	}
}

// Respond retrieves context for query, streams a grounded answer into sink,
// and returns the full answer text. The conversation history is only
// extended when the stream completes cleanly, so a failed generation never
// pollutes later prompts.
func (s *Service) Respond(ctx context.Context, history *History, query string, sink Sink) (string, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.searcher.Search(ctx, vec, s.topK)
	if err != nil {
		return "", fmt.Errorf("searching index: %w", err)
	}

	if s.reranker != nil && len(results) > 0 {
		results, err = s.rerank(ctx, query, results)
		if err != nil {
			return "", fmt.Errorf("reranking results: %w", err)
		}
	}

	sources := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Chunk.Source)
	}
	if err := sink.Retrieval(len(results), sources); err != nil {
		return "", err
	}

	prompt := buildPrompt(history.Turns(), results, query)

	streamCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var answer strings.Builder
	err = s.llm.Stream(streamCtx, prompt, func(fragment string) error {
		answer.WriteString(fragment)
		return sink.Token(fragment)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", ErrInferenceTimeout
		}
		return "", fmt.Errorf("streaming completion: %w", err)
	}

	history.Add(query, answer.String())

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(results),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	s.slogger.InfoContext(ctx, "query answered",
		"retrieved", len(results), "answer_length", answer.Len(), "latency_ms", time.Since(start).Milliseconds())

	return answer.String(), nil
}

func (s *Service) rerank(ctx context.Context, query string, results []index.SearchResult) ([]index.SearchResult, error) {
	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.Chunk.Content
	}

	indices, err := s.reranker.Rerank(ctx, query, contents)
	if err != nil {
		return nil, err
	}

	reranked := make([]index.SearchResult, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(results) {
			reranked = append(reranked, results[idx])
		}
	}
	return reranked, nil
}
