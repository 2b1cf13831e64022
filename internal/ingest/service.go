// Package ingest turns extracted document text into indexed, embedded
// chunks, with content-fingerprint deduplication.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"virtualrag/internal/index"
	"virtualrag/internal/text"
)

// Status is the client-visible outcome of an upload.
type Status string

const (
	StatusAdded     Status = "added"
	StatusDuplicate Status = "duplicate"
	StatusError     Status = "error"
)

var ErrEmptyDocument = errors.New("document contains no extractable text")

type Result struct {
	Status     Status
	ChunkCount int
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Service struct {
	index    index.Index
	embedder Embedder
	logger   *slog.Logger

	chunkSize    int
	chunkOverlap int
}

func NewService(idx index.Index, embedder Embedder, logger *slog.Logger, chunkSize, chunkOverlap int) *Service {
	return &Service{
		index:        idx,
		embedder:     embedder,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Fingerprint identifies a document by its exact extracted text. Two files
// with identical content dedup to one document regardless of filename.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Ingest chunks, embeds, and indexes a document. Re-uploads of known
// content return StatusDuplicate without touching the embedder. Losing an
// insert race against a concurrent identical upload also reports duplicate.
func (s *Service) Ingest(ctx context.Context, filename, raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{Status: StatusError}, ErrEmptyDocument
	}

	fingerprint := Fingerprint(raw)
	log := s.logger.With("source", filename, "fingerprint", fingerprint)

	known, err := s.index.HasDocument(ctx, fingerprint)
	if err != nil {
		return Result{Status: StatusError}, fmt.Errorf("checking for duplicate: %w", err)
	}
	if known {
		log.InfoContext(ctx, "document already indexed")
		return Result{Status: StatusDuplicate}, nil
	}

	chunks, err := text.Chunks(raw, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return Result{Status: StatusError}, fmt.Errorf("chunking document: %w", err)
	}

	doc := index.Document{
		Fingerprint: fingerprint,
		Source:      filename,
	}
	for i, content := range chunks {
		embedding, err := s.embedder.Embed(ctx, content)
		if err != nil {
			return Result{Status: StatusError}, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		doc.Chunks = append(doc.Chunks, index.Chunk{
			ID:          fmt.Sprintf("%s_%d", fingerprint, i),
			Fingerprint: fingerprint,
			Source:      filename,
			Position:    i,
			Content:     content,
			Embedding:   embedding,
		})
	}

	inserted, err := s.index.InsertDocument(ctx, doc)
	if errors.Is(err, index.ErrDuplicateDocument) || errors.Is(err, index.ErrDuplicateChunk) {
		log.InfoContext(ctx, "lost insert race to concurrent upload")
		return Result{Status: StatusDuplicate}, nil
	}
	if err != nil {
		return Result{Status: StatusError}, fmt.Errorf("indexing document: %w", err)
	}

	log.InfoContext(ctx, "document indexed", "chunks", inserted)
	return Result{Status: StatusAdded, ChunkCount: inserted}, nil
}
