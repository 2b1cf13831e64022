// Package index stores embedded document chunks and answers top-k cosine
// similarity queries over them. It is the only mutable state shared between
// client sessions; every implementation must keep concurrent inserts and
// searches consistent (a search never observes part of a document).
package index

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateDocument reports that a document with the same content
	// fingerprint is already indexed. Callers map it to a benign
	// "duplicate" outcome.
	ErrDuplicateDocument = errors.New("document already indexed")

	// ErrDuplicateChunk reports a chunk id collision. Inserts fail rather
	// than silently overwrite.
	ErrDuplicateChunk = errors.New("duplicate chunk id")
)

// Chunk is the atomic retrieval unit: one overlapping window of a source
// document together with its embedding. The embedding is computed once at
// insertion time and never mutated.
type Chunk struct {
	ID          string
	Fingerprint string // content fingerprint of the source document
	Source      string // original filename, used to label retrieved context
	Position    int
	Content     string
	Embedding   []float32
}

// Document groups the chunks of a single upload under its fingerprint.
type Document struct {
	Fingerprint string
	Source      string
	Chunks      []Chunk
}

// SearchResult pairs a chunk with its similarity to the query embedding.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// Index is the shared vector store.
//
// InsertDocument is at-most-once per fingerprint: when two concurrent inserts
// race on the same fingerprint exactly one succeeds and the other fails with
// ErrDuplicateDocument. Search returns results in descending similarity
// order, ties broken by insertion order; an empty index yields an empty
// slice, not an error.
type Index interface {
	InsertDocument(ctx context.Context, doc Document) (int, error)
	Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error)
	HasDocument(ctx context.Context, fingerprint string) (bool, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
