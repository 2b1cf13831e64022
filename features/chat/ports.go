package chat

import (
	"context"

	"virtualrag/internal/ingest"
	"virtualrag/internal/retrieval"
)

// Ingestor indexes an uploaded document's extracted text.
type Ingestor interface {
	Ingest(ctx context.Context, filename, text string) (ingest.Result, error)
}

// Responder answers a query with retrieved context, streaming into sink.
type Responder interface {
	Respond(ctx context.Context, history *retrieval.History, query string, sink retrieval.Sink) (string, error)
}

// DocumentReader extracts plain text from a file on disk.
type DocumentReader interface {
	Read(path string) (filename, text string, err error)
}

// Conn is the subset of a websocket connection the session needs.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}
