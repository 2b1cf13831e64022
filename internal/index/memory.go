package index

import (
	"context"
	"sort"
	"sync"
)

// Memory is a brute-force in-process index. It backs tests and the "memory"
// backend; nothing survives a restart.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]string // fingerprint -> source
	ids    map[string]struct{}
	chunks []Chunk // insertion order, which also defines tie-breaking
}

var _ Index = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]string),
		ids:  make(map[string]struct{}),
	}
}

func (m *Memory) InsertDocument(ctx context.Context, doc Document) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[doc.Fingerprint]; exists {
		return 0, ErrDuplicateDocument
	}
	for _, c := range doc.Chunks {
		if _, exists := m.ids[c.ID]; exists {
			return 0, ErrDuplicateChunk
		}
	}

	m.docs[doc.Fingerprint] = doc.Source
	for _, c := range doc.Chunks {
		m.ids[c.ID] = struct{}{}
		m.chunks = append(m.chunks, c)
	}
	return len(doc.Chunks), nil
}

func (m *Memory) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0, len(m.chunks))
	for _, c := range m.chunks {
		results = append(results, SearchResult{Chunk: c, Score: Cosine(vector, c.Embedding)})
	}

	// Stable keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit >= 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (m *Memory) HasDocument(ctx context.Context, fingerprint string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[fingerprint]
	return ok, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Documents: len(m.docs), Chunks: len(m.chunks)}, nil
}

func (m *Memory) Close() error {
	return nil
}
