package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const chunkClass = "DocumentChunk"

// Weaviate backs the index with a remote weaviate instance. The class is
// configured with cosine distance so rankings match the in-process backends.
//
// Weaviate has no uniqueness constraint to lean on, so same-fingerprint
// insert races are serialized by a process-local mutex instead; the server is
// the only writer to its collection.
type Weaviate struct {
	client *weaviate.Client

	mu sync.Mutex // serializes InsertDocument
}

var _ Index = (*Weaviate)(nil)

func NewWeaviate(client *weaviate.Client) *Weaviate {
	return &Weaviate{client: client}
}

// EnsureSchema creates the chunk class when missing. Safe to call on every
// startup.
func (s *Weaviate) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(chunkClass).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       chunkClass,
		Description: "An embedded chunk of an uploaded document",
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"string"}},
			{Name: "fingerprint", DataType: []string{"string"}},
			{Name: "source", DataType: []string{"string"}},
			{Name: "position", DataType: []string{"int"}},
			{Name: "content", DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

func (s *Weaviate) InsertDocument(ctx context.Context, doc Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.hasDocument(ctx, doc.Fingerprint)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrDuplicateDocument
	}

	for _, c := range doc.Chunks {
		// Weaviate object ids must be UUIDs; derive one from the chunk id
		// so re-inserting the same chunk collides instead of duplicating.
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.ID)).String()
		_, err := s.client.Data().Creator().
			WithClassName(chunkClass).
			WithID(id).
			WithProperties(map[string]interface{}{
				"chunkId":     c.ID,
				"fingerprint": doc.Fingerprint,
				"source":      doc.Source,
				"position":    c.Position,
				"content":     c.Content,
			}).
			WithVector(c.Embedding).
			Do(ctx)
		if err != nil {
			return 0, fmt.Errorf("store chunk %s: %w", c.ID, err)
		}
	}
	return len(doc.Chunks), nil
}

func (s *Weaviate) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "fingerprint"},
		{Name: "source"},
		{Name: "position"},
		{Name: "content"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(chunkClass).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near-vector search: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var results []SearchResult
	for _, props := range classObjects(res.Data) {
		var r SearchResult
		if v, ok := props["chunkId"].(string); ok {
			r.Chunk.ID = v
		}
		if v, ok := props["fingerprint"].(string); ok {
			r.Chunk.Fingerprint = v
		}
		if v, ok := props["source"].(string); ok {
			r.Chunk.Source = v
		}
		if v, ok := props["position"].(float64); ok {
			r.Chunk.Position = int(v)
		}
		if v, ok := props["content"].(string); ok {
			r.Chunk.Content = v
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				// certainty = (1 + cosine) / 2
				r.Score = float32(2*certainty - 1)
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Weaviate) HasDocument(ctx context.Context, fingerprint string) (bool, error) {
	return s.hasDocument(ctx, fingerprint)
}

func (s *Weaviate) hasDocument(ctx context.Context, fingerprint string) (bool, error) {
	where := filters.Where().
		WithPath([]string{"fingerprint"}).
		WithOperator(filters.Equal).
		WithValueString(fingerprint)

	res, err := s.client.GraphQL().Get().
		WithClassName(chunkClass).
		WithWhere(where).
		WithLimit(1).
		WithFields(graphql.Field{Name: "fingerprint"}).
		Do(ctx)
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	if len(res.Errors) > 0 {
		return false, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}
	return len(classObjects(res.Data)) > 0, nil
}

func (s *Weaviate) Stats(ctx context.Context) (Stats, error) {
	meta := graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}
	groupedBy := graphql.Field{Name: "groupedBy", Fields: []graphql.Field{{Name: "value"}}}

	res, err := s.client.GraphQL().Aggregate().
		WithClassName(chunkClass).
		WithGroupBy("fingerprint").
		WithFields(meta, groupedBy).
		Do(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate chunks: %w", err)
	}
	if len(res.Errors) > 0 {
		return Stats{}, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var st Stats
	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if groups, ok := agg[chunkClass].([]interface{}); ok {
			st.Documents = len(groups)
			for _, g := range groups {
				group, ok := g.(map[string]interface{})
				if !ok {
					continue
				}
				if meta, ok := group["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						st.Chunks += int(count)
					}
				}
			}
		}
	}
	return st, nil
}

func (s *Weaviate) Close() error {
	return nil
}

// classObjects unwraps {"Get": {"DocumentChunk": [ {...}, ... ]}} responses.
func classObjects(data map[string]models.JSONObject) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	list, ok := get[chunkClass].([]interface{})
	if !ok {
		return nil
	}
	var objects []map[string]interface{}
	for _, item := range list {
		if props, ok := item.(map[string]interface{}); ok {
			objects = append(objects, props)
		}
	}
	return objects
}
