// Package reranker optionally reorders retrieved chunks with a hosted
// cross-encoder before they reach the prompt.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	jinaURL   = "https://api.jina.ai/v1/rerank"
	cohereURL = "https://api.cohere.ai/v1/rerank"
)

// Client talks to a reranking provider. An unknown or empty provider keeps
// the original vector-similarity order, so the pipeline works with no
// reranker configured.
type Client struct {
	provider string
	apiKey   string
	client   *http.Client
	baseURL  string
}

func NewClient(provider, apiKey string) *Client {
	return &Client{
		provider: provider,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL overrides the provider endpoint, used in tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Rerank returns the indices of docs in relevance order for query.
func (c *Client) Rerank(ctx context.Context, query string, docs []string) ([]int, error) {
	switch c.provider {
	case "jina":
		return c.rerank(ctx, jinaURL, map[string]interface{}{
			"model":     "jina-reranker-v1-base-en",
			"query":     query,
			"documents": docs,
		}, len(docs))
	case "cohere":
		return c.rerank(ctx, cohereURL, map[string]interface{}{
			"model":            "rerank-english-v3.0",
			"query":            query,
			"documents":        docs,
			"top_n":            len(docs),
			"return_documents": false,
		}, len(docs))
	default:
		indices := make([]int, len(docs))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
}

func (c *Client) rerank(ctx context.Context, url string, reqBody map[string]interface{}, docCount int) ([]int, error) {
	if c.baseURL != "" {
		url = c.baseURL
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s api error: %d: %s", c.provider, resp.StatusCode, string(body))
	}

	var result struct {
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	indices := make([]int, 0, docCount)
	for _, r := range result.Results {
		if r.Index >= 0 && r.Index < docCount {
			indices = append(indices, r.Index)
		}
	}
	return indices, nil
}
