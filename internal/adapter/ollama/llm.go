package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const DefaultLLMModel = "llama3.2"

// LLM streams completions from Ollama's /api/generate endpoint.
//
// The HTTP client carries no timeout of its own: a streamed generation can
// legitimately run for minutes, so the caller bounds it through ctx.
type LLM struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewLLM(baseURL, model string, temperature float64, maxTokens int) *LLM {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultLLMModel
	}
	return &LLM{
		client:      &http.Client{},
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Stream generates a completion for prompt, invoking emit once per response
// fragment in arrival order. Generation stops early if emit returns an
// error or ctx is cancelled.
func (l *LLM) Stream(ctx context.Context, prompt string, emit func(fragment string) error) error {
	reqBody := generateRequest{
		Model:  l.model,
		Prompt: prompt,
		Stream: true,
	}
	if l.temperature > 0 || l.maxTokens > 0 {
		reqBody.Options = &options{
			Temperature: l.temperature,
			NumPredict:  l.maxTokens,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	// The stream is newline-delimited JSON, one object per fragment.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var fragment generateResponse
		if err := json.Unmarshal(line, &fragment); err != nil {
			return fmt.Errorf("decode stream fragment: %w", err)
		}
		if fragment.Response != "" {
			if err := emit(fragment.Response); err != nil {
				return err
			}
		}
		if fragment.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		// Body reads fail with the ctx error once the deadline hits.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

// Ping checks connectivity via /api/tags without running inference.
func (l *LLM) Ping(ctx context.Context) error {
	return ping(ctx, l.client, l.baseURL)
}
