package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPAdapter streams completions from an OpenAI-compatible HTTP endpoint
// (SSE `data:` lines) or an NDJSON endpoint such as ollama's.
type HTTPAdapter struct {
	url    string
	client *http.Client
}

func NewHTTPAdapter(url string) *HTTPAdapter {
	return &HTTPAdapter{
		url: strings.TrimSpace(url),
		// No client timeout: a stream legitimately stays open for the whole
		// generation and is bounded by the request context instead.
		client: &http.Client{},
	}
}

type httpCompletionBody struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

func (a *HTTPAdapter) StreamCompletion(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error) {
	payload, err := json.Marshal(httpCompletionBody{
		Model:       req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return CompletionResponse{}, fmt.Errorf("upstream http status %d: %s", res.StatusCode, string(body))
	}

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/event-stream") || strings.Contains(ct, "application/x-ndjson") {
		return a.consumeStreaming(res.Body, onDelta)
	}

	// Non-streaming backend: one JSON body, surfaced as a single delta.
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}
	text, _ := extractDelta(obj)
	if text != "" && onDelta != nil {
		if err := onDelta(text); err != nil {
			return CompletionResponse{}, err
		}
	}
	return CompletionResponse{Text: text}, nil
}

func (a *HTTPAdapter) consumeStreaming(body io.Reader, onDelta DeltaHandler) (CompletionResponse, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimPrefix(line, "data:")
			line = strings.TrimPrefix(line, " ")
		}
		if strings.TrimSpace(line) == "[DONE]" {
			break
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			// Not a JSON payload line; nothing trustworthy to forward.
			continue
		}
		// Deltas go through verbatim: trimming here would eat the whitespace
		// and delimiter characters the caller's boundary cut depends on.
		delta, ok := extractDelta(obj)
		if !ok || delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return CompletionResponse{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return CompletionResponse{}, fmt.Errorf("stream read: %w", err)
	}

	return CompletionResponse{Text: out.String()}, nil
}

// extractDelta pulls the text fragment out of the payload shapes produced by
// OpenAI-style completions, chat deltas, and ollama's generate endpoint.
func extractDelta(obj map[string]any) (string, bool) {
	if choices, ok := obj["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if s, ok := choice["text"].(string); ok {
				return s, true
			}
			if delta, ok := choice["delta"].(map[string]any); ok {
				if s, ok := delta["content"].(string); ok {
					return s, true
				}
			}
		}
	}
	for _, k := range []string{"response", "text", "delta", "content"} {
		if s, ok := obj[k].(string); ok {
			return s, true
		}
	}
	return "", false
}
