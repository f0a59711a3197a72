package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CompletionRequest is the normalized request sent to the upstream model.
type CompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// CompletionResponse is the full text after streaming deltas.
type CompletionResponse struct {
	Text string `json:"text"`
}

// DeltaHandler receives streaming text fragments exactly as the model
// produced them, whitespace included. Returning an error stops the stream.
type DeltaHandler func(delta string) error

// Adapter bridges the service with a token-streaming completion backend.
// Implementations must not apply stop sequences: cutting at a boundary is the
// caller's job, and an upstream stop would truncate the delimiter characters
// the caller needs to keep.
type Adapter interface {
	StreamCompletion(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error)
}

// Config controls adapter construction.
type Config struct {
	Mode         string
	HTTPURL      string
	GatewayURL   string
	GatewayToken string
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoAdapter(cfg), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("upstream HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL), nil
	case "gateway":
		return NewGatewayAdapter(cfg.GatewayURL, cfg.GatewayToken)
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported upstream adapter mode %q", cfg.Mode)
	}
}

func newAutoAdapter(cfg Config) Adapter {
	// Prefer the gateway WS protocol when a token is configured because it
	// yields per-token deltas with the lowest first-byte latency.
	if strings.TrimSpace(cfg.GatewayToken) != "" {
		if gw, err := NewGatewayAdapter(cfg.GatewayURL, cfg.GatewayToken); err == nil {
			return gw
		}
	}
	if strings.TrimSpace(cfg.HTTPURL) != "" {
		return NewHTTPAdapter(cfg.HTTPURL)
	}
	return NewMockAdapter()
}
