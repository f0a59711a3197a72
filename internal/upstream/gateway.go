package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	gatewayDialTimeout  = 10 * time.Second
	gatewayWriteTimeout = 3 * time.Second
)

// GatewayAdapter streams completions over a WebSocket gateway that speaks a
// small JSON frame protocol: one `generate` request out, a sequence of
// `delta` frames back, ended by `done` or `error`.
type GatewayAdapter struct {
	wsURL  string
	token  string
	dialer websocket.Dialer
}

func NewGatewayAdapter(wsURL, token string) (*GatewayAdapter, error) {
	wsURL = strings.TrimSpace(wsURL)
	if wsURL == "" {
		return nil, errors.New("upstream gateway url is required for gateway mode")
	}
	return &GatewayAdapter{
		wsURL: wsURL,
		token: strings.TrimSpace(token),
		dialer: websocket.Dialer{
			HandshakeTimeout: gatewayDialTimeout,
		},
	}, nil
}

type gatewayFrame struct {
	Type   string             `json:"type"`
	ID     string             `json:"id,omitempty"`
	Text   string             `json:"text,omitempty"`
	Params *CompletionRequest `json:"params,omitempty"`
	Error  *gatewayError      `json:"error,omitempty"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *GatewayAdapter) StreamCompletion(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error) {
	header := http.Header{}
	if a.token != "" {
		header.Set("Authorization", "Bearer "+a.token)
	}

	conn, res, err := a.dialer.DialContext(ctx, a.wsURL, header)
	if err != nil {
		if res != nil {
			return CompletionResponse{}, fmt.Errorf("gateway dial status %d: %w", res.StatusCode, err)
		}
		return CompletionResponse{}, fmt.Errorf("gateway dial: %w", err)
	}
	defer conn.Close()

	// Closing the connection is the only way to unblock ReadJSON when the
	// request context is cancelled mid-stream.
	dialDone := make(chan struct{})
	defer close(dialDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-dialDone:
		}
	}()

	reqID := uuid.NewString()
	_ = conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
	if err := conn.WriteJSON(gatewayFrame{Type: "generate", ID: reqID, Params: &req}); err != nil {
		return CompletionResponse{}, fmt.Errorf("gateway write: %w", err)
	}

	var out strings.Builder
	for {
		var frame gatewayFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return CompletionResponse{}, ctx.Err()
			}
			return CompletionResponse{}, fmt.Errorf("gateway read: %w", err)
		}
		if frame.ID != "" && frame.ID != reqID {
			continue
		}

		switch frame.Type {
		case "delta":
			if frame.Text == "" {
				continue
			}
			out.WriteString(frame.Text)
			if onDelta != nil {
				if err := onDelta(frame.Text); err != nil {
					return CompletionResponse{}, err
				}
			}
		case "done":
			return CompletionResponse{Text: out.String()}, nil
		case "error":
			if frame.Error != nil {
				return CompletionResponse{}, fmt.Errorf("gateway error %s: %s", frame.Error.Code, frame.Error.Message)
			}
			return CompletionResponse{}, errors.New("gateway error")
		}
	}
}
