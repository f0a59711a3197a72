package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func newGatewayTestServer(t *testing.T, handle func(conn *websocket.Conn, req gatewayFrame)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req gatewayFrame
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read generate frame: %v", err)
			return
		}
		if req.Type != "generate" || req.ID == "" || req.Params == nil {
			t.Errorf("generate frame = %+v, want type/id/params set", req)
			return
		}
		handle(conn, req)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestGatewayAdapterStreamsDeltas(t *testing.T) {
	server := newGatewayTestServer(t, func(conn *websocket.Conn, req gatewayFrame) {
		_ = conn.WriteJSON(gatewayFrame{Type: "delta", ID: req.ID, Text: "Hello "})
		_ = conn.WriteJSON(gatewayFrame{Type: "delta", ID: "other-stream", Text: "noise"})
		_ = conn.WriteJSON(gatewayFrame{Type: "delta", ID: req.ID, Text: "world.\n"})
		_ = conn.WriteJSON(gatewayFrame{Type: "done", ID: req.ID})
	})
	defer server.Close()

	a, err := NewGatewayAdapter(wsURL(server), "secret")
	if err != nil {
		t.Fatalf("NewGatewayAdapter: %v", err)
	}
	var deltas []string
	res, err := a.StreamCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamCompletion error = %v", err)
	}
	if res.Text != "Hello world.\n" {
		t.Fatalf("text = %q, want %q", res.Text, "Hello world.\n")
	}
	if len(deltas) != 2 {
		t.Fatalf("deltas = %#v, want the other stream's frame filtered out", deltas)
	}
}

func TestGatewayAdapterSendsBearerToken(t *testing.T) {
	var gotAuth string
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req gatewayFrame
		_ = conn.ReadJSON(&req)
		_ = conn.WriteJSON(gatewayFrame{Type: "done", ID: req.ID})
	}))
	defer server.Close()

	a, err := NewGatewayAdapter(wsURL(server), "secret")
	if err != nil {
		t.Fatalf("NewGatewayAdapter: %v", err)
	}
	if _, err := a.StreamCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}, nil); err != nil {
		t.Fatalf("StreamCompletion error = %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want %q", gotAuth, "Bearer secret")
	}
}

func TestGatewayAdapterSurfacesErrorFrame(t *testing.T) {
	server := newGatewayTestServer(t, func(conn *websocket.Conn, req gatewayFrame) {
		_ = conn.WriteJSON(gatewayFrame{Type: "delta", ID: req.ID, Text: "partial "})
		_ = conn.WriteJSON(gatewayFrame{Type: "error", ID: req.ID, Error: &gatewayError{Code: "overloaded", Message: "try later"}})
	})
	defer server.Close()

	a, err := NewGatewayAdapter(wsURL(server), "")
	if err != nil {
		t.Fatalf("NewGatewayAdapter: %v", err)
	}
	_, err = a.StreamCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}, nil)
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("error = %v, want gateway error code surfaced", err)
	}
}

func TestGatewayAdapterRequiresURL(t *testing.T) {
	if _, err := NewGatewayAdapter("  ", "token"); err == nil {
		t.Fatalf("expected error for empty gateway url")
	}
}
