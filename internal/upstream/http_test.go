package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPAdapterConsumesSSE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		// Whitespace inside deltas must survive the trip untouched.
		fmt.Fprint(w, "data: {\"choices\":[{\"text\":\"Hello \"}]}\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"text\":\"world.\\n\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	a := NewHTTPAdapter(server.URL)
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
	if len(deltas) != 2 || deltas[0] != "Hello " || deltas[1] != "world.\n" {
		t.Fatalf("deltas = %#v, want verbatim fragments", deltas)
	}
}

func TestHTTPAdapterConsumesNDJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, "{\"response\":\"Once \"}\n")
		fmt.Fprint(w, "{\"response\":\"upon.\"}\n")
	}))
	defer server.Close()

	a := NewHTTPAdapter(server.URL)
	res, err := a.StreamCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}, nil)
	if err != nil {
		t.Fatalf("StreamCompletion error = %v", err)
	}
	if res.Text != "Once upon." {
		t.Fatalf("text = %q, want %q", res.Text, "Once upon.")
	}
}

func TestHTTPAdapterSurfacesBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := NewHTTPAdapter(server.URL)
	_, err := a.StreamCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}, nil)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("error = %v, want upstream status 503 surfaced", err)
	}
}

func TestHTTPAdapterStopsOnHandlerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"text\":\"one\"}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"text\":\"two\"}]}\n\n")
	}))
	defer server.Close()

	stop := errors.New("enough")
	a := NewHTTPAdapter(server.URL)
	var seen int
	_, err := a.StreamCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}, func(string) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("error = %v, want handler error propagated", err)
	}
	if seen != 1 {
		t.Fatalf("handler calls = %d, want 1 after stop", seen)
	}
}

func TestHTTPAdapterNonStreamingFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "{\"choices\":[{\"text\":\"whole completion.\"}]}")
	}))
	defer server.Close()

	a := NewHTTPAdapter(server.URL)
	var deltas []string
	res, err := a.StreamCompletion(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamCompletion error = %v", err)
	}
	if res.Text != "whole completion." || len(deltas) != 1 {
		t.Fatalf("text = %q deltas = %#v, want single-delta fallback", res.Text, deltas)
	}
}
