package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// contentEvent is the wire shape of one emitted fragment. Concatenating the
// content of every event in order reproduces the boundary-cut text exactly;
// nothing is trimmed or escaped beyond JSON string encoding.
type contentEvent struct {
	Content string `json:"content"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// sseWriter writes server-sent events, deferring headers until the first
// event so a failure before any output can still be reported as plain JSON.
type sseWriter struct {
	w           http.ResponseWriter
	flusher     http.Flusher
	headersSent bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) HeadersSent() bool { return s.headersSent }

// Write implements stream.Sink: one fragment becomes one SSE data event,
// flushed immediately.
func (s *sseWriter) Write(fragment string) error {
	payload, err := json.Marshal(contentEvent{Content: fragment})
	if err != nil {
		return err
	}
	return s.writeData(payload)
}

func (s *sseWriter) WriteError(message string) error {
	payload, err := json.Marshal(errorEvent{Error: message})
	if err != nil {
		return err
	}
	return s.writeData(payload)
}

func (s *sseWriter) WriteDone() error {
	return s.writeData([]byte("[DONE]"))
}

func (s *sseWriter) writeData(data []byte) error {
	if !s.headersSent {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.headersSent = true
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
