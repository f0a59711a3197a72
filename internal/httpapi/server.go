package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gabrifc/storycut/internal/config"
	"github.com/gabrifc/storycut/internal/history"
	"github.com/gabrifc/storycut/internal/lengthmode"
	"github.com/gabrifc/storycut/internal/model"
	"github.com/gabrifc/storycut/internal/observability"
	"github.com/gabrifc/storycut/internal/stream"
)

type Orchestrator interface {
	Run(ctx context.Context, req stream.Request, sink stream.Sink) (stream.Result, error)
}

type Server struct {
	cfg          config.Config
	models       *model.Registry
	orchestrator Orchestrator
	history      history.Store
	metrics      *observability.Metrics
}

func New(cfg config.Config, models *model.Registry, orchestrator Orchestrator, hist history.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		models:       models,
		orchestrator: orchestrator,
		history:      hist,
		metrics:      metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/generate", s.handleGenerate)
	r.Get("/v1/models", s.handleListModels)
	r.Get("/v1/generations", s.handleListGenerations)
	r.Get("/v1/generations/{id}", s.handleGetGeneration)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"models": len(s.models.List()),
	})
}

type generateRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	LengthMode  string   `json:"lengthMode,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "missing_prompt", "prompt is required")
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		respondError(w, http.StatusBadRequest, "missing_model", "model is required")
		return
	}
	mdl, ok := s.models.Lookup(req.Model)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown_model", "model "+strconv.Quote(req.Model)+" is not known")
		return
	}
	if s.orchestrator == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "orchestrator not configured")
		return
	}

	// Unrecognized modes fall back to sentence instead of failing; only
	// prompt and model get hard validation.
	mode := lengthmode.Parse(req.LengthMode)

	sink, err := newSSEWriter(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", err.Error())
		return
	}

	temperature := 0.0
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	genID := uuid.NewString()
	w.Header().Set("X-Generation-Id", genID)

	if s.metrics != nil {
		s.metrics.ActiveStreams.Inc()
		defer s.metrics.ActiveStreams.Dec()
	}

	result, err := s.orchestrator.Run(r.Context(), stream.Request{
		Prompt:      req.Prompt,
		Model:       mdl,
		Mode:        mode,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	}, sink)

	if err != nil {
		if s.metrics != nil {
			s.metrics.Generations.WithLabelValues(string(mode), string(stream.FinishError)).Inc()
		}
		log.Printf("generation %s failed: %v", genID, err)
		if sink.HeadersSent() {
			// Fragments already on the wire stay valid; the client stops
			// appending and surfaces the message.
			_ = sink.WriteError(err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, "upstream_error", err.Error())
		}
		s.saveRecord(genID, req, mode, result)
		return
	}

	if s.metrics != nil {
		s.metrics.Generations.WithLabelValues(string(mode), string(result.FinishReason)).Inc()
	}

	if result.FinishReason == stream.FinishCanceled {
		// Client disconnect: no further writes of any kind.
		return
	}

	if err := sink.WriteDone(); err != nil {
		return
	}
	s.saveRecord(genID, req, mode, result)
}

func (s *Server) saveRecord(id string, req generateRequest, mode lengthmode.Mode, result stream.Result) {
	if s.history == nil {
		return
	}
	// The request context is often already done here; history writes get
	// their own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.history.Save(ctx, history.Record{
		ID:           id,
		Model:        req.Model,
		Mode:         string(mode),
		Prompt:       req.Prompt,
		Output:       result.Text,
		FinishReason: string(result.FinishReason),
		Fragments:    result.Fragments,
	})
	if err != nil {
		log.Printf("history save failed for %s: %v", id, err)
	}
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"models": s.models.List(),
	})
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "history store not configured")
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"generations": records,
	})
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "history store not configured")
		return
	}
	id := chi.URLParam(r, "id")
	record, err := s.history.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		respondError(w, http.StatusNotFound, "generation_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
