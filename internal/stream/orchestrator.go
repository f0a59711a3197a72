// Package stream drives one generation request end to end: it consumes the
// upstream token stream, cuts it at the first semantic boundary, and writes
// client-visible fragments in order.
package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gabrifc/storycut/internal/lengthmode"
	"github.com/gabrifc/storycut/internal/model"
	"github.com/gabrifc/storycut/internal/observability"
	"github.com/gabrifc/storycut/internal/segment"
	"github.com/gabrifc/storycut/internal/upstream"
)

// Sink receives client-visible fragments. Write blocks until the fragment is
// flushed; that synchronous write inside the receive loop is what keeps the
// orchestrator from reading upstream faster than the client can take it.
type Sink interface {
	Write(fragment string) error
}

// Request is one resolved generation request.
type Request struct {
	Prompt      string
	Model       model.Model
	Mode        lengthmode.Mode
	Temperature float64 // <= 0 means use the model's default
	MaxTokens   int     // <= 0 means use the mode preset
}

// FinishReason says why the stream ended.
type FinishReason string

const (
	// FinishBoundary: a delimiter was found and the cut emitted.
	FinishBoundary FinishReason = "boundary"
	// FinishExhausted: the model stopped before any delimiter appeared.
	FinishExhausted FinishReason = "exhausted"
	// FinishCanceled: the client went away mid-stream.
	FinishCanceled FinishReason = "canceled"
	// FinishError: the upstream failed before the stream could finish.
	FinishError FinishReason = "error"
)

// Result summarizes a finished generation. Text is the concatenation of every
// emitted fragment, byte-identical to what the client received.
type Result struct {
	Text         string
	FinishReason FinishReason
	Fragments    int
}

// Orchestrator runs generation requests against one upstream adapter. It is
// stateless across requests; all per-request state lives in the run.
type Orchestrator struct {
	adapter upstream.Adapter
	metrics *observability.Metrics
}

func NewOrchestrator(adapter upstream.Adapter, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{adapter: adapter, metrics: metrics}
}

// Run opens the upstream stream with the resolved token budget and no stop
// sequences (stopping is this layer's job; an upstream stop would truncate
// the delimiter characters), then consumes deltas over a channel until a
// boundary is found, the upstream is exhausted, or the client disconnects.
// The upstream call is cancelled exactly once, whichever of those happens.
//
// Errors from the upstream are returned as-is; no retries happen here.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) (Result, error) {
	budget := lengthmode.Budget(req.Mode, req.Model.MaxTokens, req.MaxTokens)
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = req.Model.Temperature
	}

	upCtx, cancel := context.WithCancel(ctx)
	var cancelOnce sync.Once
	abort := func() { cancelOnce.Do(cancel) }
	defer abort()

	// The adapter pushes deltas into an unbuffered channel from its own
	// goroutine; the receive loop below owns all stream state.
	deltas := make(chan string)
	upErr := make(chan error, 1)
	go func() {
		defer close(deltas)
		_, err := o.adapter.StreamCompletion(upCtx, upstream.CompletionRequest{
			Model:       req.Model.ID,
			Prompt:      req.Prompt,
			MaxTokens:   budget,
			Temperature: temperature,
		}, func(delta string) error {
			select {
			case deltas <- delta:
				return nil
			case <-upCtx.Done():
				return upCtx.Err()
			}
		})
		upErr <- err
	}()

	var (
		cutter  = segment.NewCutter(req.Mode)
		out     strings.Builder
		emitted int
		started = time.Now()
	)
	emit := func(fragment string) error {
		if err := sink.Write(fragment); err != nil {
			return err
		}
		if emitted == 0 && o.metrics != nil {
			o.metrics.ObserveFirstFragmentLatency(time.Since(started))
		}
		emitted++
		out.WriteString(fragment)
		if o.metrics != nil {
			o.metrics.FragmentsEmitted.Inc()
		}
		return nil
	}
	finish := func(reason FinishReason) Result {
		return Result{Text: out.String(), FinishReason: reason, Fragments: emitted}
	}
	// drain unblocks the adapter goroutine after abort so it can observe the
	// cancelled context and return.
	drain := func() {
		for range deltas {
		}
		<-upErr
	}

	for delta := range deltas {
		fragments, done := cutter.Consume(delta)
		for _, fragment := range fragments {
			if err := emit(fragment); err != nil {
				// Client gone; stop consuming upstream, nothing more is written.
				abort()
				drain()
				return finish(FinishCanceled), nil
			}
		}
		if done {
			// This request got what it needed; stop the upstream spend.
			abort()
			drain()
			return finish(FinishBoundary), nil
		}
	}

	err := <-upErr
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return finish(FinishCanceled), nil
		}
		if o.metrics != nil {
			o.metrics.UpstreamErrors.WithLabelValues(string(req.Mode)).Inc()
		}
		return finish(FinishError), err
	}

	// Upstream exhausted without a boundary: flush the normalized tail.
	if tail := cutter.Finalize(); tail != "" {
		if err := emit(tail); err != nil {
			return finish(FinishCanceled), nil
		}
	}
	return finish(FinishExhausted), nil
}
