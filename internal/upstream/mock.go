package upstream

import (
	"context"
)

// MockAdapter streams a scripted sequence of deltas. It backs tests and runs
// the service without any upstream configured.
type MockAdapter struct {
	Deltas []string
}

// The default script carries every boundary kind: sentence enders, a blank
// line, and enough trailing text that cutting early is observable.
var defaultMockDeltas = []string{
	"Once upon a time, the lighthouse ",
	"hummed to itself",
	". The keeper pretended not to hear.",
	"\n",
	"\n",
	"Years later she wrote it all down.",
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{Deltas: defaultMockDeltas}
}

// NewScriptedAdapter streams exactly the given deltas, for tests.
func NewScriptedAdapter(deltas ...string) *MockAdapter {
	return &MockAdapter{Deltas: deltas}
}

func (a *MockAdapter) StreamCompletion(ctx context.Context, _ CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error) {
	var out string
	for _, delta := range a.Deltas {
		if err := ctx.Err(); err != nil {
			return CompletionResponse{}, err
		}
		if delta == "" {
			continue
		}
		out += delta
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return CompletionResponse{}, err
			}
		}
	}
	return CompletionResponse{Text: out}, nil
}
