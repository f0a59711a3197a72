// Package model holds the registry of upstream model identifiers a request
// may name. A request naming anything else is rejected before a stream opens.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Model describes one known upstream model.
type Model struct {
	ID          string  `json:"id"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

var builtins = []Model{
	{ID: "gpt-3.5-turbo-instruct", MaxTokens: 4096, Temperature: 1.0},
	{ID: "davinci-002", MaxTokens: 16384, Temperature: 1.0},
	{ID: "llama3", MaxTokens: 8192, Temperature: 0.8},
	{ID: "mistral", MaxTokens: 8192, Temperature: 0.8},
}

// Registry is an immutable lookup table built once at startup.
type Registry struct {
	byID  map[string]Model
	order []string
}

func NewRegistry(models []Model) *Registry {
	r := &Registry{byID: make(map[string]Model, len(models))}
	for _, m := range models {
		if _, seen := r.byID[m.ID]; !seen {
			r.order = append(r.order, m.ID)
		}
		r.byID[m.ID] = m
	}
	return r
}

// Default returns the built-in registry.
func Default() *Registry {
	return NewRegistry(builtins)
}

// FromSpec parses a registry from a comma-separated `id:maxTokens:temperature`
// list, e.g. "llama3:8192:0.8,phi3:4096:0.7". An empty spec yields the
// built-in registry.
func FromSpec(spec string) (*Registry, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Default(), nil
	}

	var models []Model
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("model entry %q: want id:maxTokens:temperature", entry)
		}
		id := strings.TrimSpace(parts[0])
		if id == "" {
			return nil, fmt.Errorf("model entry %q: empty id", entry)
		}
		maxTokens, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || maxTokens <= 0 {
			return nil, fmt.Errorf("model entry %q: maxTokens must be a positive integer", entry)
		}
		temp, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || temp < 0 {
			return nil, fmt.Errorf("model entry %q: temperature must be a non-negative number", entry)
		}
		models = append(models, Model{ID: id, MaxTokens: maxTokens, Temperature: temp})
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("model spec %q contains no entries", spec)
	}
	return NewRegistry(models), nil
}

// Lookup returns the model for id, if known.
func (r *Registry) Lookup(id string) (Model, bool) {
	m, ok := r.byID[strings.TrimSpace(id)]
	return m, ok
}

// List returns all known models in registration order.
func (r *Registry) List() []Model {
	out := make([]Model, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
