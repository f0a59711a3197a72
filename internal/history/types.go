// Package history records finished generations so operators can inspect what
// the service cut and why. Writes are best-effort: a failed save never fails
// the stream that produced it.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("generation not found")

// Record is one finished generation.
type Record struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	Mode         string    `json:"mode"`
	Prompt       string    `json:"prompt"`
	Output       string    `json:"output"`
	FinishReason string    `json:"finish_reason"`
	Fragments    int       `json:"fragments"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists generation records.
type Store interface {
	Save(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Close() error
}
