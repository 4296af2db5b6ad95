// Package engine abstracts the local inference backend used for
// style-guided text rewriting. The rest of the system depends on the Engine
// interface, never on a concrete client, so rewriting degrades cleanly to
// the heuristic pipeline when no backend is reachable.
package engine

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the inference backend cannot be reached.
var ErrUnavailable = errors.New("inference engine unavailable")

// Engine abstracts a local inference backend.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all locally available models.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available locally.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress updates.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
