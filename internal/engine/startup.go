package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that the Engine is reachable and the rewrite model is
// available, pulling it automatically with progress output written to w.
// After the model is available it is warmed up with a trivial chat request so
// the first rewrite doesn't pay the cold-load penalty.
func EnsureReady(ctx context.Context, e Engine, model string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("checking inference backend: %w", ErrUnavailable)
	}
	if model == "" {
		return nil
	}

	if !e.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := e.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
	}
	fmt.Fprintf(w, "model %s: ready\n", model)

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := e.Chat(warmCtx, model, []Message{{Role: "user", Content: "ping"}}); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	}

	return nil
}
