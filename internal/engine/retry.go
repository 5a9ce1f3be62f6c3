package engine

import (
	"context"
	"fmt"
)

// retry invokes fn at most e.attempts times with a fixed wait between attempts.
// The last error is returned as-is so callers can still classify it.
func retry[T any](ctx context.Context, e *Engine, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if err := e.waitLimit(ctx); err != nil {
			return zero, err
		}
		v, err := fn(ctx)
		e.metrics.ObserveRequest(op, err)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, err
		}
		if attempt == e.attempts {
			e.log("error", fmt.Sprintf("%s failed after %d attempts", op, e.attempts), map[string]any{"error": err.Error()})
			break
		}
		e.metrics.ObserveRetry(op)
		e.log("warn", fmt.Sprintf("Attempt %d failed. Retrying in %s...", attempt, e.delays.RetryWait()), map[string]any{
			"op":    op,
			"error": err.Error(),
		})
		if err := e.sleep(ctx, e.delays.RetryWait()); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}
