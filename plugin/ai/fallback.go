package ai

import (
	"context"
	"fmt"
	"strings"
)

// FallbackError aggregates the per-candidate failures of an exhausted
// fallback chain.
type FallbackError struct {
	Causes map[string]error
	order  []string
}

func (e *FallbackError) Error() string {
	var b strings.Builder
	b.WriteString("all candidates failed:")
	for _, name := range e.order {
		fmt.Fprintf(&b, "\n[%s] %s", name, e.Causes[name])
	}
	return b.String()
}

// AttemptWithFallbacks tries fn against each candidate in order and returns
// the first success. When every candidate fails the per-candidate errors are
// aggregated into a single FallbackError; nothing is retried beyond the list.
func AttemptWithFallbacks[T any](ctx context.Context, candidates []string, fn func(ctx context.Context, candidate string) (T, error)) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, fmt.Errorf("no candidates configured")
	}

	failure := &FallbackError{Causes: map[string]error{}}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx, candidate)
		if err == nil {
			return result, nil
		}
		failure.Causes[candidate] = err
		failure.order = append(failure.order, candidate)
	}
	return zero, failure
}
