package circuitbreaker

import (
	"context"
	"fmt"
)

// Run invokes a typed operation under b's protection. Fallback results
// flow back through the same path as real results, so they must share
// the operation's result type.
func Run[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	var zero T

	result, err := b.Invoke(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if result == nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker %q: fallback returned %T, want %T", b.name, result, zero)
	}
	return typed, err
}
