package chatsvc

import (
	"context"

	"github.com/mkrupp/voicechat/internal/domain"
)

// Async runs fn in its own goroutine. The returned channel receives exactly
// one result and is then closed.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan domain.Result[T] {
	results := make(chan domain.Result[T], 1)

	go func() {
		defer close(results)

		value, err := fn(ctx)
		results <- domain.Result[T]{Value: value, Err: err}
	}()

	return results
}
