// Package query loads optional page data. A failed load is logged at debug
// level and treated as "no data", so a status panel never breaks its page.
package query

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Load runs fn and reports whether it produced data.
func Load[T any](ctx context.Context, logger *zap.Logger, name string, fn func(context.Context) (T, error)) (T, bool) {
	v, err := fn(ctx)
	if err != nil {
		logger.Debug("query failed", zap.String("query", name), zap.Error(err))
		var zero T
		return zero, false
	}
	return v, true
}

// Result is the state of an asynchronous load.
type Result[T any] struct {
	Data T
	OK   bool
}

// Async starts fn in the background. The returned func blocks until the
// load finishes; it may be called any number of times.
func Async[T any](ctx context.Context, logger *zap.Logger, name string, fn func(context.Context) (T, error)) func() Result[T] {
	var (
		once sync.Once
		res  Result[T]
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		res.Data, res.OK = Load(ctx, logger, name, fn)
	}()
	return func() Result[T] {
		once.Do(func() { <-done })
		return res
	}
}
