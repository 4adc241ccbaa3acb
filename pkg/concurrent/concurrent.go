package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/objgraph/pkg/sequence"
)

// Concurrent runs action for each element of the iterator in its own goroutine,
// at most limit at a time (limit <= 0 means unbounded). The context handed to
// action is cancelled as soon as one action fails; the first error is returned.
func Concurrent[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	group, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	next, stop := i.Pull()
	defer stop()

	for {
		value, valid := next()
		if !valid {
			break
		}
		if gctx.Err() != nil {
			break
		}
		group.Go(func() error {
			return action(gctx, value)
		})
	}

	return group.Wait()
}

// ParallelMute runs action for every element like Concurrent but never stops
// early; errors are handed to onError, which may be nil.
func ParallelMute[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error, onError func(T, error)) {
	group := errgroup.Group{}
	if limit > 0 {
		group.SetLimit(limit)
	}
	next, stop := i.Pull()
	defer stop()

	for {
		value, valid := next()
		if !valid {
			break
		}
		group.Go(func() error {
			if err := action(ctx, value); err != nil && onError != nil {
				onError(value, err)
			}
			return nil
		})
	}
	_ = group.Wait()
}
