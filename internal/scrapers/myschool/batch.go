package myschool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchWorkers is how many detail pages are fetched at once.
const BatchWorkers = 5

// Batch runs one task per input with at most `limit` running at once and waits
// for all of them. results[i] belongs to inputs[i], tasks that never started
// because ctx was cancelled leave the zero value.
func Batch[In, Out any](ctx context.Context, limit int, inputs []In, task func(context.Context, In) Out) ([]Out, error) {
	results := make([]Out, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, input := range inputs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			// each task writes only its own slot
			results[i] = task(ctx, input)
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
