// Package pipeline runs connected stages concurrently. Each stage is a
// blocking function over its channels; the first stage to fail cancels the
// context shared by the others, which unblocks their pending transfers.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/nnstream/internal/stream"
)

// Stage is one step of a pipeline.
type Stage func(ctx context.Context) error

// Run starts every stage in its own goroutine and waits for all of them.
// It returns the first non-nil error.
func Run(ctx context.Context, stages ...Stage) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range stages {
		g.Go(func() error { return s(ctx) })
	}
	return g.Wait()
}

// Feed writes vals to out in order.
func Feed[T any](ctx context.Context, out chan<- T, vals []T) error {
	for _, v := range vals {
		if err := stream.Write(ctx, out, v); err != nil {
			return err
		}
	}
	return nil
}

// Collect reads exactly n values from in.
func Collect[T any](ctx context.Context, in <-chan T, n int) ([]T, error) {
	out := make([]T, 0, n)
	for len(out) < n {
		v, err := stream.Read(ctx, in)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
