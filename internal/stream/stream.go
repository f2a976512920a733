// Package stream implements the channel boundary shared by every pipeline
// stage: ordered, blocking, single-producer/single-consumer FIFOs with no
// end-of-stream marker. Both sides know the transfer count from the stage
// configuration.
package stream

import (
	"context"
	"errors"
)

// ErrClosed is returned when a channel is closed before a stage has made
// all of the transfers its configuration requires.
var ErrClosed = errors.New("stream: channel closed mid-transfer")

// New returns a FIFO with the given depth. Depths below one are raised to
// one so that a lone producer can always make progress.
func New[T any](depth int) chan T {
	if depth < 1 {
		depth = 1
	}
	return make(chan T, depth)
}

// NewArray returns n FIFOs of the given depth.
func NewArray[T any](n, depth int) []chan T {
	chans := make([]chan T, n)
	for i := range chans {
		chans[i] = New[T](depth)
	}
	return chans
}

// Read blocks until a value is available on in or ctx is done.
func Read[T any](ctx context.Context, in <-chan T) (T, error) {
	select {
	case v, ok := <-in:
		if !ok {
			var zero T
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Write blocks until out has room for v or ctx is done.
func Write[T any](ctx context.Context, out chan<- T, v T) error {
	select {
	case out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
