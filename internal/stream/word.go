package stream

import (
	"context"
	"fmt"
)

// Word is a transfer word: size scalars moved across a channel in a single
// transfer. It is built, filled and discarded once per transfer.
type Word[T any] []T

// NewWord returns a zeroed word of the given size.
func NewWord[T any](size int) Word[T] {
	return make(Word[T], size)
}

// Size returns the number of packed elements.
func (w Word[T]) Size() int { return len(w) }

// At returns the i-th packed element.
func (w Word[T]) At(i int) T { return w[i] }

// Set stores v as the i-th packed element.
func (w Word[T]) Set(i int, v T) { w[i] = v }

// Unpack reads ceil(len(dst)/size) words from in and spreads their elements
// over dst in order. Elements of the final word past len(dst) are ignored.
// A word too short to fill its slots is an error.
func Unpack[T any](ctx context.Context, in <-chan Word[T], dst []T, size int) error {
	n := len(dst)
	size = max(size, 1)
	for off := 0; off < n; off += size {
		w, err := Read(ctx, in)
		if err != nil {
			return err
		}
		end := min(off+size, n)
		if w.Size() < end-off {
			return fmt.Errorf("short word at %d: %d of %d elements", off, w.Size(), end-off)
		}
		for i := off; i < end; i++ {
			dst[i] = w.At(i - off)
		}
	}
	return nil
}

// Pack groups src into ceil(len(src)/size) words and writes them to out in
// order. The final word holds the remainder when size does not divide
// len(src).
func Pack[T any](ctx context.Context, out chan<- Word[T], src []T, size int) error {
	n := len(src)
	size = max(size, 1)
	for off := 0; off < n; off += size {
		end := min(off+size, n)
		w := NewWord[T](end - off)
		for i := off; i < end; i++ {
			w.Set(i-off, src[i])
		}
		if err := Write(ctx, out, w); err != nil {
			return err
		}
	}
	return nil
}
