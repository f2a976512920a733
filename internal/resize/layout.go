package resize

import (
	"context"
	"fmt"

	"github.com/hailam/nnstream/internal/stream"
)

// wideReader reads one word per pixel.
type wideReader[T any] struct{ in <-chan stream.Word[T] }

func (r wideReader[T]) readPixel(ctx context.Context, px []T) error {
	w, err := stream.Read(ctx, r.in)
	if err != nil {
		return err
	}
	if w.Size() < len(px) {
		return fmt.Errorf("short pixel word: %d of %d channels", w.Size(), len(px))
	}
	for j := range px {
		px[j] = w.At(j)
	}
	return nil
}

// wideWriter writes one freshly built word per pixel.
type wideWriter[T any] struct{ out chan<- stream.Word[T] }

func (w wideWriter[T]) writePixel(ctx context.Context, px []T) error {
	word := stream.NewWord[T](len(px))
	for j, v := range px {
		word.Set(j, v)
	}
	return stream.Write(ctx, w.out, word)
}

// scalarReader reads n_chan consecutive values per pixel.
type scalarReader[T any] struct{ in <-chan T }

func (r scalarReader[T]) readPixel(ctx context.Context, px []T) error {
	for j := range px {
		v, err := stream.Read(ctx, r.in)
		if err != nil {
			return err
		}
		px[j] = v
	}
	return nil
}

type scalarWriter[T any] struct{ out chan<- T }

func (w scalarWriter[T]) writePixel(ctx context.Context, px []T) error {
	for _, v := range px {
		if err := stream.Write(ctx, w.out, v); err != nil {
			return err
		}
	}
	return nil
}

// arrayReader reads channel j of the pixel from in[j].
type arrayReader[T any] struct{ in []chan T }

func (r arrayReader[T]) readPixel(ctx context.Context, px []T) error {
	for j := range px {
		v, err := stream.Read(ctx, r.in[j])
		if err != nil {
			return err
		}
		px[j] = v
	}
	return nil
}

type arrayWriter[T any] struct{ out []chan T }

func (w arrayWriter[T]) writePixel(ctx context.Context, px []T) error {
	for j, v := range px {
		if err := stream.Write(ctx, w.out[j], v); err != nil {
			return err
		}
	}
	return nil
}
