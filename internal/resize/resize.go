// Package resize implements the streaming nearest-neighbor up-sampler.
//
// Every transfer layout shares one row-buffer algorithm. A layout only
// decides how one pixel's n_chan values are read from and written to the
// FIFO boundary, which it expresses through a pixelReader/pixelWriter pair.
package resize

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/hailam/nnstream/internal/config"
	"github.com/hailam/nnstream/internal/stream"
)

// pixelReader reads the n_chan values of the next source pixel into px.
type pixelReader[T any] interface {
	readPixel(ctx context.Context, px []T) error
}

// pixelWriter writes the n_chan values of px as the next target pixel.
type pixelWriter[T any] interface {
	writePixel(ctx context.Context, px []T) error
}

// Resizer up-samples height×width×n_chan images by integer ratios. It owns a
// single row buffer and must not be shared between goroutines.
type Resizer[T any] struct {
	plan config.ResizePlan
	log  logr.Logger
	row  []T
}

// Option customizes a Resizer.
type Option func(*options)

type options struct {
	log logr.Logger
}

// WithLogger sets the logger used for per-image tracing at V(1).
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

// New validates cfg and allocates the row buffer.
func New[T any](cfg config.Resize, opts ...Option) (*Resizer[T], error) {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log.GetSink() == nil {
		o.log = logr.Discard()
	}

	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}

	return &Resizer[T]{
		plan: plan,
		log:  o.log.WithValues("layer", plan.Name),
		row:  make([]T, plan.Width*plan.NChan),
	}, nil
}

// Plan returns the validated configuration.
func (z *Resizer[T]) Plan() config.ResizePlan {
	return z.plan
}

// run is the shared algorithm. For each source row, the whole row is read
// into the row buffer before the first replicated write; the row is then
// emitted RatioHeight times, each pixel RatioWidth times in a row.
func (z *Resizer[T]) run(ctx context.Context, r pixelReader[T], w pixelWriter[T]) error {
	p := z.plan
	nchan := p.NChan

	for h := 0; h < p.Height; h++ {
		for x := 0; x < p.Width; x++ {
			if err := r.readPixel(ctx, z.row[x*nchan:(x+1)*nchan]); err != nil {
				return fmt.Errorf("resize %q: read row %d col %d: %w", p.Name, h, x, err)
			}
		}

		for dy := 0; dy < p.RatioHeight; dy++ {
			for x := 0; x < p.Width; x++ {
				px := z.row[x*nchan : (x+1)*nchan]
				for dx := 0; dx < p.RatioWidth; dx++ {
					if err := w.writePixel(ctx, px); err != nil {
						return fmt.Errorf("resize %q: write row %d: %w", p.Name, h*p.RatioHeight+dy, err)
					}
				}
			}
		}
	}

	z.log.V(1).Info("resized", "from", fmt.Sprintf("%dx%d", p.Height, p.Width),
		"to", fmt.Sprintf("%dx%d", p.NewHeight, p.NewWidth))
	return nil
}

// Wide resizes an image carried as one word of n_chan values per pixel.
func (z *Resizer[T]) Wide(ctx context.Context, image <-chan stream.Word[T], resized chan<- stream.Word[T]) error {
	return z.run(ctx, wideReader[T]{image}, wideWriter[T]{resized})
}

// Scalar resizes an image carried as one value per (pixel, channel).
func (z *Resizer[T]) Scalar(ctx context.Context, image <-chan T, resized chan<- T) error {
	return z.run(ctx, scalarReader[T]{image}, scalarWriter[T]{resized})
}

// Array resizes an image carried on one channel per feature-map channel.
func (z *Resizer[T]) Array(ctx context.Context, image []chan T, resized []chan T) error {
	if len(image) != z.plan.NChan || len(resized) != z.plan.NChan {
		return fmt.Errorf("%w: resize %q: %d/%d channels for n_chan %d", config.ErrInvalid,
			z.plan.Name, len(image), len(resized), z.plan.NChan)
	}
	return z.run(ctx, arrayReader[T]{image}, arrayWriter[T]{resized})
}

// Switch runs the resolved scalar or array layout over a channel slice.
// A scalar image travels on image[0]; an array image needs n_chan channels.
// Wide layouts carry words and cannot be switched onto scalar channels.
func (z *Resizer[T]) Switch(ctx context.Context, image []chan T, resized []chan T) error {
	switch z.plan.Resolved {
	case config.LayoutScalar:
		if len(image) < 1 || len(resized) < 1 {
			return fmt.Errorf("%w: resize %q: no channels", config.ErrInvalid, z.plan.Name)
		}
		return z.Scalar(ctx, image[0], resized[0])
	case config.LayoutArray:
		return z.Array(ctx, image, resized)
	default:
		return fmt.Errorf("%w: resize %q: layout %s has no channel switch", config.ErrInvalid,
			z.plan.Name, z.plan.Resolved)
	}
}
