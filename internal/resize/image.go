package resize

import (
	"context"
	"fmt"
	"image"

	"github.com/go-logr/logr"
	"golang.org/x/image/draw"

	"github.com/hailam/nnstream/internal/config"
	"github.com/hailam/nnstream/internal/pipeline"
	"github.com/hailam/nnstream/internal/stream"
)

// RGBAChannels is the channel count of image streams.
const RGBAChannels = 4

// ToRGBA converts any image to an RGBA image whose bounds start at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst
}

// ImageConfig returns a resize config for scaling img by integer factors.
func ImageConfig(name string, img image.Image, scaleH, scaleW int, layout config.Layout) config.Resize {
	b := img.Bounds()
	cfg := config.Resize{
		Name:      name,
		Height:    b.Dy(),
		Width:     b.Dx(),
		NewHeight: b.Dy() * scaleH,
		NewWidth:  b.Dx() * scaleW,
		NChan:     RGBAChannels,
		Layout:    layout,
	}
	if layout == config.LayoutAuto {
		cfg.DataTransferOut = RGBAChannels
	}
	return cfg
}

func feedPixels(ctx context.Context, img *image.RGBA, w pixelWriter[uint8]) error {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			if err := w.writePixel(ctx, img.Pix[off:off+RGBAChannels]); err != nil {
				return fmt.Errorf("feed pixel (%d,%d): %w", y, x, err)
			}
		}
	}
	return nil
}

func collectPixels(ctx context.Context, r pixelReader[uint8], height, width int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := img.PixOffset(x, y)
			if err := r.readPixel(ctx, img.Pix[off:off+RGBAChannels]); err != nil {
				return nil, fmt.Errorf("collect pixel (%d,%d): %w", y, x, err)
			}
		}
	}
	return img, nil
}

// FeedImage writes img row-major as one RGBA word per pixel.
func FeedImage(ctx context.Context, img *image.RGBA, out chan<- stream.Word[uint8]) error {
	return feedPixels(ctx, img, wideWriter[uint8]{out})
}

// CollectImage reads a height×width RGBA image carried one word per pixel.
func CollectImage(ctx context.Context, in <-chan stream.Word[uint8], height, width int) (*image.RGBA, error) {
	return collectPixels(ctx, wideReader[uint8]{in}, height, width)
}

// ScaleImage up-samples img by integer factors through a Resizer using the
// given channel layout. Producer, resizer and consumer run as concurrent
// pipeline stages over bounded channels.
func ScaleImage(ctx context.Context, img image.Image, scaleH, scaleW int, layout config.Layout, log logr.Logger) (*image.RGBA, error) {
	src := ToRGBA(img)
	z, err := New[uint8](ImageConfig("image", src, scaleH, scaleW, layout), WithLogger(log))
	if err != nil {
		return nil, err
	}
	p := z.Plan()

	var (
		feed    pixelWriter[uint8]
		collect pixelReader[uint8]
		resize  pipeline.Stage
	)
	switch p.Resolved {
	case config.LayoutWide:
		in := stream.New[stream.Word[uint8]](p.ChannelDepth)
		out := stream.New[stream.Word[uint8]](p.ChannelDepth)
		feed, collect = wideWriter[uint8]{in}, wideReader[uint8]{out}
		resize = func(ctx context.Context) error { return z.Wide(ctx, in, out) }
	case config.LayoutScalar:
		in := stream.New[uint8](p.ChannelDepth)
		out := stream.New[uint8](p.ChannelDepth)
		feed, collect = scalarWriter[uint8]{in}, scalarReader[uint8]{out}
		resize = func(ctx context.Context) error { return z.Scalar(ctx, in, out) }
	default:
		in := stream.NewArray[uint8](p.NChan, p.ChannelDepth)
		out := stream.NewArray[uint8](p.NChan, p.ChannelDepth)
		feed, collect = arrayWriter[uint8]{in}, arrayReader[uint8]{out}
		resize = func(ctx context.Context) error { return z.Switch(ctx, in, out) }
	}

	var dst *image.RGBA
	err = pipeline.Run(ctx,
		func(ctx context.Context) error { return feedPixels(ctx, src, feed) },
		resize,
		func(ctx context.Context) error {
			var err error
			dst, err = collectPixels(ctx, collect, p.NewHeight, p.NewWidth)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return dst, nil
}
