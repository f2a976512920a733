package resize

import (
	"context"
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/image/draw"

	"github.com/hailam/nnstream/internal/config"
	"github.com/hailam/nnstream/internal/pipeline"
	"github.com/hailam/nnstream/internal/stream"
)

func newResizer(t *testing.T, cfg config.Resize) *Resizer[int] {
	t.Helper()
	z, err := New[int](cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return z
}

// resizeScalar runs a scalar-layout resizer over pixels and returns the
// logical output sequence.
func resizeScalar(t *testing.T, z *Resizer[int], pixels []int) []int {
	t.Helper()
	p := z.Plan()
	in := stream.New[int](1)
	out := stream.New[int](1)

	var got []int
	err := pipeline.Run(context.Background(),
		func(ctx context.Context) error { return pipeline.Feed(ctx, in, pixels) },
		func(ctx context.Context) error { return z.Scalar(ctx, in, out) },
		func(ctx context.Context) error {
			var err error
			got, err = pipeline.Collect(ctx, out, p.NewHeight*p.NewWidth*p.NChan)
			return err
		},
	)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	return got
}

func resizeWide(t *testing.T, z *Resizer[int], pixels []int) []int {
	t.Helper()
	p := z.Plan()
	ctx := context.Background()
	in := stream.New[stream.Word[int]](p.Height * p.Width)
	out := stream.New[stream.Word[int]](p.NewHeight * p.NewWidth)

	for off := 0; off < len(pixels); off += p.NChan {
		in <- stream.Word[int](slices.Clone(pixels[off : off+p.NChan]))
	}
	if err := z.Wide(ctx, in, out); err != nil {
		t.Fatalf("Wide failed: %v", err)
	}

	var got []int
	for range p.NewHeight * p.NewWidth {
		w := <-out
		if w.Size() != p.NChan {
			t.Fatalf("got word of %d elements, expected %d", w.Size(), p.NChan)
		}
		got = append(got, w...)
	}
	return got
}

func resizeArray(t *testing.T, z *Resizer[int], pixels []int) []int {
	t.Helper()
	p := z.Plan()
	ctx := context.Background()
	in := stream.NewArray[int](p.NChan, p.Height*p.Width)
	out := stream.NewArray[int](p.NChan, p.NewHeight*p.NewWidth)

	for i, v := range pixels {
		in[i%p.NChan] <- v
	}
	if err := z.Switch(ctx, in, out); err != nil {
		t.Fatalf("Switch failed: %v", err)
	}

	var got []int
	for range p.NewHeight * p.NewWidth {
		for j := range p.NChan {
			got = append(got, <-out[j])
		}
	}
	return got
}

func TestScenario2x2To4x4(t *testing.T) {
	z := newResizer(t, config.Resize{Name: "up", Height: 2, Width: 2, NewHeight: 4, NewWidth: 4, NChan: 1,
		Layout: config.LayoutScalar})

	got := resizeScalar(t, z, []int{1, 2, 3, 4})
	expected := []int{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	if !slices.Equal(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}
}

func TestRatioOneIsIdentity(t *testing.T) {
	cfg := config.Resize{Name: "id", Height: 3, Width: 4, NewHeight: 3, NewWidth: 4, NChan: 2}
	pixels := make([]int, 3*4*2)
	for i := range pixels {
		pixels[i] = i*i - 5
	}

	cfg.Layout = config.LayoutScalar
	if got := resizeScalar(t, newResizer(t, cfg), pixels); !slices.Equal(got, pixels) {
		t.Errorf("scalar: got %v, expected %v", got, pixels)
	}
	cfg.Layout = config.LayoutWide
	if got := resizeWide(t, newResizer(t, cfg), pixels); !slices.Equal(got, pixels) {
		t.Errorf("wide: got %v, expected %v", got, pixels)
	}
	cfg.Layout = config.LayoutArray
	if got := resizeArray(t, newResizer(t, cfg), pixels); !slices.Equal(got, pixels) {
		t.Errorf("array: got %v, expected %v", got, pixels)
	}
}

func TestLayoutsAgree(t *testing.T) {
	base := config.Resize{Name: "rgb", Height: 2, Width: 2, NewHeight: 4, NewWidth: 6, NChan: 3}
	pixels := []int{
		10, 11, 12, 20, 21, 22,
		30, 31, 32, 40, 41, 42,
	}

	// Expected logical sequence, built directly from the replication rule.
	var expected []int
	for y := range base.NewHeight {
		for x := range base.NewWidth {
			sy, sx := y/2, x/3
			off := (sy*base.Width + sx) * base.NChan
			expected = append(expected, pixels[off:off+base.NChan]...)
		}
	}

	wide := base
	wide.Layout = config.LayoutWide
	scalar := base
	scalar.Layout = config.LayoutAuto
	scalar.DataTransferOut = 1
	array := base
	array.Layout = config.LayoutAuto
	array.DataTransferOut = 3

	results := map[string][]int{
		"wide":   resizeWide(t, newResizer(t, wide), pixels),
		"scalar": resizeScalar(t, newResizer(t, scalar), pixels),
		"array":  resizeArray(t, newResizer(t, array), pixels),
	}
	for name, got := range results {
		if !slices.Equal(got, expected) {
			t.Errorf("%s: got %v, expected %v", name, got, expected)
		}
	}
}

func TestSwitchSingleChannel(t *testing.T) {
	z := newResizer(t, config.Resize{Name: "sw", Height: 1, Width: 2, NewHeight: 2, NewWidth: 2, NChan: 2,
		DataTransferOut: 1})
	if z.Plan().Resolved != config.LayoutScalar {
		t.Fatalf("got layout %v, expected scalar", z.Plan().Resolved)
	}

	ctx := context.Background()
	in := stream.NewArray[int](1, 4)
	out := stream.NewArray[int](1, 8)
	for _, v := range []int{1, 2, 3, 4} {
		in[0] <- v
	}
	if err := z.Switch(ctx, in, out); err != nil {
		t.Fatalf("Switch failed: %v", err)
	}
	got, _ := pipeline.Collect(ctx, out[0], 8)
	if expected := []int{1, 2, 3, 4, 1, 2, 3, 4}; !slices.Equal(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}
}

func TestSwitchFollowsResolvedLayout(t *testing.T) {
	ctx := context.Background()

	// Explicit scalar layout with no transfer hint stays on channel 0.
	z := newResizer(t, config.Resize{Name: "sc", Height: 1, Width: 1, NewHeight: 1, NewWidth: 2, NChan: 3,
		Layout: config.LayoutScalar})
	in := stream.NewArray[int](1, 3)
	out := stream.NewArray[int](1, 6)
	for _, v := range []int{7, 8, 9} {
		in[0] <- v
	}
	if err := z.Switch(ctx, in, out); err != nil {
		t.Fatalf("Switch failed: %v", err)
	}
	got, _ := pipeline.Collect(ctx, out[0], 6)
	if expected := []int{7, 8, 9, 7, 8, 9}; !slices.Equal(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}

	wide := newResizer(t, config.Resize{Name: "w", Height: 1, Width: 1, NewHeight: 1, NewWidth: 1, NChan: 1,
		Layout: config.LayoutWide})
	if err := wide.Switch(ctx, stream.NewArray[int](1, 1), stream.NewArray[int](1, 1)); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("wide layout: got %v, expected ErrInvalid", err)
	}
}

func TestRowReadBeforeWrite(t *testing.T) {
	// Half a row supplied: nothing may be emitted yet.
	z := newResizer(t, config.Resize{Name: "row", Height: 1, Width: 4, NewHeight: 2, NewWidth: 8, NChan: 1,
		Layout: config.LayoutScalar})

	ctx, cancel := context.WithCancel(context.Background())
	in := stream.New[int](4)
	out := stream.New[int](16)
	in <- 1
	in <- 2

	done := make(chan error, 1)
	go func() { done <- z.Scalar(ctx, in, out) }()

	time.Sleep(20 * time.Millisecond)
	if len(out) != 0 {
		t.Errorf("resizer wrote %d values before the row was complete", len(out))
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, expected context.Canceled", err)
	}
}

func TestNewRejects(t *testing.T) {
	_, err := New[int](config.Resize{Name: "bad", Height: 2, Width: 3, NewHeight: 4, NewWidth: 4, NChan: 1})
	if !errors.Is(err, config.ErrResizeRatio) {
		t.Errorf("got %v, expected ErrResizeRatio", err)
	}
}

func TestArrayChannelCount(t *testing.T) {
	z := newResizer(t, config.Resize{Name: "a", Height: 1, Width: 1, NewHeight: 1, NewWidth: 1, NChan: 3,
		Layout: config.LayoutArray})
	err := z.Array(context.Background(), stream.NewArray[int](2, 1), stream.NewArray[int](3, 1))
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("got %v, expected ErrInvalid", err)
	}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(40 * x), uint8(60 * y), uint8(x ^ y), 255})
		}
	}
	return img
}

func TestScaleImageMatchesNearestNeighbor(t *testing.T) {
	src := testImage(5, 3)

	for _, tc := range []struct {
		scaleH, scaleW int
		layout         config.Layout
	}{
		{2, 2, config.LayoutWide},
		{3, 1, config.LayoutScalar},
		{1, 4, config.LayoutArray},
		{2, 3, config.LayoutAuto},
	} {
		got, err := ScaleImage(context.Background(), src, tc.scaleH, tc.scaleW, tc.layout, logr.Discard())
		if err != nil {
			t.Fatalf("%+v: ScaleImage failed: %v", tc, err)
		}

		expected := image.NewRGBA(image.Rect(0, 0, 5*tc.scaleW, 3*tc.scaleH))
		draw.NearestNeighbor.Scale(expected, expected.Bounds(), src, src.Bounds(), draw.Src, nil)

		if !slices.Equal(got.Pix, expected.Pix) {
			t.Errorf("%+v: output differs from x/image nearest-neighbor scaling", tc)
		}
	}
}

func TestToRGBAOffsetBounds(t *testing.T) {
	gray := image.NewGray(image.Rect(2, 3, 4, 5))
	gray.SetGray(2, 3, color.Gray{Y: 200})

	rgba := ToRGBA(gray)
	if rgba.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("got bounds %v", rgba.Bounds())
	}
	if c := rgba.RGBAAt(0, 0); c.R != 200 || c.A != 255 {
		t.Errorf("got %v", c)
	}
}

func TestFeedCollectImage(t *testing.T) {
	src := testImage(3, 2)
	ctx := context.Background()
	ch := stream.New[stream.Word[uint8]](6)
	if err := FeedImage(ctx, src, ch); err != nil {
		t.Fatalf("FeedImage failed: %v", err)
	}
	got, err := CollectImage(ctx, ch, 2, 3)
	if err != nil {
		t.Fatalf("CollectImage failed: %v", err)
	}
	if !slices.Equal(got.Pix, src.Pix) {
		t.Error("image changed across feed/collect")
	}
}

func BenchmarkResizeWide(b *testing.B) {
	cfg := config.Resize{Name: "bench", Height: 32, Width: 32, NewHeight: 64, NewWidth: 64, NChan: 4,
		Layout: config.LayoutWide}
	z, _ := New[uint8](cfg)
	ctx := context.Background()
	in := stream.New[stream.Word[uint8]](32 * 32)
	out := stream.New[stream.Word[uint8]](64 * 64)
	px := stream.NewWord[uint8](4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range 32 * 32 {
			in <- px
		}
		_ = z.Wide(ctx, in, out)
		for range 64 * 64 {
			<-out
		}
	}
}
