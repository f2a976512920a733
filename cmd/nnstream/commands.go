package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/klauspost/cpuid/v2"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hailam/nnstream/internal/config"
	"github.com/hailam/nnstream/internal/dense"
	"github.com/hailam/nnstream/internal/pipeline"
	"github.com/hailam/nnstream/internal/resize"
	"github.com/hailam/nnstream/internal/storage"
	"github.com/hailam/nnstream/internal/stream"
	"github.com/hailam/nnstream/internal/weights"
)

// paramBytes is the stored size of one parameter.
const paramBytes = 4

func runPlan(ctx context.Context, log logr.Logger, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	cfgPath := fs.String("config", "nnstream.json", "project config file")
	fs.Parse(args)

	proj, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	printPlan(os.Stdout, log, proj)
	return nil
}

func printPlan(out io.Writer, log logr.Logger, proj *config.Project) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	if len(proj.Dense) > 0 {
		fmt.Fprintln(tw, "DENSE\tSTRATEGY\tSHAPE\tREUSE\tBLOCK\tMULTIPLIERS\tII\tLATENCY\tPARAMS")
	}
	for _, d := range proj.Dense {
		p, _ := d.Plan()
		for _, w := range p.Warnings {
			log.Info("configuration corrected", "layer", p.Name, "warning", w)
		}
		r := dense.NewReport(p)
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%d\t%s\t%d\t%s\t%s\n",
			r.Name, r.Strategy, r.NIn, r.NOut, r.Reuse, r.BlockFactor,
			humanize.Comma(int64(r.Multipliers)), r.II,
			humanize.Comma(int64(r.Latency())),
			humanize.Bytes(uint64((r.WeightCount+r.NOut)*paramBytes)))
	}

	if len(proj.Resize) > 0 {
		fmt.Fprintln(tw, "RESIZE\tLAYOUT\tFROM\tTO\tRATIO\tCHANNELS\tREADS\tWRITES\tROW BUFFER")
	}
	for _, rc := range proj.Resize {
		p, _ := rc.Plan()
		fmt.Fprintf(tw, "%s\t%s\t%dx%dx%d\t%dx%d\t%dx%d\t%d\t%s\t%s\t%s\n",
			p.Name, p.Resolved, p.Height, p.Width, p.NChan, p.NewHeight, p.NewWidth,
			p.RatioHeight, p.RatioWidth, p.Channels(),
			humanize.Comma(int64(p.InTransfers())), humanize.Comma(int64(p.OutTransfers())),
			humanize.Comma(int64(p.Width*p.NChan)))
	}
	tw.Flush()
}

func runDense(ctx context.Context, log logr.Logger, args []string) error {
	fs := flag.NewFlagSet("dense", flag.ExitOnError)
	cfgPath := fs.String("config", "nnstream.json", "project config file")
	layerName := fs.String("layer", "", "dense layer name")
	input := fs.String("input", "", "comma separated input vector")
	dbDir := fs.String("db", "", "parameter store directory (default: platform data dir)")
	weightsFile := fs.String("weights", "", "binary parameter file (overrides -db)")
	fs.Parse(args)

	proj, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	cfg, err := proj.DenseLayer(*layerName)
	if err != nil {
		return err
	}

	params, err := loadParams(*layerName, *weightsFile, *dbDir)
	if err != nil {
		return err
	}
	layer, err := dense.LayerFrom[float32, float32](params)
	if err != nil {
		return err
	}
	eng, err := dense.New[float32, float32, float32, float32, float64](cfg, layer, dense.WithLogger(log))
	if err != nil {
		return err
	}

	x, err := weights.ReadText(strings.NewReader(*input), cfg.NIn)
	if err != nil {
		return fmt.Errorf("bad -input: %w", err)
	}

	res, err := evaluate(ctx, eng, x)
	if err != nil {
		return err
	}

	strs := make([]string, len(res))
	for i, v := range res {
		strs[i] = fmt.Sprint(v)
	}
	fmt.Println(strings.Join(strs, ","))
	return nil
}

// evaluate streams x through the engine. Single-wide resource layers use
// the accumulation scheduler directly; anything else goes through the
// packed entry point.
func evaluate[A dense.Number](ctx context.Context, eng *dense.Engine[float32, float32, float32, float32, A], x []float32) ([]float32, error) {
	p := eng.Plan()
	var res []float32

	if p.Strategy == config.StrategyResource && p.InWordSize == 1 && p.OutWordSize == 1 {
		in := stream.New[float32](p.ChannelDepth)
		out := stream.New[float32](p.ChannelDepth)
		err := pipeline.Run(ctx,
			func(ctx context.Context) error { return pipeline.Feed(ctx, in, x) },
			func(ctx context.Context) error { return eng.StreamSingle(ctx, in, out) },
			func(ctx context.Context) error {
				var err error
				res, err = pipeline.Collect(ctx, out, p.NOut)
				return err
			},
		)
		return res, err
	}

	in := stream.New[stream.Word[float32]](p.ChannelDepth)
	out := stream.New[stream.Word[float32]](p.ChannelDepth)
	res = make([]float32, p.NOut)
	err := pipeline.Run(ctx,
		func(ctx context.Context) error { return stream.Pack(ctx, in, x, p.InWordSize) },
		func(ctx context.Context) error { return eng.Stream(ctx, in, out) },
		func(ctx context.Context) error { return stream.Unpack(ctx, out, res, p.OutWordSize) },
	)
	return res, err
}

func loadParams(name, file, dbDir string) (*weights.Params, error) {
	if file != "" {
		return weights.Load(file)
	}

	s, err := openStore(dbDir)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.LoadLayer(name)
}

func openStore(dir string) (*storage.Storage, error) {
	if dir == "" {
		return storage.OpenDefault()
	}
	return storage.Open(dir)
}

func runImport(ctx context.Context, log logr.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbDir := fs.String("db", "", "parameter store directory (default: platform data dir)")
	layerName := fs.String("layer", "", "layer name to store under")
	weightsFile := fs.String("weights", "", "binary parameter file")
	wtxt := fs.String("wtxt", "", "text weight file")
	btxt := fs.String("btxt", "", "text bias file")
	nIn := fs.Int("n-in", 0, "layer inputs (text import)")
	nOut := fs.Int("n-out", 0, "layer outputs (text import)")
	inputMajor := fs.Bool("input-major", false, "text weights are laid out (input, output)")
	fs.Parse(args)

	if *layerName == "" {
		return errors.New("import: -layer is required")
	}

	var (
		params *weights.Params
		err    error
	)
	switch {
	case *weightsFile != "":
		params, err = weights.Load(*weightsFile)
	case *wtxt != "" && *btxt != "":
		params, err = weights.LoadText(*wtxt, *btxt, *nIn, *nOut, *inputMajor)
	default:
		return errors.New("import: need -weights or both -wtxt and -btxt")
	}
	if err != nil {
		return err
	}

	s, err := openStore(*dbDir)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SaveLayer(*layerName, params); err != nil {
		return err
	}
	log.Info("layer stored", "layer", *layerName, "n_in", params.NIn, "n_out", params.NOut,
		"checksum", fmt.Sprintf("%016x", params.Checksum()))
	return nil
}

func runResize(ctx context.Context, log logr.Logger, args []string) error {
	fs := flag.NewFlagSet("resize", flag.ExitOnError)
	inPath := fs.String("in", "", "input image (png, jpeg, bmp, tiff, webp)")
	outPath := fs.String("out", "", "output image (png, jpeg, bmp, tiff)")
	scaleH := fs.Int("scale-h", 2, "vertical replication ratio")
	scaleW := fs.Int("scale-w", 2, "horizontal replication ratio")
	layoutName := fs.String("layout", "wide", "channel layout: wide, scalar, array or auto")
	fs.Parse(args)

	if *inPath == "" || *outPath == "" {
		return errors.New("resize: -in and -out are required")
	}
	layout, err := config.ParseLayout(*layoutName)
	if err != nil {
		return err
	}

	src, err := decodeImage(*inPath)
	if err != nil {
		return err
	}
	dst, err := resize.ScaleImage(ctx, src, *scaleH, *scaleW, layout, log)
	if err != nil {
		return err
	}
	if err := encodeImage(*outPath, dst); err != nil {
		return err
	}

	b := src.Bounds()
	log.Info("image resized", "from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"to", fmt.Sprintf("%dx%d", dst.Bounds().Dx(), dst.Bounds().Dy()), "layout", layout)
	return nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func encodeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		err = bmp.Encode(f, img)
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, nil)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func runInfo(ctx context.Context, log logr.Logger, args []string) error {
	c := cpuid.CPU
	fmt.Printf("cpu:        %s\n", c.BrandName)
	fmt.Printf("cores:      %d physical, %d logical\n", c.PhysicalCores, c.LogicalCores)
	fmt.Printf("gomaxprocs: %d\n", runtime.GOMAXPROCS(0))
	if c.Cache.L1D > 0 {
		fmt.Printf("l1d cache:  %s\n", humanize.IBytes(uint64(c.Cache.L1D)))
	}
	fmt.Printf("fma:        %v\n", c.Supports(cpuid.FMA3) || c.Supports(cpuid.ASIMD))
	fmt.Printf("avx2:       %v\n", c.Supports(cpuid.AVX2))
	fmt.Printf("avx512:     %v\n", c.Supports(cpuid.AVX512F))

	log.V(1).Info("host", "vendor", c.VendorString, "family", c.Family, "model", c.Model)
	return nil
}
