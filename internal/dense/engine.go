package dense

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/hailam/nnstream/internal/config"
	"github.com/hailam/nnstream/internal/stream"
)

// Engine evaluates one dense layer. Type parameters follow the layer's
// precisions: D input data, R result, W weight, B bias, A accumulator.
//
// An Engine owns its scratch buffers and accumulator bank; it must not be
// used from more than one goroutine at a time.
type Engine[D, R, W, B, A Number] struct {
	plan  config.DensePlan
	layer *Layer[W, B]
	log   logr.Logger

	data []D
	res  []R
	bank *bank[A]
}

// Option customizes an Engine.
type Option func(*options)

type options struct {
	log logr.Logger
}

// WithLogger sets the logger used for configuration diagnostics and
// per-evaluation tracing at V(1).
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

// New validates cfg and builds an engine for layer. A requested reuse
// factor above n_out is clamped and reported through the logger.
func New[D, R, W, B, A Number](cfg config.Dense, layer *Layer[W, B], opts ...Option) (*Engine[D, R, W, B, A], error) {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}
	if layer.InputDimensions != plan.NIn || layer.OutputDimensions != plan.NOut {
		return nil, fmt.Errorf("%w: layer %q is %dx%d, config wants %dx%d", ErrShape, plan.Name,
			layer.InputDimensions, layer.OutputDimensions, plan.NIn, plan.NOut)
	}

	log := o.log.WithValues("layer", plan.Name)
	for _, w := range plan.Warnings {
		log.Info("configuration corrected", "warning", w)
	}

	return &Engine[D, R, W, B, A]{
		plan:  plan,
		layer: layer,
		log:   log,
		data:  make([]D, plan.NIn),
		res:   make([]R, plan.NOut),
		bank:  newBank[A](plan.Reuse, plan.BlockFactor),
	}, nil
}

// Plan returns the validated configuration the engine was built from.
func (e *Engine[D, R, W, B, A]) Plan() config.DensePlan {
	return e.plan
}

// Compute sets res = weights·data + bias using the configured strategy.
// data must hold n_in elements and res n_out.
func (e *Engine[D, R, W, B, A]) Compute(data []D, res []R) {
	if e.plan.Strategy == config.StrategyLatency {
		e.computeLatency(data, res)
	} else {
		e.computeResource(data, res)
	}
}

// computeLatency gives every output its own reduction over all inputs.
func (e *Engine[D, R, W, B, A]) computeLatency(data []D, res []R) {
	nIn := e.plan.NIn
	for o := 0; o < e.plan.NOut; o++ {
		acc := dot[D, W, A](e.layer.Weights[o*nIn:], data, nIn)
		res[o] = R(acc + A(e.layer.Biases[o]))
	}
}

// computeResource runs the shared-lane schedule over a materialized vector.
func (e *Engine[D, R, W, B, A]) computeResource(data []D, res []R) {
	e.initBank()
	for i, x := range data[:e.plan.NIn] {
		e.step(i, A(x))
	}
	drainInto(e.bank, res)
}

func (e *Engine[D, R, W, B, A]) initBank() {
	biases := e.layer.Biases
	e.bank.init(func(o int) A { return A(biases[o]) })
}

// step feeds input i to every lane of the bank. All reuse × block
// multiply-accumulates belong to the same cycle.
func (e *Engine[D, R, W, B, A]) step(i int, x A) {
	nIn, block := e.plan.NIn, e.plan.BlockFactor
	weights := e.layer.Weights
	for r := 0; r < e.plan.Reuse; r++ {
		for b := 0; b < block; b++ {
			e.bank.mac(b, r, x, A(weights[WeightIndex(nIn, block, i, r, b)]))
		}
	}
}

// Stream reads one input vector packed into words of InWordSize, computes
// the layer and writes the result packed into words of OutWordSize.
func (e *Engine[D, R, W, B, A]) Stream(ctx context.Context, in <-chan stream.Word[D], out chan<- stream.Word[R]) error {
	if err := stream.Unpack(ctx, in, e.data, e.plan.InWordSize); err != nil {
		return fmt.Errorf("dense %q: read input: %w", e.plan.Name, err)
	}

	e.Compute(e.data, e.res)
	e.log.V(1).Info("evaluated", "strategy", e.plan.Strategy, "words_in", e.plan.InWords())

	if err := stream.Pack(ctx, out, e.res, e.plan.OutWordSize); err != nil {
		return fmt.Errorf("dense %q: write result: %w", e.plan.Name, err)
	}
	return nil
}

// StreamSingle is the resource-shared accumulation scheduler. It reads
// exactly n_in scalars from in, one per step, accumulating each into every
// lane of the bank, then drains n_out results to out in output order.
// No output is written until all inputs have been consumed.
func (e *Engine[D, R, W, B, A]) StreamSingle(ctx context.Context, in <-chan D, out chan<- R) error {
	e.initBank()

	for i := 0; i < e.plan.NIn; i++ {
		x, err := stream.Read(ctx, in)
		if err != nil {
			return fmt.Errorf("dense %q: read input %d: %w", e.plan.Name, i, err)
		}
		e.step(i, A(x))
	}
	e.log.V(1).Info("accumulated", "inputs", e.plan.NIn, "lanes", e.plan.Reuse*e.plan.BlockFactor)

	return e.bank.drain(func(o int, v A) error {
		if err := stream.Write(ctx, out, R(v)); err != nil {
			return fmt.Errorf("dense %q: write output %d: %w", e.plan.Name, o, err)
		}
		return nil
	})
}

// Run evaluates count vectors back to back through StreamSingle.
func (e *Engine[D, R, W, B, A]) Run(ctx context.Context, in <-chan D, out chan<- R, count int) error {
	for n := 0; n < count; n++ {
		if err := e.StreamSingle(ctx, in, out); err != nil {
			return err
		}
	}
	return nil
}
