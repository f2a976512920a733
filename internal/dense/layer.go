// Package dense implements the streaming affine layer: output = weights·input + bias.
//
// An Engine is built once from a validated configuration and a set of layer
// parameters. It exposes the computation three ways:
//
//   - Compute works on fully materialized vectors and dispatches to either
//     the latency (fully unrolled) or resource (shared lanes) strategy.
//   - Stream wraps Compute with word packing on both channel boundaries.
//   - StreamSingle is the resource-shared accumulation scheduler: it reads
//     one input scalar per step from a single-wide channel and folds the
//     n_in × n_out grid onto block_factor × reuse accumulator lanes.
package dense

import (
	"errors"
	"fmt"

	"github.com/hailam/nnstream/internal/weights"
)

// ErrShape is returned when layer parameters do not match the layer size.
var ErrShape = errors.New("dense: parameter shape mismatch")

// Number is the set of scalar types a layer can be instantiated with.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Layer holds the immutable parameters of one affine layer.
type Layer[W, B Number] struct {
	InputDimensions  int
	OutputDimensions int

	// Weights are row-major over (output, input).
	Weights []W
	Biases  []B
}

// NewLayer wraps flattened row-major weights and biases. The slices are
// copied so the caller may reuse them.
func NewLayer[W, B Number](nIn, nOut int, weights []W, biases []B) (*Layer[W, B], error) {
	if len(weights) != nIn*nOut {
		return nil, fmt.Errorf("%w: got %d weights, expected %d*%d", ErrShape, len(weights), nIn, nOut)
	}
	if len(biases) != nOut {
		return nil, fmt.Errorf("%w: got %d biases, expected %d", ErrShape, len(biases), nOut)
	}

	return &Layer[W, B]{
		InputDimensions:  nIn,
		OutputDimensions: nOut,
		Weights:          append([]W(nil), weights...),
		Biases:           append([]B(nil), biases...),
	}, nil
}

// LayerFrom converts stored parameters to a typed layer.
func LayerFrom[W, B Number](p *weights.Params) (*Layer[W, B], error) {
	w := make([]W, len(p.Weights))
	for i, v := range p.Weights {
		w[i] = W(v)
	}
	b := make([]B, len(p.Biases))
	for i, v := range p.Biases {
		b[i] = B(v)
	}
	return NewLayer(p.NIn, p.NOut, w, b)
}

// WeightIndex returns the flat weight index read by lane r, block b at
// input step i. Lanes are grouped first, then blocks, then inputs, so the
// lane/block pair (r, b) always owns output r*blockFactor + b.
func WeightIndex(nIn, blockFactor, i, r, b int) int {
	return i + nIn*(r*blockFactor+b)
}

// OutputIndex returns the output owned by lane r, block b.
func OutputIndex(blockFactor, r, b int) int {
	return r*blockFactor + b
}
