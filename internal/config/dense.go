package config

import "fmt"

// Dense configures one affine layer: output = weights·input + bias.
type Dense struct {
	Name        string   `json:"name"`
	NIn         int      `json:"n_in"`
	NOut        int      `json:"n_out"`
	ReuseFactor int      `json:"reuse_factor"`
	Strategy    Strategy `json:"strategy"`

	// Number of scalars per transfer word on the input and output side of
	// the packed stream entry point. Zero means one.
	InWordSize  int `json:"in_word_size,omitempty"`
	OutWordSize int `json:"out_word_size,omitempty"`

	ChannelDepth int `json:"channel_depth,omitempty"`
}

// DensePlan is the validated, derived form of a Dense config.
type DensePlan struct {
	Dense

	// Reuse is the effective reuse factor, min(ReuseFactor, NOut).
	Reuse int
	// BlockFactor is ceil(NOut / Reuse), the number of outputs per lane.
	BlockFactor int
	// Clamped reports that the requested reuse factor exceeded NOut.
	Clamped bool
	// Warnings lists corrections applied to the requested configuration.
	Warnings []string
}

// Plan validates d and derives the accumulator bank geometry.
func (d Dense) Plan() (DensePlan, error) {
	if d.NIn <= 0 || d.NOut <= 0 {
		return DensePlan{}, fmt.Errorf("%w: dense %q: n_in=%d n_out=%d must be positive",
			ErrInvalid, d.Name, d.NIn, d.NOut)
	}
	if d.ReuseFactor < 1 {
		return DensePlan{}, fmt.Errorf("%w: dense %q: reuse factor %d must be at least 1",
			ErrInvalid, d.Name, d.ReuseFactor)
	}
	if d.InWordSize < 0 || d.OutWordSize < 0 {
		return DensePlan{}, fmt.Errorf("%w: dense %q: negative word size", ErrInvalid, d.Name)
	}
	if _, ok := strategyNames[d.Strategy]; !ok {
		return DensePlan{}, fmt.Errorf("%w: dense %q: strategy %d", ErrInvalid, d.Name, int(d.Strategy))
	}

	p := DensePlan{Dense: d, Reuse: d.ReuseFactor}
	if p.InWordSize == 0 {
		p.InWordSize = 1
	}
	if p.OutWordSize == 0 {
		p.OutWordSize = 1
	}
	p.ChannelDepth = depthOrDefault(d.ChannelDepth)

	if d.ReuseFactor > d.NOut {
		p.Reuse = d.NOut
		p.Clamped = true
		p.Warnings = append(p.Warnings, fmt.Sprintf(
			"reuse factor %d exceeds n_out %d, clamped to %d", d.ReuseFactor, d.NOut, d.NOut))
	}
	if d.NOut%p.Reuse != 0 {
		return DensePlan{}, fmt.Errorf("%w: dense %q: n_out=%d reuse=%d",
			ErrReuseFactor, d.Name, d.NOut, p.Reuse)
	}
	p.BlockFactor = DivRoundUp(d.NOut, p.Reuse)

	return p, nil
}

// Lanes returns the number of parallel multiply-accumulate lanes.
func (p DensePlan) Lanes() int {
	if p.Strategy == StrategyLatency {
		return DivRoundUp(p.NIn*p.NOut, p.Reuse)
	}
	return p.BlockFactor * p.Reuse
}

// InWords returns the number of input transfer words per evaluation.
func (p DensePlan) InWords() int {
	return DivRoundUp(p.NIn, p.InWordSize)
}

// OutWords returns the number of output transfer words per evaluation.
func (p DensePlan) OutWords() int {
	return DivRoundUp(p.NOut, p.OutWordSize)
}
