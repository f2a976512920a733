package dense

import "github.com/hailam/nnstream/internal/config"

// Report summarizes the fixed resource and timing footprint of a layer.
type Report struct {
	Name        string
	Strategy    config.Strategy
	NIn, NOut   int
	Reuse       int
	BlockFactor int

	// Multipliers is the number of parallel multiply-accumulate lanes.
	Multipliers int
	// II is the initiation interval in cycles.
	II int
	// AccumulateCycles is the cycle count spent consuming inputs.
	AccumulateCycles int
	// DrainCycles is the cycle count spent writing outputs.
	DrainCycles int
	// WeightCount is the number of stored weights.
	WeightCount int
}

// Latency returns the total cycles from first input to last output.
func (r Report) Latency() int {
	return r.AccumulateCycles + r.DrainCycles
}

// NewReport derives the report for a validated plan.
func NewReport(p config.DensePlan) Report {
	r := Report{
		Name:        p.Name,
		Strategy:    p.Strategy,
		NIn:         p.NIn,
		NOut:        p.NOut,
		Reuse:       p.Reuse,
		BlockFactor: p.BlockFactor,
		Multipliers: p.Lanes(),
		II:          p.Reuse,
		WeightCount: p.NIn * p.NOut,
	}

	if p.Strategy == config.StrategyLatency {
		// One vector every II cycles; outputs leave in packed words.
		r.AccumulateCycles = r.II
		r.DrainCycles = p.OutWords()
	} else {
		r.AccumulateCycles = p.NIn * r.II
		r.DrainCycles = p.NOut
	}
	return r
}

// Report returns the engine's resource report.
func (e *Engine[D, R, W, B, A]) Report() Report {
	return NewReport(e.plan)
}
