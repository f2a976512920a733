package dense

// bank is the accumulator array of the resource strategy, block × reuse
// registers stored block-major (acc[b][r] lives at b*reuse + r).
type bank[A Number] struct {
	reuse int
	block int
	acc   []A
}

func newBank[A Number](reuse, block int) *bank[A] {
	return &bank[A]{
		reuse: reuse,
		block: block,
		acc:   make([]A, reuse*block),
	}
}

// init loads acc[b][r] = bias[r*block + b].
func (k *bank[A]) init(biases func(o int) A) {
	for r := 0; r < k.reuse; r++ {
		for b := 0; b < k.block; b++ {
			k.acc[b*k.reuse+r] = biases(OutputIndex(k.block, r, b))
		}
	}
}

// mac is the per-lane step: one multiply-accumulate on register (b, r).
func (k *bank[A]) mac(b, r int, x, w A) {
	k.acc[b*k.reuse+r] += x * w
}

// drain hands every register to emit in output order: lane-major, then block.
func (k *bank[A]) drain(emit func(o int, v A) error) error {
	for r := 0; r < k.reuse; r++ {
		for b := 0; b < k.block; b++ {
			if err := emit(OutputIndex(k.block, r, b), k.acc[b*k.reuse+r]); err != nil {
				return err
			}
		}
	}
	return nil
}

// drainInto copies the bank into res in output order.
func drainInto[A, R Number](k *bank[A], res []R) {
	for r := 0; r < k.reuse; r++ {
		for b := 0; b < k.block; b++ {
			res[OutputIndex(k.block, r, b)] = R(k.acc[b*k.reuse+r])
		}
	}
}
