package dense

// dot computes sum(A(weights[k]) * A(inputs[k])) for k < count in the
// accumulator type.
func dot[D, W, A Number](weights []W, inputs []D, count int) A {
	var sum A
	// Unroll by 4
	i := 0
	for ; i+4 <= count; i += 4 {
		sum += A(weights[i]) * A(inputs[i])
		sum += A(weights[i+1]) * A(inputs[i+1])
		sum += A(weights[i+2]) * A(inputs[i+2])
		sum += A(weights[i+3]) * A(inputs[i+3])
	}
	for ; i < count; i++ {
		sum += A(weights[i]) * A(inputs[i])
	}
	return sum
}
