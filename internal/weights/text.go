package weights

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadText parses exactly n comma or whitespace separated values from r.
func ReadText(r io.Reader, n int) ([]float32, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative value count %d", ErrFormat, n)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	out := make([]float32, 0, n)
	for sc.Scan() {
		for _, field := range strings.Split(sc.Text(), ",") {
			if field == "" {
				continue
			}
			if len(out) == n {
				return nil, fmt.Errorf("%w: more than %d values", ErrFormat, n)
			}
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: value %d: %v", ErrFormat, len(out), err)
			}
			out = append(out, float32(v))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: got %d values, expected %d", ErrFormat, len(out), n)
	}
	return out, nil
}

// LoadText reads weights and biases from two text files. If inputMajor is
// set the weight file is laid out (input, output) and is transposed.
func LoadText(weightsFile, biasesFile string, nIn, nOut int, inputMajor bool) (*Params, error) {
	if nIn <= 0 || nOut <= 0 {
		return nil, fmt.Errorf("%w: layer is %dx%d", ErrFormat, nIn, nOut)
	}
	w, err := readTextFile(weightsFile, nIn*nOut)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}
	b, err := readTextFile(biasesFile, nOut)
	if err != nil {
		return nil, fmt.Errorf("failed to read biases: %w", err)
	}
	if inputMajor {
		w = Transpose(w, nIn, nOut)
	}
	return &Params{NIn: nIn, NOut: nOut, Weights: w, Biases: b}, nil
}

func readTextFile(filename string, n int) ([]float32, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadText(f, n)
}

// Transpose converts an input-major (rows × cols) matrix to its transpose.
func Transpose(m []float32, rows, cols int) []float32 {
	out := make([]float32, len(m))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = m[i*cols+j]
		}
	}
	return out
}
