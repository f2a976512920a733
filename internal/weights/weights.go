// Package weights reads and writes dense layer parameters.
//
// Binary format (little-endian):
//   - Header: Magic (4 bytes), Version (4 bytes), NIn (4 bytes), NOut (4 bytes),
//     Checksum (8 bytes, xxhash64 of the payload)
//   - Weights: NIn*NOut float32, row-major over (output, input)
//   - Biases: NOut float32
package weights

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Format constants
const (
	MagicNumber = 0x57534E4E // "NNSW"
	Version     = 1

	// maxElements bounds the allocation made from an untrusted header.
	maxElements = 1 << 28
)

var (
	ErrFormat   = errors.New("weights: malformed parameter data")
	ErrChecksum = errors.New("weights: checksum mismatch")
)

// FileHeader is the header of a parameter blob.
type FileHeader struct {
	Magic    uint32
	Version  uint32
	NIn      uint32
	NOut     uint32
	Checksum uint64
}

// Params are the parameters of one affine layer.
type Params struct {
	NIn     int
	NOut    int
	Weights []float32
	Biases  []float32
}

// NewParams returns zeroed parameters for an nIn × nOut layer.
func NewParams(nIn, nOut int) *Params {
	return &Params{
		NIn:     nIn,
		NOut:    nOut,
		Weights: make([]float32, nIn*nOut),
		Biases:  make([]float32, nOut),
	}
}

// Validate checks that the slices match the declared dimensions.
func (p *Params) Validate() error {
	if p.NIn <= 0 || p.NOut <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrFormat, p.NIn, p.NOut)
	}
	if len(p.Weights) != p.NIn*p.NOut {
		return fmt.Errorf("%w: %d weights for %dx%d", ErrFormat, len(p.Weights), p.NIn, p.NOut)
	}
	if len(p.Biases) != p.NOut {
		return fmt.Errorf("%w: %d biases for n_out %d", ErrFormat, len(p.Biases), p.NOut)
	}
	return nil
}

// Checksum returns the xxhash64 of the encoded weights and biases.
func (p *Params) Checksum() uint64 {
	d := xxhash.New()
	_ = binary.Write(d, binary.LittleEndian, p.Weights)
	_ = binary.Write(d, binary.LittleEndian, p.Biases)
	return d.Sum64()
}

// Write encodes p to w.
func (p *Params) Write(w io.Writer) error {
	if err := p.Validate(); err != nil {
		return err
	}

	header := FileHeader{
		Magic:    MagicNumber,
		Version:  Version,
		NIn:      uint32(p.NIn),
		NOut:     uint32(p.NOut),
		Checksum: p.Checksum(),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, p.Weights); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, p.Biases); err != nil {
		return fmt.Errorf("failed to write biases: %w", err)
	}
	return nil
}

// Read decodes parameters from r and verifies the checksum.
func Read(r io.Reader) (*Params, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: invalid magic number: expected %x, got %x", ErrFormat, MagicNumber, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version: expected %d, got %d", ErrFormat, Version, header.Version)
	}
	n := uint64(header.NIn) * uint64(header.NOut)
	if header.NIn == 0 || header.NOut == 0 || n > maxElements {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrFormat, header.NIn, header.NOut)
	}

	p := NewParams(int(header.NIn), int(header.NOut))
	if err := binary.Read(r, binary.LittleEndian, p.Weights); err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, p.Biases); err != nil {
		return nil, fmt.Errorf("failed to read biases: %w", err)
	}

	if sum := p.Checksum(); sum != header.Checksum {
		return nil, fmt.Errorf("%w: expected %016x, got %016x", ErrChecksum, header.Checksum, sum)
	}
	return p, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Params) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a blob produced by MarshalBinary.
func Unmarshal(data []byte) (*Params, error) {
	r := bytes.NewReader(data)
	p, err := Read(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, r.Len())
	}
	return p, nil
}

// Load reads parameters from a binary file.
func Load(filename string) (*Params, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Save writes parameters to a binary file.
func (p *Params) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}

	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
