package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Project is the on-disk configuration file: a set of named stages.
type Project struct {
	Dense  []Dense  `json:"dense"`
	Resize []Resize `json:"resize"`
}

// Load reads and validates a project file.
func Load(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a project from r and validates every stage in it.
func Decode(r io.Reader) (*Project, error) {
	var p Project
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate plans every stage and reports the first failure.
func (p *Project) Validate() error {
	seen := make(map[string]bool)
	for _, d := range p.Dense {
		if _, err := d.Plan(); err != nil {
			return err
		}
		if err := checkName(seen, d.Name); err != nil {
			return err
		}
	}
	for _, r := range p.Resize {
		if _, err := r.Plan(); err != nil {
			return err
		}
		if err := checkName(seen, r.Name); err != nil {
			return err
		}
	}
	return nil
}

func checkName(seen map[string]bool, name string) error {
	if name == "" {
		return fmt.Errorf("%w: stage without a name", ErrInvalid)
	}
	if seen[name] {
		return fmt.Errorf("%w: duplicate stage name %q", ErrInvalid, name)
	}
	seen[name] = true
	return nil
}

// DenseLayer returns the dense stage called name.
func (p *Project) DenseLayer(name string) (Dense, error) {
	for _, d := range p.Dense {
		if d.Name == name {
			return d, nil
		}
	}
	return Dense{}, fmt.Errorf("%w: dense %q", ErrUnknownLayer, name)
}

// ResizeLayer returns the resize stage called name.
func (p *Project) ResizeLayer(name string) (Resize, error) {
	for _, r := range p.Resize {
		if r.Name == name {
			return r, nil
		}
	}
	return Resize{}, fmt.Errorf("%w: resize %q", ErrUnknownLayer, name)
}
