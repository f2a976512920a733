package config

import "fmt"

// Resize configures a nearest-neighbor up-sampler.
type Resize struct {
	Name      string `json:"name"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
	NewHeight int    `json:"new_height"`
	NewWidth  int    `json:"new_width"`
	NChan     int    `json:"n_chan"`
	Layout    Layout `json:"layout"`

	// DataTransferOut is the number of parallel channels the automatic
	// layout switch is sized for: 1 selects the scalar layout, anything
	// else the per-channel array.
	DataTransferOut int `json:"data_transfer_out,omitempty"`

	ChannelDepth int `json:"channel_depth,omitempty"`
}

// ResizePlan is the validated, derived form of a Resize config.
type ResizePlan struct {
	Resize

	RatioHeight int
	RatioWidth  int
	// Resolved is the concrete layout after LayoutAuto has been decided.
	Resolved Layout
}

// Plan validates r and derives the replication ratios.
func (r Resize) Plan() (ResizePlan, error) {
	if r.Height <= 0 || r.Width <= 0 || r.NewHeight <= 0 || r.NewWidth <= 0 || r.NChan <= 0 {
		return ResizePlan{}, fmt.Errorf("%w: resize %q: %dx%dx%d -> %dx%d must be positive",
			ErrInvalid, r.Name, r.Height, r.Width, r.NChan, r.NewHeight, r.NewWidth)
	}
	if r.NewHeight%r.Height != 0 || r.NewWidth%r.Width != 0 {
		return ResizePlan{}, fmt.Errorf("%w: resize %q: %dx%d -> %dx%d",
			ErrResizeRatio, r.Name, r.Height, r.Width, r.NewHeight, r.NewWidth)
	}

	p := ResizePlan{
		Resize:      r,
		RatioHeight: r.NewHeight / r.Height,
		RatioWidth:  r.NewWidth / r.Width,
		Resolved:    r.Layout,
	}
	p.ChannelDepth = depthOrDefault(r.ChannelDepth)

	switch r.Layout {
	case LayoutAuto:
		if r.DataTransferOut == 1 {
			p.Resolved = LayoutScalar
		} else {
			p.Resolved = LayoutArray
			if r.DataTransferOut != 0 && r.DataTransferOut != r.NChan {
				return ResizePlan{}, fmt.Errorf("%w: resize %q: data_transfer_out=%d needs n_chan=%d channels",
					ErrInvalid, r.Name, r.DataTransferOut, r.NChan)
			}
		}
	case LayoutWide, LayoutScalar, LayoutArray:
	default:
		return ResizePlan{}, fmt.Errorf("%w: resize %q: layout %d", ErrInvalid, r.Name, int(r.Layout))
	}

	return p, nil
}

// Channels returns the number of FIFO channels on each side of the resizer.
func (p ResizePlan) Channels() int {
	if p.Resolved == LayoutArray {
		return p.NChan
	}
	return 1
}

// InTransfers returns the number of reads per channel for one image.
func (p ResizePlan) InTransfers() int {
	return transfers(p.Resolved, p.Height*p.Width, p.NChan)
}

// OutTransfers returns the number of writes per channel for one image.
func (p ResizePlan) OutTransfers() int {
	return transfers(p.Resolved, p.NewHeight*p.NewWidth, p.NChan)
}

func transfers(l Layout, pixels, nchan int) int {
	if l == LayoutScalar {
		return pixels * nchan
	}
	return pixels
}
