// Package bayer reconstructs full-color rasters from Bayer mosaics.
package bayer

import (
	"fmt"
	"math"

	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// Mode is the 2×2 layout of the mosaic, named from the top-left cell in
// reading order. ModeNone disables demosaicing.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeRGGB
	ModeBGGR
	ModeGRBG
	ModeGBRG
)

var modeNames = [...]string{"none", "rggb", "bggr", "grbg", "gbrg"}

// String returns the lowercase layout name.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

// ParseMode parses the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return ModeNone, fmt.Errorf("bayer: unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// cell is the color filter over one photosite.
type cell uint8

const (
	red cell = iota
	green
	blue
)

// layout returns the filter colors of the 2×2 tile, indexed [y&1][x&1].
func (m Mode) layout() [2][2]cell {
	switch m {
	case ModeBGGR:
		return [2][2]cell{{blue, green}, {green, red}}
	case ModeGRBG:
		return [2][2]cell{{green, red}, {blue, green}}
	case ModeGBRG:
		return [2][2]cell{{green, blue}, {red, green}}
	default:
		return [2][2]cell{{red, green}, {green, blue}}
	}
}

// Apply demosaics src with bilinear interpolation. The mosaic sample of each
// photosite is the luma of the input pixel, so both gray and RGB-encoded
// raw frames are accepted. Edge pixels use replicated neighbors.
//
// Sentinels and ModeNone return src unchanged.
func Apply(r *parallel.Runner, src *raster.Raster, mode Mode) *raster.Raster {
	if raster.IsSentinel(src) || mode == ModeNone {
		return src
	}

	w, h := src.Size()
	mosaic := make([]float64, w*h)
	r.ForRange(0, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			for x := range w {
				mosaic[y*w+x] = src.Luma(x, y)
			}
		}
	})

	px := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return mosaic[y*w+x]
	}
	cross := func(x, y int) float64 {
		return (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
	}
	diagonal := func(x, y int) float64 {
		return (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4
	}
	horizontal := func(x, y int) float64 {
		return (px(x-1, y) + px(x+1, y)) / 2
	}
	vertical := func(x, y int) float64 {
		return (px(x, y-1) + px(x, y+1)) / 2
	}

	tile := mode.layout()
	out := raster.New(w, h)
	r.ForRange(0, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			row := out.Row(y)
			for x := range w {
				var rgb [3]float64
				switch c := tile[y&1][x&1]; c {
				case red, blue:
					// The opposite color sits on the diagonals, green on the cross.
					rgb[c] = px(x, y)
					rgb[green] = cross(x, y)
					rgb[2-c] = diagonal(x, y)
				default:
					// Green site: which neighbor pair carries red depends on
					// the row.
					rgb[green] = px(x, y)
					if tile[y&1][(x+1)&1] == red {
						rgb[red] = horizontal(x, y)
						rgb[blue] = vertical(x, y)
					} else {
						rgb[red] = vertical(x, y)
						rgb[blue] = horizontal(x, y)
					}
				}
				row[x*3] = quantize(rgb[0])
				row[x*3+1] = quantize(rgb[1])
				row[x*3+2] = quantize(rgb[2])
			}
		}
	})
	return out
}

func quantize(v float64) uint8 {
	return uint8(min(max(math.Round(v), 0), 255))
}
