package raster

import (
	"fmt"
	"math"
)

// Interp selects how a raster is sampled between pixel centers.
type Interp uint8

const (
	// InterpNearest selects the closest pixel.
	InterpNearest Interp = iota

	// InterpBilinear interpolates between the 4 neighboring pixels.
	InterpBilinear

	// InterpBicubic uses Catmull-Rom weights over a 4x4 neighborhood.
	InterpBicubic
)

// String returns the mode name.
func (m Interp) String() string {
	switch m {
	case InterpNearest:
		return "nearest"
	case InterpBilinear:
		return "bilinear"
	case InterpBicubic:
		return "bicubic"
	default:
		return "unknown"
	}
}

// ParseInterp parses the names produced by Interp.String.
func ParseInterp(s string) (Interp, bool) {
	switch s {
	case "nearest":
		return InterpNearest, true
	case "bilinear":
		return InterpBilinear, true
	case "bicubic":
		return InterpBicubic, true
	}
	return InterpNearest, false
}

// MarshalText implements encoding.TextMarshaler.
func (m Interp) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Interp) UnmarshalText(b []byte) error {
	v, ok := ParseInterp(string(b))
	if !ok {
		return fmt.Errorf("raster: unknown interpolation %q", b)
	}
	*m = v
	return nil
}

// Sample reads r at continuous pixel coordinates (x, y), where pixel (i, j)
// covers [i, i+1)×[j, j+1). ok is false when the point lies outside the
// raster; neighbors beyond the edge are clamped.
func (r *Raster) Sample(x, y float64, mode Interp) (red, green, blue uint8, ok bool) {
	if !(x >= 0 && y >= 0 && x < float64(r.width) && y < float64(r.height)) {
		return 0, 0, 0, false
	}
	var c [3]uint8
	switch mode {
	case InterpBilinear:
		c = r.filtered(x, y, 1, tent)
	case InterpBicubic:
		c = r.filtered(x, y, 2, catmullRom)
	default:
		c[0], c[1], c[2] = r.RGB(int(x), int(y))
	}
	return c[0], c[1], c[2], true
}

// filtered convolves the pixels around (x, y) with the separable kernel k,
// whose support is [-radius, radius].
func (r *Raster) filtered(x, y float64, radius int, k func(float64) float64) [3]uint8 {
	// Pixel centers sit at half-integer coordinates.
	cx, cy := x-0.5, y-0.5
	bx, by := int(math.Floor(cx)), int(math.Floor(cy))

	n := 2 * radius
	var wx, wy [4]float64
	for i := range n {
		off := float64(i - radius + 1)
		wx[i] = k(cx - float64(bx) - off)
		wy[i] = k(cy - float64(by) - off)
	}

	var acc [3]float64
	for j := range n {
		row := min(max(by+j-radius+1, 0), r.height-1)
		for i := range n {
			w := wx[i] * wy[j]
			if w == 0 {
				continue
			}
			col := min(max(bx+i-radius+1, 0), r.width-1)
			o := r.PixOffset(col, row)
			acc[0] += w * float64(r.pix[o])
			acc[1] += w * float64(r.pix[o+1])
			acc[2] += w * float64(r.pix[o+2])
		}
	}

	var out [3]uint8
	for c, v := range acc {
		out[c] = uint8(min(max(math.Round(v), 0), 255))
	}
	return out
}

// tent is the linear interpolation kernel.
func tent(t float64) float64 {
	return max(1-math.Abs(t), 0)
}

// catmullRom is the cubic convolution kernel with a = -0.5.
func catmullRom(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		return (1.5*t-2.5)*t*t + 1
	case t < 2:
		return ((-0.5*t+2.5)*t-4)*t + 2
	}
	return 0
}
