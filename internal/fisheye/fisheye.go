// Package fisheye corrects radial (barrel) lens distortion.
//
// Pixels are remapped along rays from a distortion center. How far along
// the ray a pixel moves is given by a radius function f on the normalized
// radius, where 1 is the distance from the center to the farthest corner
// of the source.
package fisheye

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gogpu/stereo/internal/cache"
	"github.com/gogpu/stereo/internal/logx"
	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// Algorithm selects the direction of the remap.
type Algorithm uint8

const (
	// AlgNone disables the stage.
	AlgNone Algorithm = iota

	// AlgRectify samples the source at radius f(ρ) for output radius ρ.
	// Use it when f describes where the lens put each undistorted radius.
	AlgRectify

	// AlgDistort samples the source at radius f⁻¹(ρ), the inverse mapping.
	// f must be increasing on the sampled interval.
	AlgDistort
)

var algorithmNames = [...]string{"none", "rectify", "distort"}

func (a Algorithm) String() string {
	if int(a) < len(algorithmNames) {
		return algorithmNames[a]
	}
	return fmt.Sprintf("algorithm(%d)", a)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(b []byte) error {
	for i, n := range algorithmNames {
		if n == string(b) {
			*a = Algorithm(i)
			return nil
		}
	}
	return fmt.Errorf("fisheye: unknown algorithm %q", b)
}

// Station places the distortion center, relative to the raster size.
type Station struct {
	// Custom selects X, Y; otherwise the raster center is used.
	Custom bool    `json:"custom"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// point returns the center in pixel coordinates of a w×h raster.
func (s Station) point(w, h int) (float64, float64) {
	if !s.Custom {
		return float64(w) / 2, float64(h) / 2
	}
	return s.X * float64(w), s.Y * float64(h)
}

// Func maps a normalized radius to a normalized radius.
type Func interface {
	Eval(r float64) float64
}

// Polynomial is f(r) = K[0]·r + K[1]·r² + K[2]·r³ + …
// An empty polynomial is the identity.
type Polynomial []float64

// Eval implements Func.
func (p Polynomial) Eval(r float64) float64 {
	if len(p) == 0 {
		return r
	}
	// Horner on r·(K0 + r·(K1 + r·(K2 + …)))
	acc := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		acc = acc*r + p[i]
	}
	return acc * r
}

// Descriptor is the complete configuration of the stage.
type Descriptor struct {
	Algorithm Algorithm  `json:"algorithm"`
	Station   Station    `json:"station"`
	Coeffs    Polynomial `json:"coeffs,omitempty"`

	// Func overrides Coeffs when set. It is not serialized.
	Func Func `json:"-"`

	// Scale multiplies the output size; zero means 1.
	Scale float64 `json:"scale,omitempty"`
}

// Enabled reports whether the stage does anything.
func (d Descriptor) Enabled() bool {
	return d.Algorithm != AlgNone
}

func (d Descriptor) fn() Func {
	if d.Func != nil {
		return d.Func
	}
	return d.Coeffs
}

func (d Descriptor) scale() float64 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

// lutSize is the resolution of the inverse radius table.
const lutSize = 4096

// maps keeps recent remap tables; a stereo pair usually shares one.
var maps = cache.New[string, *remap](256<<20, func(m *remap) int64 {
	return int64(len(m.xy)) * 8
})

// remap holds the source position of every output pixel, or the reason
// the descriptor cannot be applied.
type remap struct {
	w, h int
	xy   []float64
	fail string
}

// key identifies the table of d on a w×h source. Descriptors with a custom
// Func have no key.
func (d Descriptor) key(w, h int) (string, bool) {
	if d.Func != nil {
		return "", false
	}
	return fmt.Sprintf("%d|%t,%g,%g|%g|%g|%dx%d",
		d.Algorithm, d.Station.Custom, d.Station.X, d.Station.Y, []float64(d.Coeffs), d.scale(), w, h), true
}

// Apply remaps src according to d.
//
// Degenerate descriptors (non-positive or non-finite scale, an output smaller
// than one pixel, a radius function producing NaN or infinities) are logged
// and src is returned unchanged.
func Apply(r *parallel.Runner, src *raster.Raster, d Descriptor) *raster.Raster {
	if raster.IsSentinel(src) || !d.Enabled() {
		return src
	}

	sw, sh := src.Size()
	var m *remap
	if k, ok := d.key(sw, sh); ok {
		m = maps.GetOrCreate(k, func() *remap { return build(r, d, sw, sh) })
	} else {
		m = build(r, d, sw, sh)
	}
	if m.fail != "" {
		logx.L().Warn("fisheye: "+m.fail+", stage skipped",
			"algorithm", d.Algorithm, "scale", d.Scale, "width", sw, "height", sh)
		return src
	}

	out := raster.New(m.w, m.h)
	r.ForRange(0, m.h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			row := out.Row(y)
			xy := m.xy[2*y*m.w : 2*(y+1)*m.w]
			for x := range m.w {
				if cr, cg, cb, ok := src.Sample(xy[2*x], xy[2*x+1], raster.InterpBilinear); ok {
					row[x*3], row[x*3+1], row[x*3+2] = cr, cg, cb
				}
			}
		}
	})
	return out
}

// build computes the remap table of d for a sw×sh source.
func build(r *parallel.Runner, d Descriptor, sw, sh int) *remap {
	scale := d.scale()
	if !(scale > 0) || math.IsInf(scale, 0) {
		return &remap{fail: "invalid scale"}
	}

	ow := int(math.Round(float64(sw) * scale))
	oh := int(math.Round(float64(sh) * scale))
	if ow < 1 || oh < 1 {
		return &remap{fail: "output too small"}
	}

	scx, scy := d.Station.point(sw, sh)
	ocx, ocy := d.Station.point(ow, oh)
	rmax := farthestCorner(scx, scy, sw, sh)
	if rmax == 0 {
		return &remap{fail: "degenerate center"}
	}
	rmaxOut := rmax * scale

	var radius func(rho float64) float64
	switch d.Algorithm {
	case AlgRectify:
		radius = d.fn().Eval
	case AlgDistort:
		inv, ok := invert(d.fn(), farthestCorner(ocx, ocy, ow, oh)/rmaxOut)
		if !ok {
			return &remap{fail: "radius function not invertible"}
		}
		radius = inv
	default:
		return &remap{fail: "unknown algorithm"}
	}

	m := &remap{w: ow, h: oh, xy: make([]float64, 2*ow*oh)}
	var invalid atomic.Bool
	r.ForRange(0, oh, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			xy := m.xy[2*y*ow : 2*(y+1)*ow]
			dy := float64(y) + 0.5 - ocy
			for x := range ow {
				dx := float64(x) + 0.5 - ocx
				dist := math.Hypot(dx, dy)
				sx, sy := scx, scy
				if dist > 0 {
					rho := radius(dist / rmaxOut)
					if math.IsNaN(rho) || math.IsInf(rho, 0) {
						invalid.Store(true)
						return
					}
					k := rho * rmax / dist
					sx += dx * k
					sy += dy * k
				}
				xy[2*x], xy[2*x+1] = sx, sy
			}
		}
	})
	if invalid.Load() {
		return &remap{fail: "radius function produced a non-finite value"}
	}
	return m
}

func farthestCorner(cx, cy float64, w, h int) float64 {
	fw, fh := float64(w), float64(h)
	return max(math.Hypot(cx, cy), math.Hypot(fw-cx, cy),
		math.Hypot(cx, fh-cy), math.Hypot(fw-cx, fh-cy))
}

// invert tabulates f on [0, limit·1.5] and returns a piecewise linear f⁻¹.
// It fails when f is not strictly increasing there or is not finite.
func invert(f Func, limit float64) (func(float64) float64, bool) {
	top := limit * 1.5
	xs := make([]float64, lutSize+1)
	ys := make([]float64, lutSize+1)
	for i := range xs {
		x := top * float64(i) / lutSize
		y := f.Eval(x)
		if math.IsNaN(y) || math.IsInf(y, 0) || (i > 0 && y <= ys[i-1]) {
			return nil, false
		}
		xs[i], ys[i] = x, y
	}

	return func(v float64) float64 {
		if v <= ys[0] {
			return xs[0]
		}
		if v >= ys[lutSize] {
			// Beyond the table: the source point is outside the raster.
			return math.MaxFloat64
		}
		lo, hi := 0, lutSize
		for hi-lo > 1 {
			mid := (lo + hi) / 2
			if ys[mid] <= v {
				lo = mid
			} else {
				hi = mid
			}
		}
		t := (v - ys[lo]) / (ys[hi] - ys[lo])
		return xs[lo] + t*(xs[hi]-xs[lo])
	}, true
}
