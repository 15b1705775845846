package colorfix

import (
	"image"

	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// Histogram counts samples per 8-bit bin. For RGB statistics the rows are
// the red, green and blue channels; for HSV they are hue (unused),
// saturation and value, quantized to 256 levels.
type Histogram struct {
	Bins  [3][256]int
	Total int
}

// Add returns the bin-wise sum of h and o.
func (h Histogram) Add(o Histogram) Histogram {
	for c := range h.Bins {
		for i := range h.Bins[c] {
			h.Bins[c][i] += o.Bins[c][i]
		}
	}
	h.Total += o.Total
	return h
}

// bounds returns the first and last bin of channel c once a fraction clip
// of the samples has been discarded from each end.
func (h *Histogram) bounds(c int, clip float64) (lo, hi int) {
	skip := int(clip * float64(h.Total))
	acc := 0
	for lo = 0; lo < 255; lo++ {
		acc += h.Bins[c][lo]
		if acc > skip {
			break
		}
	}
	acc = 0
	for hi = 255; hi > 0; hi-- {
		acc += h.Bins[c][hi]
		if acc > skip {
			break
		}
	}
	return lo, hi
}

// Compute builds the histogram of src restricted to viewport (the whole
// raster when the viewport is empty or disjoint from it). Rows are split
// across the runner and the partial histograms added.
func Compute(r *parallel.Runner, src *raster.Raster, viewport image.Rectangle, sp Space) Histogram {
	vp := viewport.Intersect(src.Bounds())
	if vp.Empty() {
		vp = src.Bounds()
	}
	return parallel.SplitRange(r, vp.Min.Y, vp.Max.Y, func(lo, hi int) Histogram {
		var h Histogram
		for y := lo; y < hi; y++ {
			row := src.Row(y)
			for x := vp.Min.X; x < vp.Max.X; x++ {
				cr, cg, cb := row[x*3], row[x*3+1], row[x*3+2]
				if sp == SpaceHSV {
					_, s, v := toHSV(cr, cg, cb)
					h.Bins[1][quantize(s)]++
					h.Bins[2][quantize(v)]++
				} else {
					h.Bins[0][cr]++
					h.Bins[1][cg]++
					h.Bins[2][cb]++
				}
			}
			h.Total += vp.Dx()
		}
		return h
	}, Histogram.Add)
}

// Measure computes a Range in space sp from the viewport histogram.
func Measure(r *parallel.Runner, src *raster.Raster, viewport image.Rectangle, sp Space, clip float64) Range {
	h := Compute(r, src, viewport, sp)
	if sp == SpaceHSV {
		slo, shi := h.bounds(1, clip)
		vlo, vhi := h.bounds(2, clip)
		return HSVRange{
			MinS: float64(slo) / 255, MaxS: float64(shi) / 255,
			MinV: float64(vlo) / 255, MaxV: float64(vhi) / 255,
		}
	}
	var rg RGBRange
	for c := range 3 {
		lo, hi := h.bounds(c, clip)
		rg.Min[c], rg.Max[c] = uint8(lo), uint8(hi)
	}
	return rg
}

func quantize(f float64) int {
	return min(max(int(f*255+0.5), 0), 255)
}
