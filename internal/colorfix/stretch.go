package colorfix

import (
	"math"

	"github.com/gogpu/stereo/internal/logx"
	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// stretch applies one stretch op. Zero-width ranges are logged and leave
// src unchanged.
func stretch(r *parallel.Runner, src *raster.Raster, op Op, rg Range) *raster.Raster {
	want, _ := op.space()
	if rg.Space() != want {
		panic(&ContractError{Op: op, Want: want, Got: rg.Space()})
	}

	switch op {
	case OpStretchRGB:
		rgb := rg.(RGBRange)
		var lut [3][256]uint8
		for c := range 3 {
			if rgb.Max[c] <= rgb.Min[c] {
				logx.L().Warn("colorfix: zero-width range, op skipped", "op", op, "range", rgb)
				return src
			}
			lut[c] = stretchLUT(rgb.Min[c], rgb.Max[c])
		}
		return mapLUT(r, src, &lut)

	case OpStretchLinked:
		lo, hi := rg.(RGBRange).linked()
		if hi <= lo {
			logx.L().Warn("colorfix: zero-width range, op skipped", "op", op, "range", rg)
			return src
		}
		l := stretchLUT(lo, hi)
		lut := [3][256]uint8{l, l, l}
		return mapLUT(r, src, &lut)

	case OpStretchValue, OpStretchSaturation:
		hsv := rg.(HSVRange)
		lo, hi := hsv.MinV, hsv.MaxV
		if op == OpStretchSaturation {
			lo, hi = hsv.MinS, hsv.MaxS
		}
		if !(hi > lo) || math.IsInf(hi-lo, 0) {
			logx.L().Warn("colorfix: zero-width range, op skipped", "op", op, "range", hsv)
			return src
		}
		return mapHSV(r, src, op == OpStretchSaturation, lo, hi)
	}
	return src
}

// stretchLUT maps [lo, hi] linearly onto [0, 255], clamping outside.
func stretchLUT(lo, hi uint8) [256]uint8 {
	var t [256]uint8
	span := float64(hi) - float64(lo)
	for i := range t {
		v := (float64(i) - float64(lo)) * 255 / span
		t[i] = uint8(math.Round(min(max(v, 0), 255)))
	}
	return t
}

func mapLUT(r *parallel.Runner, src *raster.Raster, lut *[3][256]uint8) *raster.Raster {
	w, h := src.Size()
	out := raster.New(w, h)
	r.ForRange(0, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			s, d := src.Row(y), out.Row(y)
			for i := 0; i < len(s); i += 3 {
				d[i] = lut[0][s[i]]
				d[i+1] = lut[1][s[i+1]]
				d[i+2] = lut[2][s[i+2]]
			}
		}
	})
	return out
}

func mapHSV(r *parallel.Runner, src *raster.Raster, saturation bool, lo, hi float64) *raster.Raster {
	w, h := src.Size()
	out := raster.New(w, h)
	span := hi - lo
	r.ForRange(0, h, func(ylo, yhi int) {
		for y := ylo; y < yhi; y++ {
			s, d := src.Row(y), out.Row(y)
			for i := 0; i < len(s); i += 3 {
				hue, sat, val := toHSV(s[i], s[i+1], s[i+2])
				if saturation {
					sat = min(max((sat-lo)/span, 0), 1)
				} else {
					val = min(max((val-lo)/span, 0), 1)
				}
				d[i], d[i+1], d[i+2] = fromHSV(hue, sat, val)
			}
		}
	})
	return out
}

func invert(r *parallel.Runner, src *raster.Raster) *raster.Raster {
	w, h := src.Size()
	out := raster.New(w, h)
	r.ForRange(0, h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			s, d := src.Row(y), out.Row(y)
			for i, v := range s {
				d[i] = 255 - v
			}
		}
	})
	return out
}

// toHSV converts 8-bit RGB to hue in [0, 6) and saturation, value in [0, 1].
func toHSV(r, g, b uint8) (h, s, v float64) {
	fr, fg, fb := float64(r)/255, float64(g)/255, float64(b)/255
	mx := max(fr, fg, fb)
	mn := min(fr, fg, fb)
	v = mx
	d := mx - mn
	if mx == 0 || d == 0 {
		return 0, 0, v
	}
	s = d / mx
	switch mx {
	case fr:
		h = (fg - fb) / d
		if h < 0 {
			h += 6
		}
	case fg:
		h = (fb-fr)/d + 2
	default:
		h = (fr-fg)/d + 4
	}
	return h, s, v
}

// fromHSV is the inverse of toHSV.
func fromHSV(h, s, v float64) (uint8, uint8, uint8) {
	if s == 0 {
		c := to8(v)
		return c, c, c
	}
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return to8(r), to8(g), to8(b)
}

func to8(f float64) uint8 {
	return uint8(min(max(math.Round(f*255), 0), 255))
}
