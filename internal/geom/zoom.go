package geom

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// Filter is the resampling filter used by Zoom.
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterApproxBilinear
	FilterBilinear
	FilterCatmullRom
)

var filterNames = [...]string{"nearest", "approx-bilinear", "bilinear", "catmull-rom"}

func (f Filter) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return fmt.Sprintf("filter(%d)", f)
}

// ParseFilter parses the names produced by Filter.String.
func ParseFilter(s string) (Filter, error) {
	for i, n := range filterNames {
		if n == s {
			return Filter(i), nil
		}
	}
	return FilterNearest, fmt.Errorf("geom: unknown filter %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Filter) UnmarshalText(b []byte) error {
	v, err := ParseFilter(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f Filter) scaler() draw.Scaler {
	switch f {
	case FilterApproxBilinear:
		return draw.ApproxBiLinear
	case FilterBilinear:
		return draw.BiLinear
	case FilterCatmullRom:
		return draw.CatmullRom
	}
	return draw.NearestNeighbor
}

// stateless reports whether the x/image scaler keeps no per-call scratch
// and can therefore be run on disjoint row bands of one destination.
func (f Filter) stateless() bool {
	return f == FilterNearest || f == FilterApproxBilinear
}

// Zoom draws src scaled by s.Zoom onto a canvas of s.CanvasWidth ×
// s.CanvasHeight filled with bg, at s.Offset. Sentinels and sides without a
// canvas are returned unchanged.
func Zoom(r *parallel.Runner, src *raster.Raster, s Side, f Filter, bg color.RGBA) *raster.Raster {
	if raster.IsSentinel(src) || s.Sentinel || s.CanvasWidth <= 0 || s.CanvasHeight <= 0 {
		return src
	}
	w, h := src.Size()
	if s.Zoom == 1 && s.DX == 0 && s.DY == 0 && s.CanvasWidth == w && s.CanvasHeight == h {
		return src
	}

	ox, oy := s.Offset()
	dr := image.Rect(ox, oy,
		ox+int(math.Ceil(float64(w)*s.Zoom-1e-9)),
		oy+int(math.Ceil(float64(h)*s.Zoom-1e-9)))

	srcRGBA := src.ToRGBA()
	dst := image.NewRGBA(image.Rect(0, 0, s.CanvasWidth, s.CanvasHeight))
	scaler := f.scaler()

	if f.stateless() {
		r.ForRange(0, s.CanvasHeight, func(lo, hi int) {
			band := dst.SubImage(image.Rect(0, lo, s.CanvasWidth, hi)).(*image.RGBA)
			draw.Draw(band, band.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
			scaler.Scale(band, dr, srcRGBA, srcRGBA.Bounds(), draw.Src, nil)
		})
	} else {
		r.ForRange(0, s.CanvasHeight, func(lo, hi int) {
			band := dst.SubImage(image.Rect(0, lo, s.CanvasWidth, hi)).(*image.RGBA)
			draw.Draw(band, band.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
		})
		scaler.Scale(dst, dr, srcRGBA, srcRGBA.Bounds(), draw.Src, nil)
	}
	return raster.FromRGBA(dst)
}
