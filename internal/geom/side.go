// Package geom reconciles the geometry of the two panes: rotation, the
// centering deltas that let both zoomed panes share one scroll model, zoom,
// and the mapping between screen and raster coordinates.
package geom

import (
	"math"

	"github.com/gogpu/stereo/internal/logx"
	"github.com/gogpu/stereo/internal/raster"
)

// Side is the geometry of one pane for one render.
//
// NewSide fills the sizes, transforms and zoom after rotation; Center sets
// the deltas and canvas once both sides are known. After that the value is
// not modified.
type Side struct {
	// Width and Height are the size of the corrected raster, before rotation.
	Width  int `json:"width"`
	Height int `json:"height"`

	// RotWidth and RotHeight are the size after rotation.
	RotWidth  int `json:"rot_width"`
	RotHeight int `json:"rot_height"`

	// Forward maps corrected-raster to rotated-raster coordinates; Inverse
	// undoes it.
	Forward Affine `json:"-"`
	Inverse Affine `json:"-"`

	Zoom float64 `json:"zoom"`

	// DX and DY shift the rotated raster on the canvas, in unzoomed pixels.
	DX int `json:"dx"`
	DY int `json:"dy"`

	// CanvasWidth and CanvasHeight are shared by both sides after Center.
	CanvasWidth  int `json:"canvas_width"`
	CanvasHeight int `json:"canvas_height"`

	// Sentinel marks a pane showing a placeholder.
	Sentinel bool `json:"sentinel,omitempty"`
}

// NewSide describes a pane whose corrected raster was rotated into rotated
// with the transform fwd, shown at zoom.
func NewSide(corrected, rotated *raster.Raster, fwd Affine, zoom float64) Side {
	s := Side{Forward: fwd, Zoom: ValidZoom(zoom)}
	if inv, ok := fwd.Invert(); ok {
		s.Inverse = inv
	} else {
		s.Forward, s.Inverse = Identity(), Identity()
	}
	if raster.IsSentinel(rotated) {
		s.Sentinel = true
		return s
	}
	if corrected != nil {
		s.Width, s.Height = corrected.Size()
	}
	s.RotWidth, s.RotHeight = rotated.Size()
	return s
}

// ValidZoom returns z, or 1 when z is not a positive finite number.
func ValidZoom(z float64) float64 {
	if !(z > 0) || math.IsInf(z, 0) {
		logx.L().Warn("geom: invalid zoom, using 1", "zoom", z)
		return 1
	}
	return z
}

// extent is the zoomed size of the rotated raster; zero for sentinels.
func (s *Side) extent() (float64, float64) {
	if s.Sentinel {
		return 0, 0
	}
	return float64(s.RotWidth) * s.Zoom, float64(s.RotHeight) * s.Zoom
}

// Center computes the centering deltas of both sides and their shared
// canvas.
//
// The narrower pane (after zoom) is shifted right by half the difference,
// expressed in its own unzoomed pixels, and likewise vertically. Deltas are
// never negative; sentinel panes keep zero deltas.
func Center(left, right *Side) {
	lw, lh := left.extent()
	rw, rh := right.extent()
	dw := (rw - lw) / 2
	dh := (rh - lh) / 2

	left.DX, left.DY, right.DX, right.DY = 0, 0, 0, 0
	if !left.Sentinel {
		left.DX = max(0, int(math.Round(dw/left.Zoom)))
		left.DY = max(0, int(math.Round(dh/left.Zoom)))
	}
	if !right.Sentinel {
		right.DX = max(0, int(math.Round(-dw/right.Zoom)))
		right.DY = max(0, int(math.Round(-dh/right.Zoom)))
	}

	cw := max(left.canvasExtent(left.RotWidth, left.DX), right.canvasExtent(right.RotWidth, right.DX))
	ch := max(left.canvasExtent(left.RotHeight, left.DY), right.canvasExtent(right.RotHeight, right.DY))
	left.CanvasWidth, left.CanvasHeight = cw, ch
	right.CanvasWidth, right.CanvasHeight = cw, ch
}

func (s *Side) canvasExtent(size, delta int) int {
	if s.Sentinel {
		return 0
	}
	return int(math.Ceil(float64(size+delta)*s.Zoom - 1e-9))
}

// Offset returns the top-left of the zoomed raster on the canvas.
func (s *Side) Offset() (int, int) {
	return int(math.Floor(float64(s.DX) * s.Zoom)), int(math.Floor(float64(s.DY) * s.Zoom))
}

// ScreenToRaster maps a canvas point to corrected-raster coordinates: undo
// the zoom, remove this side's delta, then undo the rotation.
func (s *Side) ScreenToRaster(x, y float64) (float64, float64) {
	return s.Inverse.Apply(x/s.Zoom-float64(s.DX), y/s.Zoom-float64(s.DY))
}

// RasterToScreen is the inverse of ScreenToRaster.
func (s *Side) RasterToScreen(x, y float64) (float64, float64) {
	rx, ry := s.Forward.Apply(x, y)
	return (rx + float64(s.DX)) * s.Zoom, (ry + float64(s.DY)) * s.Zoom
}

// CrossMap maps a canvas point of from to the canvas point of to showing
// the same rotated-raster pixel. Both panes share one canvas, so scrolling
// needs no mapping; this is for following a point across the pair.
func CrossMap(from, to *Side, x, y float64) (float64, float64) {
	ux := x/from.Zoom - float64(from.DX-to.DX)
	uy := y/from.Zoom - float64(from.DY-to.DY)
	return ux * to.Zoom, uy * to.Zoom
}
