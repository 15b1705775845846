// Package overlay draws user marks (crosshairs with labels) onto rasters.
package overlay

import (
	"image"
	"image/color"
	"math"
	"slices"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// Arm is the length of each crosshair arm in pixels, excluding the gap
// around the marked point.
const Arm = 5

const gap = 1

// DefaultColor is used for marks with a zero Color.
var DefaultColor = color.RGBA{R: 0xff, G: 0xdc, A: 0xff}

// Mark is a labelled point in corrected-raster coordinates.
type Mark struct {
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	Label string     `json:"label,omitempty"`
	Color color.RGBA `json:"color"`
}

func (m Mark) color() color.RGBA {
	if m.Color.A == 0 {
		return DefaultColor
	}
	return m.Color
}

// Set is the marks of one side.
type Set struct {
	Marks []Mark `json:"marks,omitempty"`

	// Subpixel defers drawing until after zoom, at the fractional position
	// the marks map to on screen. Otherwise marks are drawn on the
	// corrected raster before rotation and scale with it.
	Subpixel bool `json:"subpixel,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (s Set) Empty() bool {
	return len(s.Marks) == 0
}

// Clone returns a copy of s that shares no slice with it.
func (s Set) Clone() Set {
	s.Marks = slices.Clone(s.Marks)
	return s
}

// Pre reports whether s is drawn before rotation.
func (s Set) Pre() bool {
	return !s.Empty() && !s.Subpixel
}

// Post reports whether s is drawn after zoom.
func (s Set) Post() bool {
	return !s.Empty() && s.Subpixel
}

// Projector maps corrected-raster coordinates to the raster being drawn on.
type Projector func(x, y float64) (float64, float64)

// Apply draws s at the marks' own coordinates.
func Apply(r *parallel.Runner, src *raster.Raster, s Set) *raster.Raster {
	return Draw(r, src, s.Marks, nil)
}

// Draw copies src and draws marks on the copy, each on the pixel containing
// project(X, Y). A nil project is the identity.
func Draw(r *parallel.Runner, src *raster.Raster, marks []Mark, project Projector) *raster.Raster {
	if raster.IsSentinel(src) || len(marks) == 0 {
		return src
	}

	w, h := src.Size()
	out := raster.New(w, h)
	r.ForRange(0, h, func(lo, hi int) {
		copy(out.Pix()[lo*out.Stride():hi*out.Stride()], src.Pix()[lo*src.Stride():hi*src.Stride()])
	})

	for _, m := range marks {
		x, y := m.X, m.Y
		if project != nil {
			x, y = project(x, y)
		}
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		crosshair(out, int(math.Floor(x)), int(math.Floor(y)), m)
	}
	return out
}

// crosshair draws a mark centered on pixel (cx, cy). Coordinates are pixel
// area coordinates, so the point (10.5, 3.5) is the center of pixel (10, 3).
func crosshair(dst *raster.Raster, cx, cy int, m Mark) {
	c := m.color()
	for d := gap + 1; d <= gap+Arm; d++ {
		dst.Set(cx-d, cy, c)
		dst.Set(cx+d, cy, c)
		dst.Set(cx, cy-d, c)
		dst.Set(cx, cy+d, c)
	}
	if m.Label == "" {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(cx+gap+Arm+2, cy-2),
	}
	d.DrawString(m.Label)
}
