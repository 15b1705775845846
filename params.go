package stereo

import (
	"image"
	"image/color"

	"github.com/gogpu/stereo/internal/bayer"
	"github.com/gogpu/stereo/internal/colorfix"
	"github.com/gogpu/stereo/internal/dual"
	"github.com/gogpu/stereo/internal/fisheye"
	"github.com/gogpu/stereo/internal/geom"
	"github.com/gogpu/stereo/internal/raster"
	"github.com/gogpu/stereo/internal/repair"
)

// SideParams are the corrections applied to one side. The zero value
// applies no correction; Zoom and Angle are added to the Global values.
//
// SideParams is a value: the WithX methods return modified copies and
// never share slices with the receiver.
type SideParams struct {
	Zoom  float64 `json:"zoom,omitempty"`
	Angle float64 `json:"angle,omitempty"` // degrees, clockwise

	Demosaic bayer.Mode         `json:"demosaic"`
	Repair   repair.Params      `json:"repair"`
	Fisheye  fisheye.Descriptor `json:"fisheye"`
	Color    colorfix.Chain     `json:"color"`

	// Viewport is the region the color statistics are taken from, in
	// corrected-raster coordinates. Empty means the whole raster.
	Viewport image.Rectangle `json:"viewport"`
}

// WithZoom returns a copy with the side zoom set to z.
func (p SideParams) WithZoom(z float64) SideParams {
	p = p.clone()
	p.Zoom = z
	return p
}

// WithAngle returns a copy with the side angle set to deg degrees.
func (p SideParams) WithAngle(deg float64) SideParams {
	p = p.clone()
	p.Angle = deg
	return p
}

// WithDemosaic returns a copy with the Bayer layout set to m.
func (p SideParams) WithDemosaic(m bayer.Mode) SideParams {
	p = p.clone()
	p.Demosaic = m
	return p
}

// WithRepair returns a copy with pixel repair configured by r.
func (p SideParams) WithRepair(r repair.Params) SideParams {
	p = p.clone()
	p.Repair = r
	return p
}

// WithFisheye returns a copy with the fisheye stage described by d.
func (p SideParams) WithFisheye(d fisheye.Descriptor) SideParams {
	p = p.clone()
	d.Coeffs = append(fisheye.Polynomial(nil), d.Coeffs...)
	p.Fisheye = d
	return p
}

// WithColor returns a copy with the color chain c.
func (p SideParams) WithColor(c colorfix.Chain) SideParams {
	p = p.clone()
	p.Color = c.Clone()
	return p
}

// WithViewport returns a copy with the statistics viewport set to vp.
func (p SideParams) WithViewport(vp image.Rectangle) SideParams {
	p = p.clone()
	p.Viewport = vp
	return p
}

func (p SideParams) clone() SideParams {
	p.Color = p.Color.Clone()
	if p.Fisheye.Coeffs != nil {
		p.Fisheye.Coeffs = append(fisheye.Polynomial(nil), p.Fisheye.Coeffs...)
	}
	return p
}

// Global holds the settings shared by both sides.
type Global struct {
	Zoom  float64 `json:"zoom"`
	Angle float64 `json:"angle,omitempty"`

	// Filter resamples during zoom, Interp during rotation.
	Filter geom.Filter   `json:"filter"`
	Interp raster.Interp `json:"interp"`

	// Background fills canvas areas no raster covers.
	Background color.RGBA `json:"background"`
}

// Params is the complete parameter snapshot of a render.
type Params struct {
	Left   SideParams `json:"left"`
	Right  SideParams `json:"right"`
	Global Global     `json:"global"`
}

// DefaultParams returns parameters that show both sides unmodified at
// zoom 1.
func DefaultParams() Params {
	return Params{Global: Global{
		Zoom:       1,
		Filter:     geom.FilterApproxBilinear,
		Interp:     raster.InterpBilinear,
		Background: color.RGBA{A: 0xff},
	}}
}

// WithLeft returns a copy with the left side replaced.
func (p Params) WithLeft(s SideParams) Params {
	p = p.clone()
	p.Left = s.clone()
	return p
}

// WithRight returns a copy with the right side replaced.
func (p Params) WithRight(s SideParams) Params {
	p = p.clone()
	p.Right = s.clone()
	return p
}

// WithGlobal returns a copy with the shared settings replaced.
func (p Params) WithGlobal(g Global) Params {
	p = p.clone()
	p.Global = g
	return p
}

// Side returns the parameters of side s.
func (p Params) Side(s dual.Side) SideParams {
	if s == dual.Left {
		return p.Left.clone()
	}
	return p.Right.clone()
}

// Zoom returns the effective zoom of side s.
func (p Params) Zoom(s dual.Side) float64 {
	return p.Global.Zoom + p.side(s).Zoom
}

// Angle returns the effective rotation of side s in degrees.
func (p Params) Angle(s dual.Side) float64 {
	return p.Global.Angle + p.side(s).Angle
}

func (p *Params) side(s dual.Side) *SideParams {
	if s == dual.Left {
		return &p.Left
	}
	return &p.Right
}

func (p Params) clone() Params {
	p.Left = p.Left.clone()
	p.Right = p.Right.clone()
	return p
}
