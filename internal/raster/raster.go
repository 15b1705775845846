// Package raster provides the 8-bit RGB pixel buffer shared by every stage
// of the stereo pipeline.
//
// A Raster is treated as immutable once a stage has returned it: stages
// allocate their own output and only ever write into that.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
)

// BytesPerPixel is the sample size of a Raster pixel (R, G, B).
const BytesPerPixel = 3

// Common errors for raster operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("raster: invalid dimensions")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("raster: data buffer too small")
)

// Raster is a width×height grid of RGB samples stored row-major with a
// stride of 3·width bytes.
//
// Raster implements image.Image and draw.Image.
//
// Thread safety: concurrent reads are safe. Concurrent writes are safe only
// to disjoint rows.
type Raster struct {
	width  int
	height int
	pix    []byte
}

// New allocates a black raster. It panics with ErrInvalidDimensions when
// width or height is not positive; callers validate sizes derived from
// parameters before allocating.
func New(width, height int) *Raster {
	if width <= 0 || height <= 0 {
		panic(fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height))
	}
	return &Raster{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// FromPix wraps existing RGB data. The slice is used directly, not copied.
func FromPix(width, height int, pix []byte) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if need := width * height * BytesPerPixel; len(pix) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrDataTooSmall, len(pix), need)
	}
	return &Raster{width: width, height: height, pix: pix}, nil
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int {
	return r.width
}

// Height returns the raster height in pixels.
func (r *Raster) Height() int {
	return r.height
}

// Size returns width and height.
func (r *Raster) Size() (int, int) {
	return r.width, r.height
}

// Pix returns the underlying sample slice.
func (r *Raster) Pix() []byte {
	return r.pix
}

// Stride returns the number of bytes per row.
func (r *Raster) Stride() int {
	return r.width * BytesPerPixel
}

// Row returns the samples of row y.
func (r *Raster) Row(y int) []byte {
	s := r.Stride()
	return r.pix[y*s : (y+1)*s]
}

// PixOffset returns the index of the first sample of pixel (x, y).
func (r *Raster) PixOffset(x, y int) int {
	return (y*r.width + x) * BytesPerPixel
}

// RGB returns the samples at (x, y). Coordinates must be in bounds.
func (r *Raster) RGB(x, y int) (red, green, blue uint8) {
	i := r.PixOffset(x, y)
	return r.pix[i], r.pix[i+1], r.pix[i+2]
}

// SetRGB writes the samples at (x, y). Coordinates must be in bounds.
func (r *Raster) SetRGB(x, y int, red, green, blue uint8) {
	i := r.PixOffset(x, y)
	r.pix[i] = red
	r.pix[i+1] = green
	r.pix[i+2] = blue
}

// Luma returns the Rec. 601 luma of pixel (x, y) in [0, 255].
func (r *Raster) Luma(x, y int) float64 {
	red, green, blue := r.RGB(x, y)
	return 0.299*float64(red) + 0.587*float64(green) + 0.114*float64(blue)
}

// Fill sets every pixel to the given color.
func (r *Raster) Fill(red, green, blue uint8) {
	if len(r.pix) == 0 {
		return
	}
	r.pix[0], r.pix[1], r.pix[2] = red, green, blue
	for n := BytesPerPixel; n < len(r.pix); n *= 2 {
		copy(r.pix[n:], r.pix[:n])
	}
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := &Raster{width: r.width, height: r.height, pix: make([]byte, len(r.pix))}
	copy(out.pix, r.pix)
	return out
}

// Equal reports whether both rasters have the same size and samples.
func (r *Raster) Equal(o *Raster) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.width == o.width && r.height == o.height && bytes.Equal(r.pix, o.pix)
}

// ColorModel implements image.Image.
func (r *Raster) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// At implements image.Image.
func (r *Raster) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return color.RGBA{}
	}
	red, green, blue := r.RGB(x, y)
	return color.RGBA{R: red, G: green, B: blue, A: 0xff}
}

// Set implements draw.Image. Alpha is composited over black.
func (r *Raster) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	r.SetRGB(x, y, rgba.R, rgba.G, rgba.B)
}

// String describes the raster for logs.
func (r *Raster) String() string {
	if r == nil {
		return "raster(nil)"
	}
	return fmt.Sprintf("raster(%dx%d)", r.width, r.height)
}
