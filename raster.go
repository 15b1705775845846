package stereo

import (
	"image"
	"image/color"
	"io"

	"github.com/gogpu/stereo/internal/raster"
)

// NewRaster allocates a black w×h raster.
func NewRaster(w, h int) *Raster {
	return raster.New(w, h)
}

// FromImage converts any image to a Raster.
func FromImage(img image.Image) (*Raster, error) {
	return raster.FromImage(img)
}

// Decode reads a PNG, JPEG, GIF, BMP or TIFF image.
func Decode(r io.Reader) (*Raster, error) {
	return raster.Decode(r)
}

// Load reads an image file.
func Load(path string) (*Raster, error) {
	return raster.Load(path)
}

// InProgress returns the shared placeholder for a side that is still loading.
func InProgress() *Raster {
	return raster.InProgress()
}

// Failed returns the shared placeholder for a side that could not be loaded.
func Failed() *Raster {
	return raster.Failed()
}

// IsSentinel reports whether r is a placeholder.
func IsSentinel(r *Raster) bool {
	return raster.IsSentinel(r)
}

// SideBySide composes left and right next to each other with gap pixels
// between them, top-aligned on a bg background. Sentinels are drawn at
// their own size.
func SideBySide(left, right *Raster, gap int, bg color.RGBA) *Raster {
	lw, lh := size(left)
	rw, rh := size(right)
	gap = max(gap, 0)

	out := raster.New(max(lw+gap+rw, 1), max(lh, rh, 1))
	out.Fill(bg.R, bg.G, bg.B)
	blit(out, left, 0)
	blit(out, right, lw+gap)
	return out
}

func size(r *Raster) (int, int) {
	if r == nil {
		return 0, 0
	}
	return r.Size()
}

func blit(dst, src *Raster, x0 int) {
	if src == nil {
		return
	}
	w, h := src.Size()
	for y := range h {
		copy(dst.Row(y)[x0*raster.BytesPerPixel:(x0+w)*raster.BytesPerPixel], src.Row(y))
	}
}
