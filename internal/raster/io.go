package raster

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrEmptyImage is returned when a decoded image has no pixels.
var ErrEmptyImage = errors.New("raster: empty image")

// Decode reads a PNG, JPEG, GIF, TIFF or BMP image.
func Decode(r io.Reader) (*Raster, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("raster: decode: %w", err)
	}
	out, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("raster: decode %s: %w", format, err)
	}
	return out, nil
}

// Load decodes the image file at path.
func Load(path string) (*Raster, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("raster: open file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// FromImage converts any image to a Raster, dropping alpha.
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	if r, ok := img.(*Raster); ok {
		return r.Clone(), nil
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	}
	return FromRGBA(rgba), nil
}

// FromRGBA converts an RGBA image anchored at the origin.
func FromRGBA(src *image.RGBA) *Raster {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := New(w, h)
	for y := range h {
		s := src.Pix[y*src.Stride : y*src.Stride+w*4]
		d := out.Row(y)
		for x := range w {
			d[x*3] = s[x*4]
			d[x*3+1] = s[x*4+1]
			d[x*3+2] = s[x*4+2]
		}
	}
	return out
}

// ToRGBA converts the raster to an opaque *image.RGBA.
func (r *Raster) ToRGBA() *image.RGBA {
	out := image.NewRGBA(r.Bounds())
	for y := range r.height {
		s := r.Row(y)
		d := out.Pix[y*out.Stride : y*out.Stride+r.width*4]
		for x := range r.width {
			d[x*4] = s[x*3]
			d[x*4+1] = s[x*3+1]
			d[x*4+2] = s[x*3+2]
			d[x*4+3] = 0xff
		}
	}
	return out
}

// EncodePNG writes the raster as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.ToRGBA()); err != nil {
		return fmt.Errorf("raster: encode PNG: %w", err)
	}
	return nil
}

// SavePNG writes the raster to path as PNG.
func (r *Raster) SavePNG(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("raster: create file: %w", err)
	}
	if err := r.EncodePNG(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
