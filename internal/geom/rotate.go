package geom

import (
	"image/color"
	"math"

	"github.com/gogpu/stereo/internal/logx"
	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Rotate turns src by deg degrees around its center onto the bounding box
// of the rotated rectangle. Uncovered pixels get bg. It returns the rotated
// raster and the forward transform from src to result coordinates.
//
// An angle that is a whole number of turns returns src with the identity.
func Rotate(r *parallel.Runner, src *raster.Raster, deg float64, mode raster.Interp, bg color.RGBA) (*raster.Raster, Affine) {
	if raster.IsSentinel(src) {
		return src, Identity()
	}
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		logx.L().Warn("geom: non-finite angle, rotation skipped", "angle", deg)
		return src, Identity()
	}
	if math.Mod(deg, 360) == 0 {
		return src, Identity()
	}

	w, h := src.Size()
	rw, rh, fwd := rotatedFrame(w, h, deg)
	inv, _ := fwd.Invert()

	out := raster.New(rw, rh)
	r.ForRange(0, rh, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			row := out.Row(y)
			for x := range rw {
				sx, sy := inv.Apply(float64(x)+0.5, float64(y)+0.5)
				cr, cg, cb, ok := src.Sample(sx, sy, mode)
				if !ok {
					cr, cg, cb = bg.R, bg.G, bg.B
				}
				row[x*3], row[x*3+1], row[x*3+2] = cr, cg, cb
			}
		}
	})
	return out, fwd
}

// rotatedFrame returns the canvas size of a w×h raster rotated by deg and
// the transform placing it there.
func rotatedFrame(w, h int, deg float64) (int, int, Affine) {
	rot := Rotation(Radians(deg))
	fw, fh := float64(w), float64(h)

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{{-fw / 2, -fh / 2}, {fw / 2, -fh / 2}, {-fw / 2, fh / 2}, {fw / 2, fh / 2}} {
		x, y := rot.Apply(p[0], p[1])
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	rw := max(1, int(math.Ceil(maxX-minX-1e-9)))
	rh := max(1, int(math.Ceil(maxY-minY-1e-9)))

	fwd := Translate(float64(rw)/2, float64(rh)/2).Multiply(rot).Multiply(Translate(-fw/2, -fh/2))
	return rw, rh, fwd
}
