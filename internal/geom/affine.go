package geom

import (
	"fmt"
	"math"
)

// Affine is a 2D affine transformation:
//
//	| a  b  c |
//	| d  e  f |
//	| 0  0  1 |
type Affine struct {
	a, b, c float64 // x' = ax + by + c
	d, e, f float64 // y' = dx + ey + f
}

// Identity returns the identity transformation.
func Identity() Affine {
	return Affine{a: 1, e: 1}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Affine {
	return Affine{a: 1, c: tx, e: 1, f: ty}
}

// Scale returns a scaling by (sx, sy) around the origin.
func Scale(sx, sy float64) Affine {
	return Affine{a: sx, e: sy}
}

// Rotation returns a rotation by angle radians around the origin. With
// y pointing down, positive angles turn clockwise on screen.
//
// Multiples of a quarter turn use exact sines so rotated canvases of
// 90° and 180° keep integral sizes.
func Rotation(angle float64) Affine {
	sin, cos := sincos(angle)
	return Affine{a: cos, b: -sin, d: sin, e: cos}
}

func sincos(angle float64) (float64, float64) {
	q := angle / (math.Pi / 2)
	if r := math.Round(q); math.Abs(q-r) < 1e-12 {
		switch int(math.Mod(math.Mod(r, 4)+4, 4)) {
		case 0:
			return 0, 1
		case 1:
			return 1, 0
		case 2:
			return 0, -1
		default:
			return -1, 0
		}
	}
	return math.Sincos(angle)
}

// Multiply returns m·o: o is applied first, then m.
func (m Affine) Multiply(o Affine) Affine {
	return Affine{
		a: m.a*o.a + m.b*o.d,
		b: m.a*o.b + m.b*o.e,
		c: m.a*o.c + m.b*o.f + m.c,
		d: m.d*o.a + m.e*o.d,
		e: m.d*o.b + m.e*o.e,
		f: m.d*o.c + m.e*o.f + m.f,
	}
}

// Invert returns the inverse transformation, or false if m is singular.
func (m Affine) Invert() (Affine, bool) {
	det := m.a*m.e - m.b*m.d
	if math.Abs(det) < 1e-10 {
		return Affine{}, false
	}
	inv := 1 / det
	return Affine{
		a: m.e * inv,
		b: -m.b * inv,
		c: (m.b*m.f - m.c*m.e) * inv,
		d: -m.d * inv,
		e: m.a * inv,
		f: (m.c*m.d - m.a*m.f) * inv,
	}, true
}

// Apply transforms the point (x, y).
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m.a*x + m.b*y + m.c, m.d*x + m.e*y + m.f
}

// IsIdentity reports whether m leaves every point in place.
func (m Affine) IsIdentity() bool {
	return m == Identity()
}

// Elements returns the first two rows: a, b, c, d, e, f.
func (m Affine) Elements() [6]float64 {
	return [6]float64{m.a, m.b, m.c, m.d, m.e, m.f}
}

// FromElements is the inverse of Elements.
func FromElements(v [6]float64) Affine {
	return Affine{a: v[0], b: v[1], c: v[2], d: v[3], e: v[4], f: v[5]}
}

func (m Affine) String() string {
	return fmt.Sprintf("[%g %g %g; %g %g %g]", m.a, m.b, m.c, m.d, m.e, m.f)
}
