package stereo

import (
	"encoding/json"
	"image"
	"testing"

	"github.com/gogpu/stereo/internal/bayer"
	"github.com/gogpu/stereo/internal/colorfix"
	"github.com/gogpu/stereo/internal/fisheye"
	"github.com/gogpu/stereo/internal/geom"
)

func TestSideParams_CopyOnWrite(t *testing.T) {
	chain := colorfix.Chain{Ops: []colorfix.Op{colorfix.OpStats, colorfix.OpStretchRGB}}
	a := SideParams{}.WithColor(chain)
	chain.Ops[0] = colorfix.OpInvert
	if a.Color.Ops[0] != colorfix.OpStats {
		t.Error("WithColor kept a reference to the caller's slice")
	}

	b := a.WithZoom(2)
	b.Color.Ops[1] = colorfix.OpInvert
	if a.Zoom != 0 || a.Color.Ops[1] != colorfix.OpStretchRGB {
		t.Error("derived snapshot shares state with its origin")
	}

	coeffs := fisheye.Polynomial{1, 0.2}
	c := a.WithFisheye(fisheye.Descriptor{Algorithm: fisheye.AlgRectify, Coeffs: coeffs})
	coeffs[1] = 9
	if c.Fisheye.Coeffs[1] != 0.2 {
		t.Error("WithFisheye kept a reference to the caller's coefficients")
	}
}

func TestParams_Effective(t *testing.T) {
	p := DefaultParams().
		WithLeft(SideParams{}.WithZoom(0.5).WithAngle(10)).
		WithRight(SideParams{}.WithAngle(-4))
	g := p.Global
	g.Angle = 1
	p = p.WithGlobal(g)

	tests := []struct {
		side  Side
		zoom  float64
		angle float64
	}{
		{SideLeft, 1.5, 11},
		{SideRight, 1, -3},
	}
	for _, tt := range tests {
		if z := p.Zoom(tt.side); z != tt.zoom {
			t.Errorf("%s zoom = %v, want %v", tt.side, z, tt.zoom)
		}
		if a := p.Angle(tt.side); a != tt.angle {
			t.Errorf("%s angle = %v, want %v", tt.side, a, tt.angle)
		}
	}
}

func TestParams_Side(t *testing.T) {
	p := DefaultParams().WithLeft(SideParams{}.WithColor(colorfix.Chain{Ops: []colorfix.Op{colorfix.OpInvert}}))
	s := p.Side(SideLeft)
	s.Color.Ops[0] = colorfix.OpStats
	if p.Left.Color.Ops[0] != colorfix.OpInvert {
		t.Error("Side returned an aliased snapshot")
	}
}

func TestParams_JSON(t *testing.T) {
	in := DefaultParams().
		WithLeft(SideParams{}.
			WithDemosaic(bayer.ModeGBRG).
			WithViewport(image.Rect(1, 2, 30, 40)).
			WithColor(colorfix.Chain{Ops: []colorfix.Op{colorfix.OpCustomRange, colorfix.OpStretchRGB}, Custom: colorfix.RGBRange{Max: [3]uint8{9, 9, 9}}})).
		WithRight(SideParams{}.WithFisheye(fisheye.Descriptor{Algorithm: fisheye.AlgDistort, Coeffs: fisheye.Polynomial{1, 0.1}}))
	g := in.Global
	g.Filter = geom.FilterCatmullRom
	in = in.WithGlobal(g)

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Params
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.Global != in.Global {
		t.Errorf("global = %+v, want %+v", out.Global, in.Global)
	}
	if out.Left.Demosaic != bayer.ModeGBRG || out.Left.Viewport != in.Left.Viewport || out.Left.Color.Custom != in.Left.Color.Custom {
		t.Errorf("left = %+v", out.Left)
	}
	if out.Right.Fisheye.Algorithm != fisheye.AlgDistort || len(out.Right.Fisheye.Coeffs) != 2 {
		t.Errorf("right fisheye = %+v", out.Right.Fisheye)
	}
}
