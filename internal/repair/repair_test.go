package repair

import (
	"testing"

	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

func gradient(w, h int) *raster.Raster {
	r := raster.New(w, h)
	for y := range h {
		for x := range w {
			r.SetRGB(x, y, uint8(x*4), uint8(y*4), 100)
		}
	}
	return r
}

func TestApply_RemovesHotAndDeadPixels(t *testing.T) {
	src := gradient(20, 20)
	src.SetRGB(5, 5, 255, 255, 255)
	src.SetRGB(15, 17, 0, 0, 0)
	src.SetRGB(0, 0, 0, 0, 255) // corner, blue channel stuck high

	out := Apply(nil, src, Params{Enabled: true})

	want := gradient(20, 20)
	for _, p := range [][2]int{{5, 5}, {15, 17}} {
		r, g, b := out.RGB(p[0], p[1])
		wr, wg, wb := want.RGB(p[0], p[1])
		if absDiff(r, wr) > 4 || absDiff(g, wg) > 4 || b != wb {
			t.Errorf("pixel %v = %d,%d,%d, want about %d,%d,%d", p, r, g, b, wr, wg, wb)
		}
	}
	if _, _, b := out.RGB(0, 0); b != 100 {
		t.Errorf("corner blue = %d, want 100", b)
	}
}

func TestApply_KeepsEdges(t *testing.T) {
	// A sharp vertical edge must survive: no pixel is an isolated extreme.
	src := raster.New(10, 10)
	for y := range 10 {
		for x := 5; x < 10; x++ {
			src.SetRGB(x, y, 250, 250, 250)
		}
	}
	if out := Apply(nil, src, Params{Enabled: true}); !out.Equal(src) {
		t.Error("edge pixels were modified")
	}
}

func TestApply_Threshold(t *testing.T) {
	src := gradient(10, 10)
	src.SetRGB(4, 4, 16+30, 16, 100) // 30 above the red median

	if out := Apply(nil, src, Params{Enabled: true}); !out.Equal(src) {
		t.Error("deviation below the default threshold was repaired")
	}
	out := Apply(nil, src, Params{Enabled: true, Threshold: 10})
	if r, _, _ := out.RGB(4, 4); r != 16 {
		t.Errorf("red = %d, want 16 with threshold 10", r)
	}
}

func TestApply_ParallelMatchesSequential(t *testing.T) {
	src := gradient(31, 17)
	for i := 0; i < 31*17; i += 37 {
		src.SetRGB(i%31, i/31, 255, 0, 255)
	}
	want := Apply(nil, src, Params{Enabled: true})

	r, err := parallel.NewRunner(parallel.Config{Workers: 4, Subtasks: 7, Interleave: true})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if got := Apply(r, src, Params{Enabled: true}); !got.Equal(want) {
		t.Error("parallel output differs from sequential")
	}
}

func TestApply_Passthrough(t *testing.T) {
	src := gradient(4, 4)
	if Apply(nil, src, Params{}) != src {
		t.Error("disabled repair did not return the input")
	}
	s := raster.Failed()
	before := s.Clone()
	if got := Apply(nil, s, Params{Enabled: true}); got != s || !s.Equal(before) {
		t.Error("sentinel not passed through")
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
