package stereo

import (
	"math/rand/v2"
	"testing"

	"github.com/gogpu/stereo/internal/raster"
)

// noise returns a deterministic pseudo-random raster.
func noise(w, h int, seed uint64) *Raster {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b9))
	r := raster.New(w, h)
	pix := r.Pix()
	for i := range pix {
		pix[i] = uint8(rng.IntN(256))
	}
	return r
}

// scene returns a smooth raster with a few hard edges, closer to a photo
// than noise.
func scene(w, h int) *Raster {
	r := raster.New(w, h)
	for y := range h {
		for x := range w {
			v := uint8(40 + 150*x/w)
			if (x/8+y/8)%3 == 0 {
				v += 40
			}
			r.SetRGB(x, y, v, uint8(60+100*y/h), v/2)
		}
	}
	return r
}

func newTestEngine(t testing.TB, cfg EngineSettings) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine(%+v): %v", cfg, err)
	}
	t.Cleanup(e.Close)
	return e
}

// engineConfigs covers the scheduling modes a render can run under.
func engineConfigs() []EngineSettings {
	return []EngineSettings{
		{},
		{Workers: 1, SplitSides: true, Interleave: true, Subtasks: 1},
		{Workers: 2, SplitSides: true, Interleave: true, Subtasks: 4},
		{Workers: 4, SplitSides: true, Interleave: false, Subtasks: 7},
		{Workers: 3, SplitSides: false, Interleave: true, Subtasks: 9},
		{Workers: 8, SplitSides: true, Interleave: true, Subtasks: 32},
	}
}
