package stereo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/stereo/internal/bayer"
	"github.com/gogpu/stereo/internal/colorfix"
	"github.com/gogpu/stereo/internal/dual"
	"github.com/gogpu/stereo/internal/fisheye"
	"github.com/gogpu/stereo/internal/geom"
	"github.com/gogpu/stereo/internal/logx"
	"github.com/gogpu/stereo/internal/overlay"
	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
	"github.com/gogpu/stereo/internal/repair"
)

type (
	// Raster is an immutable 8-bit RGB image.
	Raster = raster.Raster
	// SideGeometry is the geometry of one pane after a render.
	SideGeometry = geom.Side
	// Filter selects the zoom resampling filter.
	Filter = geom.Filter
	// Command selects between rendering and range extraction.
	Command = colorfix.Command
	// Range is a color range reported by the color chain.
	Range = colorfix.Range
	// Mark is a labelled point in corrected-raster coordinates.
	Mark = overlay.Mark
	// MarkSet holds the marks of one side.
	MarkSet = overlay.Set
	// Side identifies the left or right half of the pair.
	Side = dual.Side
	// SideError reports the failure of one side.
	SideError = dual.SideError
	// PanicError carries a panic recovered from a pipeline stage.
	PanicError = parallel.PanicError
	// ContractError reports a color range fed to the wrong stretch.
	ContractError = colorfix.ContractError
)

const (
	SideLeft  = dual.Left
	SideRight = dual.Right

	CommandRender  = colorfix.CommandRender
	CommandExtract = colorfix.CommandExtract
)

// Inputs is the raw pair. Either side may be a sentinel (InProgress,
// Failed or nil).
type Inputs struct {
	Left, Right *Raster
}

// Marks holds the marks of both sides.
type Marks struct {
	Left  MarkSet `json:"left"`
	Right MarkSet `json:"right"`
}

func (m Marks) side(s Side) MarkSet {
	if s == SideLeft {
		return m.Left
	}
	return m.Right
}

// Result is the output of a render.
type Result struct {
	// Left and Right are the final panes. With CommandExtract they are the
	// rasters the color chain stopped at.
	Left, Right *Raster

	// CorrectedLeft and CorrectedRight are the rasters after the color
	// chain, before marks and rotation.
	CorrectedLeft, CorrectedRight *Raster

	// Geometry is indexed by Side. It is zero with CommandExtract.
	Geometry [2]SideGeometry

	// Ranges is the last color range of each side, nil if none was used.
	Ranges [2]Range

	RunID   string
	Command Command
	Elapsed time.Duration
}

// Renderer runs the stereo pipeline. It is safe for concurrent use.
type Renderer struct {
	engine *parallel.Engine
	filter *geom.Filter
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = parallel.Default()
	}
	return &Renderer{engine: o.engine, filter: o.filter}
}

var defaultRenderer = NewRenderer()

// Render runs the pipeline on the process-wide engine.
func Render(ctx context.Context, in Inputs, p Params, marks Marks, cmd Command) (*Result, error) {
	return defaultRenderer.Render(ctx, in, p, marks, cmd)
}

// pane is the state carried through the pipeline for one side.
type pane struct {
	cur       *raster.Raster
	corrected *raster.Raster
	fwd       geom.Affine
	rng       colorfix.Range
}

// Render runs the full pipeline on the pair.
//
// The returned Result is never nil. When err is non-nil it is best effort:
// a failed side holds the last raster produced before its failing stage
// while the other side is complete. ctx is checked between stages; a
// cancelled render returns ctx.Err() with whatever was finished.
func (rd *Renderer) Render(ctx context.Context, in Inputs, p Params, marks Marks, cmd Command) (*Result, error) {
	start := time.Now()
	r := rd.engine.Runner()
	p = p.clone()
	if rd.filter != nil {
		p.Global.Filter = *rd.filter
	}
	res := &Result{RunID: uuid.NewString(), Command: cmd}
	log := logx.L().With("run", res.RunID)
	log.Debug("stereo: render started", "command", cmd, "workers", r.Config().Workers)

	lp, rp := p.Left, p.Right
	pair := dual.Of(r,
		func() pane { return pane{cur: in.Left, fwd: geom.Identity()} },
		func() pane { return pane{cur: in.Right, fwd: geom.Identity()} })

	var geos [2]geom.Side
	finish := func(err error) (*Result, error) {
		l, rt, perr := pair.Join()
		res.Left, res.Right = l.cur, rt.cur
		res.CorrectedLeft, res.CorrectedRight = l.corrected, rt.corrected
		res.Ranges = [2]Range{l.rng, rt.rng}
		res.Geometry = geos
		res.Elapsed = time.Since(start)
		err = errors.Join(err, perr)
		if err != nil {
			log.Warn("stereo: render failed", "error", err, "elapsed", res.Elapsed)
			return res, fmt.Errorf("stereo: render %s: %w", res.RunID, err)
		}
		log.Debug("stereo: render finished", "elapsed", res.Elapsed)
		return res, nil
	}

	// stage applies the same per-side step to both panes.
	stage := func(name string, lc, rc bool, f func(pane, SideParams, Side) pane) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := time.Now()
		pair = pair.UpdateIf(
			lc, func(s pane) pane { return f(s, lp, SideLeft) },
			rc, func(s pane) pane { return f(s, rp, SideRight) })
		log.Debug("stereo: stage done", "stage", name, "elapsed", time.Since(t))
		return nil
	}

	steps := []struct {
		name   string
		lc, rc bool
		f      func(pane, SideParams, Side) pane
	}{
		{"demosaic", lp.Demosaic != bayer.ModeNone, rp.Demosaic != bayer.ModeNone,
			func(s pane, sp SideParams, _ Side) pane {
				s.cur = bayer.Apply(r, s.cur, sp.Demosaic)
				return s
			}},
		{"repair", lp.Repair.Enabled, rp.Repair.Enabled,
			func(s pane, sp SideParams, _ Side) pane {
				s.cur = repair.Apply(r, s.cur, sp.Repair)
				return s
			}},
		{"fisheye", lp.Fisheye.Enabled(), rp.Fisheye.Enabled(),
			func(s pane, sp SideParams, _ Side) pane {
				s.cur = fisheye.Apply(r, s.cur, sp.Fisheye)
				return s
			}},
		{"color", true, true,
			func(s pane, sp SideParams, _ Side) pane {
				s.cur, s.rng = colorfix.Run(r, s.cur, colorfix.Params{Chain: sp.Color, Viewport: sp.Viewport}, cmd)
				s.corrected = s.cur
				return s
			}},
	}
	for _, st := range steps {
		if err := stage(st.name, st.lc, st.rc, st.f); err != nil {
			return finish(err)
		}
	}
	if cmd == CommandExtract {
		return finish(nil)
	}

	err := stage("marks", marks.Left.Pre(), marks.Right.Pre(), func(s pane, _ SideParams, sd Side) pane {
		s.cur = overlay.Apply(r, s.cur, marks.side(sd))
		return s
	})
	if err != nil {
		return finish(err)
	}

	err = stage("rotate", true, true, func(s pane, _ SideParams, sd Side) pane {
		s.cur, s.fwd = geom.Rotate(r, s.cur, p.Angle(sd), p.Global.Interp, p.Global.Background)
		return s
	})
	if err != nil {
		return finish(err)
	}

	// Join: both rotated sizes are known; reconcile them before zooming.
	l, rt, _ := pair.Join()
	gl := geom.NewSide(l.corrected, l.cur, l.fwd, p.Zoom(SideLeft))
	gr := geom.NewSide(rt.corrected, rt.cur, rt.fwd, p.Zoom(SideRight))
	// A failed side keeps a stale raster; it must not widen the canvas.
	gl.Sentinel = gl.Sentinel || pair.Failed(SideLeft)
	gr.Sentinel = gr.Sentinel || pair.Failed(SideRight)
	geom.Center(&gl, &gr)
	geos = [2]geom.Side{gl, gr}
	log.Debug("stereo: geometry reconciled",
		"left_dx", gl.DX, "left_dy", gl.DY, "right_dx", gr.DX, "right_dy", gr.DY,
		"canvas_width", gl.CanvasWidth, "canvas_height", gl.CanvasHeight)

	err = stage("zoom", true, true, func(s pane, _ SideParams, sd Side) pane {
		g := geos[sd]
		s.cur = geom.Zoom(r, s.cur, g, p.Global.Filter, p.Global.Background)
		if m := marks.side(sd); m.Post() {
			s.cur = overlay.Draw(r, s.cur, m.Marks, g.RasterToScreen)
		}
		return s
	})
	return finish(err)
}
