// Package cli implements the stereo command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/stereo"
	"github.com/gogpu/stereo/internal/bayer"
	"github.com/gogpu/stereo/internal/colorfix"
	"github.com/gogpu/stereo/internal/config"
	"github.com/gogpu/stereo/internal/geom"
	"github.com/gogpu/stereo/internal/raster"
	"github.com/gogpu/stereo/internal/repair"
	"github.com/gogpu/stereo/internal/store"
)

// Root holds the state shared by all commands.
type Root struct {
	cfg     *config.Config
	cfgPath string
	log     *slog.Logger
	out     io.Writer

	openStore func(path string) (*store.Store, error)
	st        *store.Store
	engine    *stereo.Engine
}

// NewRoot constructs the CLI state. cfgPath is where `config init` writes.
func NewRoot(cfg *config.Config, cfgPath string, logger *slog.Logger, out io.Writer) *Root {
	return &Root{
		cfg:       cfg,
		cfgPath:   cfgPath,
		log:       logger,
		out:       out,
		openStore: store.New,
	}
}

// Close releases the engine and the database.
func (r *Root) Close() error {
	if r.engine != nil {
		r.engine.Close()
		r.engine = nil
	}
	if r.st != nil {
		err := r.st.Close()
		r.st = nil
		return err
	}
	return nil
}

func (r *Root) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// store opens the database on first use.
func (r *Root) store() (*store.Store, error) {
	if r.st != nil {
		return r.st, nil
	}
	path, err := r.cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	st, err := r.openStore(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	r.st = st
	return st, nil
}

// renderer builds a renderer on an engine configured from cfg.Engine.
func (r *Root) renderer() (*stereo.Renderer, error) {
	if r.engine == nil {
		e, err := stereo.NewEngine(r.cfg.Engine)
		if err != nil {
			return nil, err
		}
		r.engine = e
	}
	return stereo.NewRenderer(stereo.WithEngine(r.engine)), nil
}

// paramFlags are the pipeline parameters settable from the command line.
type paramFlags struct {
	preset string
	file   string

	zoom, angle           float64
	leftZoom, rightZoom   float64
	leftAngle, rightAngle float64

	filter   string
	interp   string
	demosaic string

	repair    bool
	threshold int

	color    string
	clip     float64
	viewport string
}

func (f *paramFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.preset, "preset", "", "start from a saved preset")
	fs.StringVar(&f.file, "params", "", "start from a JSON parameter file")
	fs.Float64Var(&f.zoom, "zoom", 1, "global zoom")
	fs.Float64Var(&f.angle, "angle", 0, "global rotation in degrees, clockwise")
	fs.Float64Var(&f.leftZoom, "left-zoom", 0, "zoom added to the left side")
	fs.Float64Var(&f.rightZoom, "right-zoom", 0, "zoom added to the right side")
	fs.Float64Var(&f.leftAngle, "left-angle", 0, "angle added to the left side")
	fs.Float64Var(&f.rightAngle, "right-angle", 0, "angle added to the right side")
	fs.StringVar(&f.filter, "filter", "", "zoom filter (nearest, approx-bilinear, bilinear, catmull-rom)")
	fs.StringVar(&f.interp, "interp", "", "rotation interpolation (nearest, bilinear, bicubic)")
	fs.StringVar(&f.demosaic, "demosaic", "", "Bayer layout of both inputs (none, rggb, bggr, grbg, gbrg)")
	fs.BoolVar(&f.repair, "repair", false, "repair hot and dead pixels")
	fs.IntVar(&f.threshold, "repair-threshold", repair.DefaultThreshold, "pixel repair threshold")
	fs.StringVar(&f.color, "color", "", "comma separated color ops applied to both sides")
	fs.Float64Var(&f.clip, "clip", 0, "fraction of samples clipped at each end when measuring a range")
	fs.StringVar(&f.viewport, "viewport", "", "statistics region x0,y0,x1,y1")
}

// params assembles the parameters: config defaults, then the preset, then
// the parameter file, then every flag set explicitly.
func (r *Root) params(ctx context.Context, cmd *cobra.Command, f *paramFlags) (stereo.Params, error) {
	p := stereo.DefaultParams()
	g := p.Global
	g.Filter = r.cfg.Render.Filter
	g.Interp = r.cfg.Render.Interp
	g.Background = r.cfg.BackgroundColor()
	p = p.WithGlobal(g)

	if f.preset != "" {
		st, err := r.store()
		if err != nil {
			return p, err
		}
		pr, err := st.Preset(ctx, f.preset)
		if err != nil {
			return p, err
		}
		p = pr.Params
	}
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return p, err
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse %s: %w", f.file, err)
		}
	}

	fs := cmd.Flags()
	g = p.Global
	if fs.Changed("zoom") {
		g.Zoom = f.zoom
	}
	if fs.Changed("angle") {
		g.Angle = f.angle
	}
	if fs.Changed("filter") {
		flt, err := geom.ParseFilter(f.filter)
		if err != nil {
			return p, err
		}
		g.Filter = flt
	}
	if fs.Changed("interp") {
		m, ok := raster.ParseInterp(f.interp)
		if !ok {
			return p, fmt.Errorf("unknown interpolation %q", f.interp)
		}
		g.Interp = m
	}
	p = p.WithGlobal(g)

	left, right := p.Left, p.Right
	if fs.Changed("left-zoom") {
		left = left.WithZoom(f.leftZoom)
	}
	if fs.Changed("right-zoom") {
		right = right.WithZoom(f.rightZoom)
	}
	if fs.Changed("left-angle") {
		left = left.WithAngle(f.leftAngle)
	}
	if fs.Changed("right-angle") {
		right = right.WithAngle(f.rightAngle)
	}
	if fs.Changed("demosaic") {
		m, err := bayer.ParseMode(f.demosaic)
		if err != nil {
			return p, err
		}
		left, right = left.WithDemosaic(m), right.WithDemosaic(m)
	}
	if fs.Changed("repair") || fs.Changed("repair-threshold") {
		rp := repair.Params{Enabled: f.repair, Threshold: f.threshold}
		left, right = left.WithRepair(rp), right.WithRepair(rp)
	}
	if fs.Changed("color") || fs.Changed("clip") {
		lc, rc := left.Color, right.Color
		if fs.Changed("color") {
			ops, err := parseOps(f.color)
			if err != nil {
				return p, err
			}
			lc.Ops, rc.Ops = ops, ops
		}
		if fs.Changed("clip") {
			lc.Clip, rc.Clip = f.clip, f.clip
		}
		left, right = left.WithColor(lc), right.WithColor(rc)
	}
	if fs.Changed("viewport") {
		vp, err := parseViewport(f.viewport)
		if err != nil {
			return p, err
		}
		left, right = left.WithViewport(vp), right.WithViewport(vp)
	}
	return p.WithLeft(left).WithRight(right), nil
}

// parseOps parses a comma separated list of color op names.
func parseOps(s string) ([]colorfix.Op, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var ops []colorfix.Op
	for _, name := range strings.Split(s, ",") {
		op, err := colorfix.ParseOp(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// parseViewport parses "x0,y0,x1,y1".
func parseViewport(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("viewport %q: want x0,y0,x1,y1", s)
	}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("viewport %q: %w", s, err)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}

// parseMarks parses "x,y[,label]" values.
func parseMarks(values []string) ([]stereo.Mark, error) {
	var marks []stereo.Mark
	for _, v := range values {
		parts := strings.SplitN(v, ",", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("mark %q: want x,y[,label]", v)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err := errors.Join(errX, errY); err != nil {
			return nil, fmt.Errorf("mark %q: %w", v, err)
		}
		m := stereo.Mark{X: x, Y: y}
		if len(parts) == 3 {
			m.Label = parts[2]
		}
		marks = append(marks, m)
	}
	return marks, nil
}

// loadInputs decodes both inputs. A side that cannot be read becomes the
// Failed placeholder; it is an error only when both sides fail.
func (r *Root) loadInputs(left, right string) (stereo.Inputs, error) {
	l, errL := stereo.Load(left)
	if errL != nil {
		r.log.Warn("left input unreadable", "path", left, "error", errL)
		l = stereo.Failed()
	}
	rt, errR := stereo.Load(right)
	if errR != nil {
		r.log.Warn("right input unreadable", "path", right, "error", errR)
		rt = stereo.Failed()
	}
	if errL != nil && errR != nil {
		return stereo.Inputs{}, errors.Join(errL, errR)
	}
	return stereo.Inputs{Left: l, Right: rt}, nil
}
