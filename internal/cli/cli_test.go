package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/gogpu/stereo"
	"github.com/gogpu/stereo/internal/bayer"
	"github.com/gogpu/stereo/internal/colorfix"
	"github.com/gogpu/stereo/internal/config"
	"github.com/gogpu/stereo/internal/geom"
	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

func newTestRoot(t *testing.T) (*Root, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Engine = parallel.Config{Workers: 2, Subtasks: 4, SplitSides: true, Interleave: true}
	cfg.Paths.DatabasePath = filepath.Join(dir, "db", "stereo.db")
	cfg.Paths.DefaultOutput = dir
	cfg.Render.Thumbnail = 32

	var out bytes.Buffer
	root := NewRoot(cfg, filepath.Join(dir, "config.json"), slog.New(slog.DiscardHandler), &out)
	t.Cleanup(func() { root.Close() })
	return root, &out, dir
}

func execute(t *testing.T, root *Root, args ...string) error {
	t.Helper()
	cmd := NewRootCmd(root)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(t.Context())
}

func writeInput(t *testing.T, path string, w, h int) {
	t.Helper()
	r := raster.New(w, h)
	for y := range h {
		for x := range w {
			r.SetRGB(x, y, uint8(30+x*4), uint8(20+y*5), uint8((x+y)%2*200))
		}
	}
	if err := r.SavePNG(path); err != nil {
		t.Fatal(err)
	}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	return cfg.Width, cfg.Height
}

func inputs(t *testing.T, dir string) (string, string) {
	t.Helper()
	left := filepath.Join(dir, "left.png")
	right := filepath.Join(dir, "right.png")
	writeInput(t, left, 40, 30)
	writeInput(t, right, 40, 30)
	return left, right
}

// =============================================================================
// Render Tests
// =============================================================================

func TestRender_WritesSideBySide(t *testing.T) {
	root, out, dir := newTestRoot(t)
	left, right := inputs(t, dir)
	output := filepath.Join(dir, "out", "pair.png")

	if err := execute(t, root, "render", left, right, "-o", output, "--zoom", "2"); err != nil {
		t.Fatal(err)
	}

	// Two 80x60 panes and the default 8 pixel gap.
	if w, h := imageSize(t, output); w != 168 || h != 60 {
		t.Errorf("output = %dx%d, want 168x60", w, h)
	}
	if w, _ := imageSize(t, filepath.Join(dir, "out", "pair.thumb.png")); w != 32 {
		t.Errorf("thumbnail width = %d, want 32", w)
	}
	if !strings.Contains(out.String(), "pair.png  168x60") {
		t.Errorf("summary = %q", out.String())
	}

	st, err := root.store()
	if err != nil {
		t.Fatal(err)
	}
	runs, err := st.Runs(t.Context(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Width != 168 || runs[0].Error != "" || runs[0].Bytes == 0 {
		t.Errorf("history = %+v", runs)
	}
}

func TestRender_MissingSideUsesPlaceholder(t *testing.T) {
	root, _, dir := newTestRoot(t)
	left, _ := inputs(t, dir)
	output := filepath.Join(dir, "pair.png")

	err := execute(t, root, "render", left, filepath.Join(dir, "absent.png"), "-o", output, "--thumbnail", "0")
	if err != nil {
		t.Fatal(err)
	}
	want := 40 + 8 + raster.SentinelSize
	if w, h := imageSize(t, output); w != want || h != 30 {
		t.Errorf("output = %dx%d, want %dx30", w, h, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "pair.thumb.png")); !os.IsNotExist(err) {
		t.Error("thumbnail written with --thumbnail 0")
	}
}

func TestRender_BothInputsMissing(t *testing.T) {
	root, _, dir := newTestRoot(t)
	err := execute(t, root, "render", filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png"), "-o", filepath.Join(dir, "x.png"))
	if err == nil {
		t.Fatal("render succeeded without inputs")
	}
}

func TestRender_Extract(t *testing.T) {
	root, _, dir := newTestRoot(t)
	left, right := inputs(t, dir)
	output := filepath.Join(dir, "extract.png")

	err := execute(t, root, "render", left, right, "-o", output, "--extract",
		"--zoom", "3", "--color", "stats,stretch-rgb", "--no-history")
	if err != nil {
		t.Fatal(err)
	}
	// Extraction stops before rotation and zoom.
	if w, h := imageSize(t, output); w != 88 || h != 30 {
		t.Errorf("output = %dx%d, want 88x30", w, h)
	}

	st, err := root.store()
	if err != nil {
		t.Fatal(err)
	}
	if runs, _ := st.Runs(t.Context(), 0); len(runs) != 0 {
		t.Errorf("--no-history recorded %d runs", len(runs))
	}
}

func TestRender_Marks(t *testing.T) {
	root, _, dir := newTestRoot(t)
	left, right := inputs(t, dir)
	plain := filepath.Join(dir, "plain.png")
	marked := filepath.Join(dir, "marked.png")

	if err := execute(t, root, "render", left, right, "-o", plain); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, root, "render", left, right, "-o", marked, "--mark-left", "20,15,A"); err != nil {
		t.Fatal(err)
	}

	a, err := raster.Load(plain)
	if err != nil {
		t.Fatal(err)
	}
	b, err := raster.Load(marked)
	if err != nil {
		t.Fatal(err)
	}
	if a.Equal(b) {
		t.Error("mark not drawn")
	}
	// The right pane is untouched.
	for y := range 30 {
		for x := 48; x < 88; x++ {
			if a.At(x, y) != b.At(x, y) {
				t.Fatalf("right pane differs at (%d,%d)", x, y)
			}
		}
	}
}

func TestRender_RejectsBadFlags(t *testing.T) {
	root, _, dir := newTestRoot(t)
	left, right := inputs(t, dir)

	tests := [][]string{
		{"--filter", "lanczos"},
		{"--interp", "sinc"},
		{"--demosaic", "xyz"},
		{"--color", "stats,sharpen"},
		{"--viewport", "1,2,3"},
		{"--mark-left", "12"},
	}
	for _, extra := range tests {
		args := append([]string{"render", left, right, "-o", filepath.Join(dir, "bad.png")}, extra...)
		if err := execute(t, root, args...); err == nil {
			t.Errorf("render %v succeeded", extra)
		}
	}
}

// =============================================================================
// Stats / Preset / History Tests
// =============================================================================

func TestStats(t *testing.T) {
	root, out, dir := newTestRoot(t)
	left, right := inputs(t, dir)

	if err := execute(t, root, "stats", left, right, "--viewport", "0,0,20,20"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "left") || !strings.HasPrefix(lines[1], "right") {
		t.Fatalf("output = %q", out.String())
	}
	if strings.Contains(out.String(), "(none)") {
		t.Errorf("no range measured: %q", out.String())
	}

	if err := execute(t, root, "stats", left, right, "--space", "lab"); err == nil {
		t.Error("unknown space accepted")
	}
}

func TestPresetLifecycle(t *testing.T) {
	root, out, dir := newTestRoot(t)
	left, right := inputs(t, dir)

	if err := execute(t, root, "preset", "save", "big", "--zoom", "1.5", "--color", "stretch-rgb"); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, root, "preset", "list"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "big") {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	if err := execute(t, root, "preset", "show", "big"); err != nil {
		t.Fatal(err)
	}
	var p stereo.Params
	if err := json.Unmarshal(out.Bytes(), &p); err != nil {
		t.Fatalf("show output is not JSON: %v", err)
	}
	if p.Global.Zoom != 1.5 || len(p.Left.Color.Ops) != 1 {
		t.Errorf("preset = %+v", p)
	}

	output := filepath.Join(dir, "preset.png")
	if err := execute(t, root, "render", left, right, "-o", output, "--preset", "big"); err != nil {
		t.Fatal(err)
	}
	if w, h := imageSize(t, output); w != 128 || h != 45 {
		t.Errorf("output = %dx%d, want 128x45", w, h)
	}

	if err := execute(t, root, "preset", "delete", "big"); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, root, "preset", "show", "big"); err == nil {
		t.Error("deleted preset still shown")
	}
	if err := execute(t, root, "render", left, right, "--preset", "big"); err == nil {
		t.Error("render with deleted preset succeeded")
	}
}

func TestHistory(t *testing.T) {
	root, out, dir := newTestRoot(t)
	left, right := inputs(t, dir)

	if err := execute(t, root, "render", left, right, "-o", filepath.Join(dir, "h.png")); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := execute(t, root, "history", "-n", "5"); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "render") || !strings.Contains(s, "88x30") || !strings.HasSuffix(strings.TrimSpace(s), "ok") {
		t.Errorf("history = %q", s)
	}
}

// =============================================================================
// Config / Engine Tests
// =============================================================================

func TestConfigInit(t *testing.T) {
	root, out, _ := newTestRoot(t)

	if err := execute(t, root, "config", "init"); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFile(root.cfgPath); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if err := execute(t, root, "config", "init"); err == nil {
		t.Error("config init overwrote an existing file")
	}
	if err := execute(t, root, "config", "init", "--force"); err != nil {
		t.Errorf("--force: %v", err)
	}

	out.Reset()
	if err := execute(t, root, "config", "show"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), root.cfgPath) || !strings.Contains(out.String(), `"filter": "approx-bilinear"`) {
		t.Errorf("show output = %q", out.String())
	}
}

func TestEngine(t *testing.T) {
	root, out, _ := newTestRoot(t)

	if err := execute(t, root, "engine", "--probe", "64"); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "Workers:         2") || !strings.Contains(s, "pooled tasks") {
		t.Errorf("output = %q", s)
	}
	if root.engine.Runner().Stats().Pooled == 0 {
		t.Error("probe ran nothing on the pool")
	}
}

func TestWorkersFlag(t *testing.T) {
	root, out, _ := newTestRoot(t)

	if err := execute(t, root, "--workers", "0", "engine"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Workers:         0") {
		t.Errorf("output = %q", out.String())
	}
	if err := execute(t, root, "--workers", "-1", "engine"); err == nil {
		t.Error("negative workers accepted")
	}
}

// =============================================================================
// Parameter Assembly Tests
// =============================================================================

func parseParams(t *testing.T, root *Root, args ...string) (stereo.Params, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	var f paramFlags
	f.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return root.params(t.Context(), cmd, &f)
}

func TestParams_Defaults(t *testing.T) {
	root, _, _ := newTestRoot(t)
	root.cfg.Render.Filter = geom.FilterCatmullRom
	root.cfg.Render.Background = "#203040"

	p, err := parseParams(t, root)
	if err != nil {
		t.Fatal(err)
	}
	if p.Global.Zoom != 1 || p.Global.Filter != geom.FilterCatmullRom {
		t.Errorf("global = %+v", p.Global)
	}
	if p.Global.Background.B != 0x40 {
		t.Errorf("background = %v", p.Global.Background)
	}
	if p.Left.Repair.Enabled || len(p.Right.Color.Ops) != 0 {
		t.Errorf("unset flags changed sides: %+v", p)
	}
}

func TestParams_FlagOverrides(t *testing.T) {
	root, _, _ := newTestRoot(t)

	p, err := parseParams(t, root,
		"--left-zoom", "0.5", "--angle", "10", "--right-angle", "-2",
		"--demosaic", "rggb", "--repair", "--repair-threshold", "30",
		"--color", "stats, stretch-value", "--clip", "0.02",
		"--viewport", "1,2,30,40", "--filter", "nearest", "--interp", "bicubic")
	if err != nil {
		t.Fatal(err)
	}

	if p.Left.Zoom != 0.5 || p.Right.Zoom != 0 {
		t.Errorf("side zoom = %v, %v", p.Left.Zoom, p.Right.Zoom)
	}
	if p.Angle(stereo.SideLeft) != 10 || p.Angle(stereo.SideRight) != 8 {
		t.Errorf("angles = %v, %v", p.Angle(stereo.SideLeft), p.Angle(stereo.SideRight))
	}
	for _, sp := range []stereo.SideParams{p.Left, p.Right} {
		if sp.Demosaic != bayer.ModeRGGB {
			t.Errorf("demosaic = %v", sp.Demosaic)
		}
		if !sp.Repair.Enabled || sp.Repair.Threshold != 30 {
			t.Errorf("repair = %+v", sp.Repair)
		}
		want := []colorfix.Op{colorfix.OpStats, colorfix.OpStretchValue}
		if len(sp.Color.Ops) != 2 || sp.Color.Ops[0] != want[0] || sp.Color.Ops[1] != want[1] || sp.Color.Clip != 0.02 {
			t.Errorf("color = %+v", sp.Color)
		}
		if sp.Viewport != image.Rect(1, 2, 30, 40) {
			t.Errorf("viewport = %v", sp.Viewport)
		}
	}
	if p.Global.Filter != geom.FilterNearest || p.Global.Interp != raster.InterpBicubic {
		t.Errorf("global = %+v", p.Global)
	}
}

func TestParams_FileThenFlags(t *testing.T) {
	root, _, dir := newTestRoot(t)

	base := stereo.DefaultParams()
	base = base.WithGlobal(stereo.Global{Zoom: 3, Filter: geom.FilterBilinear})
	base = base.WithLeft(base.Left.WithZoom(1))
	data, err := json.Marshal(base)
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "params.json")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := parseParams(t, root, "--params", file, "--left-zoom", "-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Global.Zoom != 3 || p.Global.Filter != geom.FilterBilinear {
		t.Errorf("file not applied: %+v", p.Global)
	}
	if p.Zoom(stereo.SideLeft) != 2 {
		t.Errorf("left zoom = %v, want 2", p.Zoom(stereo.SideLeft))
	}

	if _, err := parseParams(t, root, "--params", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing parameter file accepted")
	}
}

func TestParseMarks(t *testing.T) {
	marks, err := parseMarks([]string{"1.5, 2", "10,20,star,bright"})
	if err != nil {
		t.Fatal(err)
	}
	if len(marks) != 2 || marks[0].X != 1.5 || marks[0].Y != 2 || marks[0].Label != "" {
		t.Errorf("marks = %+v", marks)
	}
	if marks[1].Label != "star,bright" {
		t.Errorf("label = %q", marks[1].Label)
	}
	for _, bad := range []string{"1", "x,2", "1,y"} {
		if _, err := parseMarks([]string{bad}); err == nil {
			t.Errorf("parseMarks(%q) accepted", bad)
		}
	}
}

func TestThumbnailPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"out/pair.png", "out/pair.thumb.png"},
		{"pair", "pair.thumb.png"},
		{"a.b/c.jpeg", "a.b/c.thumb.png"},
	}
	for _, tt := range tests {
		if got := thumbnailPath(tt.in); got != tt.want {
			t.Errorf("thumbnailPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
