package cli

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nfnt/resize"

	"github.com/gogpu/stereo"
	"github.com/gogpu/stereo/internal/logging"
	"github.com/gogpu/stereo/internal/store"
)

// job is one render invocation.
type job struct {
	left, right string
	output      string
	params      stereo.Params
	marks       stereo.Marks
	command     stereo.Command
	thumbnail   uint
	history     bool
}

// runJob renders j, writes the side-by-side PNG (and its thumbnail) and
// records the run. A side failure still writes the best-effort output and
// is returned after recording.
func (r *Root) runJob(ctx context.Context, j job) (*stereo.Result, error) {
	rd, err := r.renderer()
	if err != nil {
		return nil, err
	}
	in, err := r.loadInputs(j.left, j.right)
	if err != nil {
		return nil, err
	}

	logging.LogRenderStart(r.log, j.left, j.right, j.output)
	start := time.Now()
	res, renderErr := rd.Render(ctx, in, j.params, j.marks, j.command)

	run := store.Run{
		ID:      res.RunID,
		Time:    start,
		Command: j.command.String(),
		Left:    j.left,
		Right:   j.right,
		Elapsed: res.Elapsed,
	}

	var writeErr error
	if j.output != "" {
		sbs := stereo.SideBySide(res.Left, res.Right, r.cfg.Render.Gap, r.cfg.BackgroundColor())
		run.Output = j.output
		run.Width, run.Height = sbs.Size()
		run.Bytes, writeErr = writePNG(j.output, sbs)
		if writeErr == nil && j.thumbnail > 0 {
			_, writeErr = writeThumbnail(thumbnailPath(j.output), sbs, j.thumbnail)
		}
	}

	err = renderErr
	if writeErr != nil {
		err = writeErr
	}
	if err != nil {
		run.Error = err.Error()
		logging.LogRenderError(r.log, res.RunID, time.Since(start), err)
	} else {
		logging.LogRenderComplete(r.log, res.RunID, time.Since(start), run.Width, run.Height)
	}

	if j.history {
		if st, serr := r.store(); serr != nil {
			r.log.Warn("render history unavailable", "error", serr)
		} else if serr := st.RecordRun(ctx, run); serr != nil {
			r.log.Warn("render history not recorded", "error", serr)
		}
	}

	if j.output != "" && writeErr == nil {
		r.printf("%s  %dx%d  %s  %s\n", j.output, run.Width, run.Height,
			humanize.Bytes(uint64(run.Bytes)), res.Elapsed.Round(time.Millisecond))
	}
	return res, err
}

// writePNG encodes img to path and returns the file size.
func writePNG(path string, img *stereo.Raster) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	if err := img.SavePNG(path); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// writeThumbnail scales img to width pixels, keeping its aspect ratio.
func writeThumbnail(path string, img *stereo.Raster, width uint) (int64, error) {
	thumb := resize.Resize(width, 0, img, resize.Lanczos3)
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := png.Encode(f, thumb); err != nil {
		f.Close()
		return 0, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func thumbnailPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".thumb.png"
}
