package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/stereo"
	"github.com/gogpu/stereo/internal/colorfix"
	"github.com/gogpu/stereo/internal/logging"
	"github.com/gogpu/stereo/internal/watch"
)

// NewRootCmd creates the root Cobra command.
func NewRootCmd(root *Root) *cobra.Command {
	var (
		workers   int
		logLevel  string
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "stereo",
		Short: "Stereo pair correction pipeline",
		Long: `stereo corrects a left/right image pair (demosaic, pixel repair, fisheye,
color, rotation and zoom) and writes both panes side by side, aligned on a
common canvas.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			if fs.Changed("workers") {
				root.cfg.Engine.Workers = workers
				if err := root.cfg.Engine.Validate(); err != nil {
					return err
				}
			}
			if fs.Changed("log-level") || fs.Changed("log-format") {
				if fs.Changed("log-level") {
					root.cfg.Logging.Level = logLevel
				}
				if fs.Changed("log-format") {
					root.cfg.Logging.Format = logFormat
				}
				root.log = logging.New(root.cfg.Logging.Level, root.cfg.Logging.Format)
				stereo.SetLogger(root.log)
			}
			return nil
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&workers, "workers", 0, "worker pool size, 0 runs on the calling goroutine")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (text, json)")

	rootCmd.AddCommand(newRenderCmd(root))
	rootCmd.AddCommand(newStatsCmd(root))
	rootCmd.AddCommand(newWatchCmd(root))
	rootCmd.AddCommand(newPresetCmd(root))
	rootCmd.AddCommand(newHistoryCmd(root))
	rootCmd.AddCommand(newEngineCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))

	return rootCmd
}

// renderFlags are shared by render and watch.
type renderFlags struct {
	params    paramFlags
	output    string
	thumbnail uint
	extract   bool
	markLeft  []string
	markRight []string
	subpixel  bool
	noHistory bool
}

func (f *renderFlags) register(root *Root, cmd *cobra.Command) {
	f.params.register(cmd)
	fs := cmd.Flags()
	fs.StringVarP(&f.output, "output", "o", filepath.Join(root.cfg.Paths.DefaultOutput, "stereo.png"), "side-by-side PNG to write")
	fs.UintVar(&f.thumbnail, "thumbnail", root.cfg.Render.Thumbnail, "thumbnail width, 0 disables")
	fs.BoolVar(&f.extract, "extract", false, "stop each color chain at its first range op and write that raster")
	fs.StringArrayVar(&f.markLeft, "mark-left", nil, "mark x,y[,label] on the left side (repeatable)")
	fs.StringArrayVar(&f.markRight, "mark-right", nil, "mark x,y[,label] on the right side (repeatable)")
	fs.BoolVar(&f.subpixel, "subpixel-marks", false, "draw marks after zoom at their exact screen position")
	fs.BoolVar(&f.noHistory, "no-history", false, "do not record the run in the history database")
}

func (f *renderFlags) job(ctx context.Context, root *Root, cmd *cobra.Command, left, right string) (job, error) {
	p, err := root.params(ctx, cmd, &f.params)
	if err != nil {
		return job{}, err
	}
	ml, err := parseMarks(f.markLeft)
	if err != nil {
		return job{}, err
	}
	mr, err := parseMarks(f.markRight)
	if err != nil {
		return job{}, err
	}
	j := job{
		left:      left,
		right:     right,
		output:    f.output,
		params:    p,
		marks:     stereo.Marks{Left: stereo.MarkSet{Marks: ml, Subpixel: f.subpixel}, Right: stereo.MarkSet{Marks: mr, Subpixel: f.subpixel}},
		command:   stereo.CommandRender,
		thumbnail: f.thumbnail,
		history:   !f.noHistory,
	}
	if f.extract {
		j.command = stereo.CommandExtract
	}
	return j, nil
}

func newRenderCmd(root *Root) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render <left> <right>",
		Short: "Correct a stereo pair and write it side by side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := f.job(cmd.Context(), root, cmd, args[0], args[1])
			if err != nil {
				return err
			}
			_, err = root.runJob(cmd.Context(), j)
			return err
		},
	}
	f.register(root, cmd)
	return cmd
}

func newStatsCmd(root *Root) *cobra.Command {
	var (
		f     paramFlags
		space string
	)
	cmd := &cobra.Command{
		Use:   "stats <left> <right>",
		Short: "Measure the color range of both corrected inputs",
		Long: `Runs the correction stages up to the color chain and reports the range
each side would be stretched with. --viewport restricts the measurement.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := root.params(ctx, cmd, &f)
			if err != nil {
				return err
			}
			next := colorfix.OpStretchRGB
			switch space {
			case "rgb":
			case "hsv":
				next = colorfix.OpStretchValue
			default:
				return fmt.Errorf("unknown color space %q", space)
			}
			for _, sp := range []*stereo.SideParams{&p.Left, &p.Right} {
				*sp = sp.WithColor(colorfix.Chain{Ops: []colorfix.Op{colorfix.OpStats, next}, Clip: sp.Color.Clip})
			}

			in, err := root.loadInputs(args[0], args[1])
			if err != nil {
				return err
			}
			rd, err := root.renderer()
			if err != nil {
				return err
			}
			res, err := rd.Render(ctx, in, p, stereo.Marks{}, stereo.CommandExtract)
			for i, name := range []string{"left", "right"} {
				pane := res.Left
				if i == 1 {
					pane = res.Right
				}
				rg := "(none)"
				if res.Ranges[i] != nil {
					rg = res.Ranges[i].String()
				}
				root.printf("%-5s  %-9s  %s\n", name, pane.String(), rg)
			}
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&space, "space", "rgb", "color space of the range (rgb, hsv)")
	return cmd
}

func newWatchCmd(root *Root) *cobra.Command {
	var (
		f        renderFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <left> <right>",
		Short: "Re-render whenever either input changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			j, err := f.job(ctx, root, cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := root.runJob(ctx, j); err != nil {
				root.log.Warn("initial render failed", "error", err)
			}

			w, err := watch.New([]string{j.left, j.right}, debounce, root.log)
			if err != nil {
				return err
			}
			defer w.Close()

			root.log.Info("watching inputs", "left", j.left, "right", j.right)
			err = w.Run(ctx, func(ctx context.Context, changed []string) error {
				root.log.Info("inputs changed", "files", changed)
				_, err := root.runJob(ctx, j)
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	f.register(root, cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-rendering")
	return cmd
}

func newPresetCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved parameter sets",
	}

	var f paramFlags
	saveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the parameters given by flags as a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := root.params(ctx, cmd, &f)
			if err != nil {
				return err
			}
			st, err := root.store()
			if err != nil {
				return err
			}
			if err := st.SavePreset(ctx, args[0], p); err != nil {
				return err
			}
			root.printf("saved preset %s\n", args[0])
			return nil
		},
	}
	f.register(saveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := root.store()
			if err != nil {
				return err
			}
			presets, err := st.Presets(cmd.Context())
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				root.printf("no presets\n")
				return nil
			}
			for _, p := range presets {
				root.printf("%-20s  updated %s\n", p.Name, humanize.Time(p.Updated))
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a preset as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := root.store()
			if err != nil {
				return err
			}
			p, err := st.Preset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(p.Params, "", "  ")
			if err != nil {
				return err
			}
			root.printf("%s\n", data)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := root.store()
			if err != nil {
				return err
			}
			if err := st.DeletePreset(cmd.Context(), args[0]); err != nil {
				return err
			}
			root.printf("deleted preset %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(saveCmd, listCmd, showCmd, deleteCmd)
	return cmd
}

func newHistoryCmd(root *Root) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := root.store()
			if err != nil {
				return err
			}
			runs, err := st.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				status := "ok"
				if run.Error != "" {
					status = "error: " + run.Error
				}
				root.printf("%s  %-14s  %-7s  %dx%d  %s  %s  %s\n",
					run.ID, humanize.Time(run.Time), run.Command, run.Width, run.Height,
					humanize.Bytes(uint64(run.Bytes)), run.Elapsed.Round(time.Millisecond), status)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")
	return cmd
}
