package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/stereo"
	"github.com/gogpu/stereo/internal/config"
)

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long:  "Show or create the stereo configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(root.cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", root.cfgPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Default().Save(root.cfgPath); err != nil {
				return err
			}
			root.printf("wrote %s\n", root.cfgPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root.printf("Config file: %s\n\n", root.cfgPath)
			data, err := json.MarshalIndent(root.cfg, "", "  ")
			if err != nil {
				return err
			}
			root.printf("%s\n", data)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newEngineCmd(root *Root) *cobra.Command {
	var probe int
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Show the execution engine settings",
		Long: `Prints the engine settings in effect. With --probe N a synthetic N×N pair is
rendered and the engine counters are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := root.cfg.Engine
			root.printf("Go:              %s\n", runtime.Version())
			root.printf("Max parallelism: %d\n", stereo.MaxParallelism())
			root.printf("Workers:         %d\n", s.Workers)
			root.printf("Subtasks:        %d\n", s.Subtasks)
			root.printf("Split sides:     %t\n", s.SplitSides)
			root.printf("Interleave:      %t\n", s.Interleave)
			if probe <= 0 {
				return nil
			}

			rd, err := root.renderer()
			if err != nil {
				return err
			}
			in := stereo.Inputs{Left: probeRaster(probe, 1), Right: probeRaster(probe, 2)}
			p := stereo.DefaultParams()
			p.Left = p.Left.WithAngle(3)
			p.Right = p.Right.WithZoom(0.5)

			start := time.Now()
			if _, err := rd.Render(cmd.Context(), in, p, stereo.Marks{}, stereo.CommandRender); err != nil {
				return err
			}
			st := root.engine.Runner().Stats()
			root.printf("\nProbe %dx%d (%s per side) in %s\n", probe, probe,
				humanize.Bytes(uint64(probe*probe*3)), time.Since(start).Round(time.Microsecond))
			root.printf("  pooled tasks:  %s\n", humanize.Comma(st.Pooled))
			root.printf("  inline runs:   %s\n", humanize.Comma(st.Inline))
			root.printf("  fan-outs:      %s\n", humanize.Comma(st.Fanouts))
			return nil
		},
	}
	cmd.Flags().IntVar(&probe, "probe", 0, "render a synthetic pair of this size")
	return cmd
}

func probeRaster(n int, seed uint64) *stereo.Raster {
	rng := rand.New(rand.NewPCG(seed, seed*31))
	r := stereo.NewRaster(n, n)
	pix := r.Pix()
	for i := range pix {
		pix[i] = uint8(rng.IntN(256))
	}
	return r
}
