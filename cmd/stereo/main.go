// Command stereo corrects stereo image pairs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/stereo"
	"github.com/gogpu/stereo/internal/cli"
	"github.com/gogpu/stereo/internal/config"
	"github.com/gogpu/stereo/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath, err := config.Path()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stereo:", err)
		return 1
	}
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stereo:", err)
		return 1
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	stereo.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRoot(cfg, cfgPath, log, os.Stdout)
	defer root.Close()

	if err := cli.NewRootCmd(root).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
