package stereo

import (
	"log/slog"

	"github.com/gogpu/stereo/internal/logx"
)

// SetLogger routes the log output of the pipeline and the engine to l.
// Nothing is logged until it is called; SetLogger(nil) silences the module
// again. It may be called while renders are running.
//
// Records at [slog.LevelDebug] carry stage timings and engine swaps.
// Records at [slog.LevelWarn] report skipped stages and failed sides.
//
//	stereo.SetLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
func SetLogger(l *slog.Logger) {
	logx.Set(l)
}

// Logger returns the logger installed by SetLogger, or a discarding logger.
func Logger() *slog.Logger {
	return logx.L()
}
