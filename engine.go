package stereo

import (
	"github.com/gogpu/stereo/internal/parallel"
)

// EngineSettings configures the execution engine: worker count, whether the
// two sides run concurrently, whether their row fan-outs may interleave,
// and how many row spans a stage is split into.
type EngineSettings = parallel.Config

// Engine owns a worker pool and its configuration.
type Engine = parallel.Engine

// EngineStats counts how a runner executed its work.
type EngineStats = parallel.RunnerStats

// ErrInvalidConfig is returned for rejected engine settings.
var ErrInvalidConfig = parallel.ErrInvalidConfig

// NewEngine creates an engine separate from the process-wide default.
// Close it when done.
func NewEngine(cfg EngineSettings) (*Engine, error) {
	return parallel.NewEngine(cfg)
}

// DefaultEngineSettings returns the settings the default engine starts with.
func DefaultEngineSettings() EngineSettings {
	return parallel.DefaultConfig()
}

// EngineConfig returns the settings of the process-wide engine.
func EngineConfig() EngineSettings {
	return parallel.Default().Config()
}

// Configure replaces the settings of the process-wide engine. Renders that
// already started finish under the previous settings.
func Configure(cfg EngineSettings) error {
	return parallel.Default().Configure(cfg)
}

// MaxParallelism is the largest useful worker count on this machine.
func MaxParallelism() int {
	return parallel.MaxParallelism()
}

// Stats returns the counters of the process-wide engine's current runner.
func Stats() EngineStats {
	return parallel.Default().Runner().Stats()
}
