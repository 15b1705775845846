package parallel

import (
	"errors"
	"fmt"
	"runtime"
)

// MaxWorkers bounds Config.Workers.
const MaxWorkers = 256

// ErrInvalidConfig is returned by Config.Validate and Engine.Configure.
var ErrInvalidConfig = errors.New("parallel: invalid config")

// Config is the tunable part of the execution engine.
//
// A Config is a plain value; changing one has no effect until it is passed to
// Engine.Configure.
type Config struct {
	// Workers is the pool size. Zero runs everything synchronously on the
	// calling goroutine without creating any task.
	Workers int `json:"workers"`

	// SplitSides runs the left and right pipelines concurrently.
	SplitSides bool `json:"split_sides"`

	// Interleave lets row subtasks of both sides share the pool at the same
	// time. When false, one fan-out completes before the next one starts.
	Interleave bool `json:"interleave"`

	// Subtasks is the preferred number of subranges per fan-out. A range is
	// split into at most max(Subtasks, Workers) parts.
	Subtasks int `json:"subtasks"`
}

// MaxParallelism reports the hardware parallelism available to the process.
func MaxParallelism() int {
	n := runtime.NumCPU()
	if g := runtime.GOMAXPROCS(0); g < n {
		n = g
	}
	return n
}

// DefaultConfig derives a configuration from the available parallelism.
func DefaultConfig() Config {
	w := MaxParallelism()
	return Config{
		Workers:    w,
		SplitSides: true,
		Interleave: true,
		Subtasks:   2 * w,
	}
}

// Sequential returns a configuration that never leaves the calling goroutine.
func Sequential() Config {
	return Config{}
}

// Validate reports whether c can be applied.
func (c Config) Validate() error {
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers %d outside [0, %d]", ErrInvalidConfig, c.Workers, MaxWorkers)
	}
	if c.Subtasks < 0 {
		return fmt.Errorf("%w: negative subtasks %d", ErrInvalidConfig, c.Subtasks)
	}
	return nil
}

// maxParts is the upper bound on subranges per fan-out.
func (c Config) maxParts() int {
	return max(c.Subtasks, c.Workers)
}
