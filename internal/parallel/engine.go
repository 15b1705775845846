package parallel

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/stereo/internal/logx"
)

// Runner is an immutable snapshot of the engine: one Config and the pool
// built for it. Pipeline runs take a Runner at their start and use it for
// their whole duration, so a concurrent Configure never changes the rules
// half way through a run.
//
// A nil *Runner is valid and runs everything inline.
type Runner struct {
	cfg  Config
	pool *WorkerPool // nil when cfg.Workers == 0

	// gate serialises fan-outs when cfg.Interleave is false.
	gate sync.Mutex

	pooled  atomic.Int64
	inline  atomic.Int64
	fanouts atomic.Int64
}

// RunnerStats counts how work was executed by a Runner.
type RunnerStats struct {
	Pooled  int64 // closures executed by pool workers
	Inline  int64 // closures executed on the calling goroutine
	Fanouts int64 // SplitRange calls that used more than one subrange
}

func newRunner(cfg Config) *Runner {
	r := &Runner{cfg: cfg}
	if cfg.Workers > 0 {
		r.pool = NewWorkerPool(cfg.Workers)
	}
	return r
}

// NewRunner builds a standalone runner outside any Engine. The caller owns
// it and must Close it.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newRunner(cfg), nil
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.cfg
}

// Concurrent reports whether left and right work may run at the same time.
func (r *Runner) Concurrent() bool {
	return r != nil && r.pool != nil && r.cfg.SplitSides
}

// Stats returns a copy of the execution counters.
func (r *Runner) Stats() RunnerStats {
	if r == nil {
		return RunnerStats{}
	}
	return RunnerStats{
		Pooled:  r.pooled.Load(),
		Inline:  r.inline.Load(),
		Fanouts: r.fanouts.Load(),
	}
}

// Close retires the runner's pool after its queued work has run.
func (r *Runner) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}

// submit hands fn to the pool, or runs it inline when the pool is absent,
// saturated or retired.
func (r *Runner) submit(fn func()) {
	if r != nil && r.pool != nil && r.pool.Submit(fn) {
		r.pooled.Add(1)
		return
	}
	if r != nil {
		r.inline.Add(1)
	}
	fn()
}

// Engine is the process-wide holder of the current Runner.
//
// Reads are a single atomic load. Configure builds a complete new Runner and
// swaps it in; the previous pool is retired once its queued work is done.
type Engine struct {
	mu  sync.Mutex // serialises Configure
	cur atomic.Pointer[Runner]
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{}
	e.cur.Store(newRunner(cfg))
	return e, nil
}

// Runner returns the current snapshot.
func (e *Engine) Runner() *Runner {
	return e.cur.Load()
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	return e.cur.Load().cfg
}

// Configure replaces the configuration. Runs started after Configure returns
// use the new configuration; runs in flight finish on the old one.
func (e *Engine) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.cur.Swap(newRunner(cfg))
	logx.L().Debug("parallel: engine reconfigured",
		"workers", cfg.Workers,
		"split_sides", cfg.SplitSides,
		"interleave", cfg.Interleave,
		"subtasks", cfg.Subtasks)

	if old != nil && old.pool != nil {
		// In-flight runs may still submit to the old pool; once closed it
		// rejects submissions and they fall back to inline execution.
		go old.Close()
	}
	return nil
}

// Close shuts down the current pool. The engine keeps working afterwards,
// executing everything inline until reconfigured.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cur.Load().Close()
}

var defaultEngine = func() *Engine {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return e
}()

// Default returns the process-wide engine, created at package
// initialisation from DefaultConfig.
func Default() *Engine {
	return defaultEngine
}
