// Package parallel is the execution engine of the stereo pipeline.
//
// It provides two primitives on top of a work-stealing WorkerPool:
//
//   - SplitRange / Runner.ForRange divide a row interval into contiguous
//     spans and run a closure per span, merging partial results.
//   - RunOne / RunPair run whole computations (typically one side of the
//     stereo pair) as pool tasks and block until they finish.
//
// The pool size and the splitting policy live in a Config. An Engine holds
// the current Runner (Config + pool) behind an atomic pointer; Configure
// swaps in a fresh Runner and retires the old pool without disturbing runs
// that already hold it.
//
// With Workers == 0 every primitive degrades to a plain function call on the
// calling goroutine.
package parallel
