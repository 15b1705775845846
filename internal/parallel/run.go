package parallel

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

// PanicError carries a panic recovered from a task, together with the stack
// of the goroutine that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	if pe, ok := v.(*PanicError); ok {
		return pe
	}
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// call runs fn and converts a panic into a *PanicError.
func call[T any](fn func() T) (out T, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = newPanicError(v)
		}
	}()
	return fn(), nil
}

// RunOne runs fn as a single pool task and blocks until it has finished.
// With a nil runner or zero workers fn runs inline; no task is created.
// A panic in fn is returned as a *PanicError.
//
// RunOne must not be called from inside a pool task of the same runner;
// use SplitRange there.
func RunOne[T any](r *Runner, fn func() T) (T, error) {
	if r == nil || r.pool == nil {
		if r != nil {
			r.inline.Add(1)
		}
		return call(fn)
	}

	var (
		out  T
		err  error
		done = make(chan struct{})
	)
	r.submit(func() {
		defer close(done)
		out, err = call(fn)
	})
	<-done
	return out, err
}

// RunPair runs fa and fb as two tasks and waits for both. Each error is the
// *PanicError of its own closure; one failing never stops the other.
//
// While waiting, the caller executes whichever of the two tasks no worker
// has started yet, so the pair completes even when every worker is busy.
func RunPair[A, B any](r *Runner, fa func() A, fb func() B) (a A, b B, errA, errB error) {
	if r == nil || r.pool == nil {
		if r != nil {
			r.inline.Add(2)
		}
		a, errA = call(fa)
		b, errB = call(fb)
		return a, b, errA, errB
	}

	var claimedA, claimedB atomic.Bool
	doneA := make(chan struct{})
	doneB := make(chan struct{})

	taskA := func() {
		if claimedA.CompareAndSwap(false, true) {
			defer close(doneA)
			a, errA = call(fa)
		}
	}
	taskB := func() {
		if claimedB.CompareAndSwap(false, true) {
			defer close(doneB)
			b, errB = call(fb)
		}
	}

	r.submit(taskA)
	r.submit(taskB)

	// Help with whatever is still queued.
	if !claimedB.Load() {
		taskB()
	}
	if !claimedA.Load() {
		taskA()
	}
	<-doneA
	<-doneB
	return a, b, errA, errB
}

// IsPanic reports whether err carries a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
