// Package dual couples the left and right computations of a stereo pair.
//
// A Pair carries one value per side. Each operation maps or inspects both
// values, concurrently when the runner allows it, and returns only after
// both sides have finished. Consecutive operations are therefore strictly
// ordered, while the two sides of one operation are not ordered relative to
// each other.
//
// A side whose closure panics keeps the value it had before that operation
// and is skipped by every later operation; the other side keeps going. The
// failure is reported by Err, Left, Right and Join.
package dual

import (
	"errors"
	"fmt"

	"github.com/gogpu/stereo/internal/logx"
	"github.com/gogpu/stereo/internal/parallel"
)

// Side identifies one half of a pair.
type Side uint8

const (
	Left Side = iota
	Right
)

// String returns "left" or "right".
func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// SideError records the failure of one side.
type SideError struct {
	Side Side
	Err  error
}

func (e *SideError) Error() string {
	return fmt.Sprintf("%s side: %v", e.Side, e.Err)
}

func (e *SideError) Unwrap() error {
	return e.Err
}

// Pair holds exactly one left and one right value. The zero Pair is not
// useful; create one with Of.
type Pair[T any] struct {
	r           *parallel.Runner
	left, right T
	lerr, rerr  error
}

// Of computes the initial pair.
func Of[T any](r *parallel.Runner, lf, rf func() T) Pair[T] {
	p := Pair[T]{r: r}
	p.left, p.right, p.lerr, p.rerr = both(r, lf, rf)
	p.lerr = wrap(Left, p.lerr)
	p.rerr = wrap(Right, p.rerr)
	return p
}

// Update applies independent transforms to both values.
func (p Pair[T]) Update(lf, rf func(T) T) Pair[T] {
	return p.UpdateIf(true, lf, true, rf)
}

// UpdateIf is Update where a side whose condition is false passes its value
// through unchanged.
func (p Pair[T]) UpdateIf(lc bool, lf func(T) T, rc bool, rf func(T) T) Pair[T] {
	runL := lc && p.lerr == nil
	runR := rc && p.rerr == nil
	if !runL && !runR {
		return p
	}

	left, right := p.left, p.right
	nl, nr, lerr, rerr := both(p.r,
		func() T {
			if runL {
				return lf(left)
			}
			return left
		},
		func() T {
			if runR {
				return rf(right)
			}
			return right
		})

	out := p
	if lerr == nil {
		out.left = nl
	} else {
		out.lerr = wrap(Left, lerr)
	}
	if rerr == nil {
		out.right = nr
	} else {
		out.rerr = wrap(Right, rerr)
	}
	return out
}

// Observe runs side-effecting inspections of both values. The carried
// values are not changed; a panicking observer fails its side.
func (p Pair[T]) Observe(lf, rf func(T)) Pair[T] {
	return p.UpdateIf(lf != nil, func(v T) T {
		lf(v)
		return v
	}, rf != nil, func(v T) T {
		rf(v)
		return v
	})
}

// Left returns the left value and its failure, if any. On failure the value
// is the last one computed before the failing operation.
func (p Pair[T]) Left() (T, error) {
	return p.left, p.lerr
}

// Right returns the right value and its failure, if any.
func (p Pair[T]) Right() (T, error) {
	return p.right, p.rerr
}

// Err joins the failures of both sides.
func (p Pair[T]) Err() error {
	return errors.Join(p.lerr, p.rerr)
}

// Failed reports whether side s has failed.
func (p Pair[T]) Failed(s Side) bool {
	if s == Left {
		return p.lerr != nil
	}
	return p.rerr != nil
}

// Join returns both values and the joined failures.
func (p Pair[T]) Join() (left, right T, err error) {
	return p.left, p.right, p.Err()
}

// Runner returns the runner the pair schedules on.
func (p Pair[T]) Runner() *parallel.Runner {
	return p.r
}

// both runs the two closures under the runner's side policy.
func both[T any](r *parallel.Runner, lf, rf func() T) (left, right T, lerr, rerr error) {
	if r.Concurrent() {
		return parallel.RunPair(r, lf, rf)
	}
	left, lerr = parallel.RunOne[T](nil, lf)
	right, rerr = parallel.RunOne[T](nil, rf)
	return left, right, lerr, rerr
}

func wrap(s Side, err error) error {
	if err == nil {
		return nil
	}
	logx.L().Warn("dual: side failed", "side", s.String(), "error", err)
	return &SideError{Side: s, Err: err}
}
