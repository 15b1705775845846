package parallel

import (
	"sync"
	"sync/atomic"
)

// Span is a half-open index interval [Lo, Hi).
type Span struct {
	Lo, Hi int
}

// Len returns the number of indices in the span.
func (s Span) Len() int {
	return s.Hi - s.Lo
}

// Subranges partitions [start, end) into at most parts contiguous spans.
// Every span but the last has (end-start)/parts indices; the last absorbs
// the remainder. It returns nil for an empty interval.
func Subranges(start, end, parts int) []Span {
	n := end - start
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	size := n / parts
	spans := make([]Span, parts)
	lo := start
	for i := range parts {
		hi := lo + size
		if i == parts-1 {
			hi = end
		}
		spans[i] = Span{Lo: lo, Hi: hi}
		lo = hi
	}
	return spans
}

// plan returns the spans a fan-out over [start, end) would use.
func (r *Runner) plan(start, end int) []Span {
	if r == nil || r.pool == nil || end-start < 2 {
		return []Span{{Lo: start, Hi: end}}
	}
	return Subranges(start, end, r.cfg.maxParts())
}

// SplitRange runs fn over [start, end), divided according to the runner's
// configuration, and folds the partial results with merge in span order.
//
// With a nil runner, zero workers or a range shorter than two, fn(start, end)
// runs inline and merge is never called. Otherwise the calling goroutine and
// up to Workers pool helpers claim spans until none are left, so SplitRange
// may be called from inside a pooled task.
//
// If any fn panics, the remaining unclaimed spans are skipped and the first
// panic is re-raised on the calling goroutine as a *PanicError once every
// running span has returned. merge never sees a partial result from a
// failed call.
//
// merge must be associative.
func SplitRange[T any](r *Runner, start, end int, fn func(lo, hi int) T, merge func(a, b T) T) T {
	spans := r.plan(start, end)
	if len(spans) <= 1 {
		if r != nil {
			r.inline.Add(1)
		}
		return fn(start, end)
	}

	if !r.cfg.Interleave {
		r.gate.Lock()
		defer r.gate.Unlock()
	}
	r.fanouts.Add(1)

	var (
		results = make([]T, len(spans))
		next    atomic.Int64
		failed  atomic.Pointer[PanicError]
		wg      sync.WaitGroup
	)
	wg.Add(len(spans))

	claim := func() {
		for {
			i := int(next.Add(1) - 1)
			if i >= len(spans) {
				return
			}
			if failed.Load() == nil {
				results[i] = runSpan(spans[i], fn, &failed)
			}
			wg.Done()
		}
	}

	helpers := min(r.cfg.Workers, len(spans)-1)
	for range helpers {
		if !r.pool.Submit(claim) {
			break
		}
		r.pooled.Add(1)
	}
	claim()
	wg.Wait()

	if pe := failed.Load(); pe != nil {
		panic(pe)
	}

	acc := results[0]
	for _, part := range results[1:] {
		acc = merge(acc, part)
	}
	return acc
}

func runSpan[T any](s Span, fn func(lo, hi int) T, failed *atomic.Pointer[PanicError]) (out T) {
	defer func() {
		if v := recover(); v != nil {
			failed.CompareAndSwap(nil, newPanicError(v))
		}
	}()
	return fn(s.Lo, s.Hi)
}

// ForRange runs fn over [start, end) like SplitRange, for closures that only
// write into memory they own. It returns once every span has completed.
func (r *Runner) ForRange(start, end int, fn func(lo, hi int)) {
	SplitRange(r, start, end, func(lo, hi int) struct{} {
		fn(lo, hi)
		return struct{}{}
	}, func(struct{}, struct{}) struct{} { return struct{}{} })
}
