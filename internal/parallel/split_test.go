package parallel

import (
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestRunner(t testing.TB, cfg Config) *Runner {
	t.Helper()
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner(%+v): %v", cfg, err)
	}
	t.Cleanup(r.Close)
	return r
}

// =============================================================================
// Subranges Tests
// =============================================================================

func TestSubranges(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		parts      int
		want       []Span
	}{
		{"empty", 5, 5, 4, nil},
		{"single part", 0, 10, 1, []Span{{0, 10}}},
		{"even", 0, 8, 4, []Span{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"remainder to last", 0, 10, 4, []Span{{0, 2}, {2, 4}, {4, 6}, {6, 10}}},
		{"more parts than indices", 3, 6, 10, []Span{{3, 4}, {4, 5}, {5, 6}}},
		{"non-zero start", 100, 107, 2, []Span{{100, 103}, {103, 107}}},
		{"zero parts", 0, 4, 0, []Span{{0, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subranges(tt.start, tt.end, tt.parts)
			if len(got) != len(tt.want) {
				t.Fatalf("Subranges(%d, %d, %d) = %v, want %v", tt.start, tt.end, tt.parts, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("span %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// =============================================================================
// SplitRange Coverage Tests
// =============================================================================

func TestSplitRange_CoversEveryIndexOnce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for iter := 0; iter < 60; iter++ {
		workers := rng.IntN(33)
		subtasks := rng.IntN(40)
		n := 1 + rng.IntN(500)
		start := rng.IntN(50)

		r := newTestRunner(t, Config{Workers: workers, Subtasks: subtasks, Interleave: iter%2 == 0})

		hits := make([]atomic.Int32, n)
		var calls atomic.Int32
		r.ForRange(start, start+n, func(lo, hi int) {
			calls.Add(1)
			if lo >= hi {
				t.Errorf("empty span [%d,%d)", lo, hi)
			}
			for i := lo; i < hi; i++ {
				hits[i-start].Add(1)
			}
		})

		for i := range hits {
			if c := hits[i].Load(); c != 1 {
				t.Fatalf("workers=%d subtasks=%d n=%d: index %d visited %d times", workers, subtasks, n, start+i, c)
			}
		}
		if workers > 0 && n >= 2 {
			want := min(max(subtasks, workers), n)
			if int(calls.Load()) != want {
				t.Errorf("workers=%d subtasks=%d n=%d: %d spans, want %d", workers, subtasks, n, calls.Load(), want)
			}
		}
	}
}

func TestSplitRange_InlineWhenSequential(t *testing.T) {
	r := newTestRunner(t, Sequential())

	var calls int
	got := SplitRange(r, 0, 1000, func(lo, hi int) int {
		calls++
		if lo != 0 || hi != 1000 {
			t.Errorf("span = [%d,%d), want [0,1000)", lo, hi)
		}
		return hi - lo
	}, func(a, b int) int {
		t.Error("merge called for an inline run")
		return a + b
	})

	if got != 1000 || calls != 1 {
		t.Errorf("got %d in %d calls, want 1000 in 1", got, calls)
	}
	if s := r.Stats(); s.Pooled != 0 || s.Fanouts != 0 {
		t.Errorf("sequential runner stats = %+v, want no pooled work", s)
	}
}

func TestSplitRange_NilRunner(t *testing.T) {
	var r *Runner
	got := SplitRange(r, 2, 9, func(lo, hi int) int { return hi - lo }, func(a, b int) int { return a + b })
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}

// =============================================================================
// Sequential / Parallel Equivalence Tests
// =============================================================================

func TestSplitRange_SequentialParallelEquivalence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	data := make([]int, 4096)
	for i := range data {
		data[i] = rng.IntN(1000) - 500
	}

	type hist [16]int
	sum := func(lo, hi int) int {
		s := 0
		for _, v := range data[lo:hi] {
			s += v
		}
		return s
	}
	minOf := func(lo, hi int) int {
		m := math.MaxInt
		for _, v := range data[lo:hi] {
			m = min(m, v)
		}
		return m
	}
	maxOf := func(lo, hi int) int {
		m := math.MinInt
		for _, v := range data[lo:hi] {
			m = max(m, v)
		}
		return m
	}
	histOf := func(lo, hi int) hist {
		var h hist
		for _, v := range data[lo:hi] {
			h[(v+500)*16/1000]++
		}
		return h
	}
	addHist := func(a, b hist) hist {
		for i := range a {
			a[i] += b[i]
		}
		return a
	}
	add := func(a, b int) int { return a + b }

	seq := newTestRunner(t, Sequential())
	wantSum := SplitRange(seq, 0, len(data), sum, add)
	wantMin := SplitRange(seq, 0, len(data), minOf, func(a, b int) int { return min(a, b) })
	wantMax := SplitRange(seq, 0, len(data), maxOf, func(a, b int) int { return max(a, b) })
	wantHist := SplitRange(seq, 0, len(data), histOf, addHist)

	for _, workers := range []int{2, 3, 8, 32} {
		for _, interleave := range []bool{true, false} {
			r := newTestRunner(t, Config{Workers: workers, Subtasks: workers * 3, Interleave: interleave})

			if got := SplitRange(r, 0, len(data), sum, add); got != wantSum {
				t.Errorf("workers=%d sum = %d, want %d", workers, got, wantSum)
			}
			if got := SplitRange(r, 0, len(data), minOf, func(a, b int) int { return min(a, b) }); got != wantMin {
				t.Errorf("workers=%d min = %d, want %d", workers, got, wantMin)
			}
			if got := SplitRange(r, 0, len(data), maxOf, func(a, b int) int { return max(a, b) }); got != wantMax {
				t.Errorf("workers=%d max = %d, want %d", workers, got, wantMax)
			}
			if got := SplitRange(r, 0, len(data), histOf, addHist); got != wantHist {
				t.Errorf("workers=%d histogram = %v, want %v", workers, got, wantHist)
			}
		}
	}
}

func TestSplitRange_MergeInSpanOrder(t *testing.T) {
	r := newTestRunner(t, Config{Workers: 4, Subtasks: 8, Interleave: true})

	got := SplitRange(r, 0, 64, func(lo, hi int) []int {
		return []int{lo}
	}, func(a, b []int) []int {
		return append(a, b...)
	})

	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("partials merged out of order: %v", got)
		}
	}
}

// =============================================================================
// Failure Tests
// =============================================================================

func TestSplitRange_PanicReraisedOnCaller(t *testing.T) {
	r := newTestRunner(t, Config{Workers: 4, Subtasks: 16, Interleave: true})
	boom := errors.New("boom")

	var merged atomic.Bool
	func() {
		defer func() {
			v := recover()
			pe, ok := v.(*PanicError)
			if !ok {
				t.Fatalf("recovered %T(%v), want *PanicError", v, v)
			}
			if !errors.Is(pe, boom) {
				t.Errorf("PanicError does not wrap the original error: %v", pe)
			}
			if len(pe.Stack) == 0 {
				t.Error("PanicError has no stack")
			}
		}()
		SplitRange(r, 0, 160, func(lo, hi int) int {
			if lo == 40 {
				panic(boom)
			}
			return 1
		}, func(a, b int) int {
			merged.Store(true)
			return a + b
		})
	}()

	if merged.Load() {
		t.Error("merge ran for a failed SplitRange")
	}
}

func TestSplitRange_PanicInline(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("inline panic was swallowed")
		}
	}()
	r := newTestRunner(t, Sequential())
	r.ForRange(0, 10, func(lo, hi int) { panic("inline") })
}

// =============================================================================
// Nesting & Interleave Tests
// =============================================================================

func TestSplitRange_FromPoolTask(t *testing.T) {
	// Every worker is busy running an outer task that fans out again; the
	// callers must finish their own spans without waiting on the pool.
	r := newTestRunner(t, Config{Workers: 2, Subtasks: 8, SplitSides: true, Interleave: true})

	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := RunOne(r, func() int {
				return SplitRange(r, 0, 100, func(lo, hi int) int { return hi - lo }, func(a, b int) int { return a + b })
			})
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}()
	}
	wg.Wait()

	for i, v := range results {
		if v != 100 {
			t.Errorf("result[%d] = %d, want 100", i, v)
		}
	}
}

func TestSplitRange_InterleaveOffSerialisesFanouts(t *testing.T) {
	r := newTestRunner(t, Config{Workers: 4, Subtasks: 4, SplitSides: true, Interleave: false})

	var active [2]atomic.Int32
	var overlaps atomic.Int32
	side := func(me int) func() struct{} {
		other := 1 - me
		return func() struct{} {
			for range 30 {
				r.ForRange(0, 8, func(lo, hi int) {
					active[me].Add(1)
					if active[other].Load() > 0 {
						overlaps.Add(1)
					}
					time.Sleep(50 * time.Microsecond)
					active[me].Add(-1)
				})
			}
			return struct{}{}
		}
	}

	_, _, errA, errB := RunPair(r, side(0), side(1))
	if errA != nil || errB != nil {
		t.Fatal(errA, errB)
	}
	if n := overlaps.Load(); n != 0 {
		t.Errorf("observed %d spans overlapping another side's fan-out", n)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkSplitRange(b *testing.B) {
	for _, workers := range []int{0, 2, 4, 8} {
		r, _ := NewRunner(Config{Workers: workers, Subtasks: workers * 2, Interleave: true})
		data := make([]float64, 1<<16)
		b.Run("workers="+strconv.Itoa(workers), func(b *testing.B) {
			for range b.N {
				r.ForRange(0, len(data), func(lo, hi int) {
					for i := lo; i < hi; i++ {
						data[i] = math.Sqrt(float64(i))
					}
				})
			}
		})
		r.Close()
	}
}
