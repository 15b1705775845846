package dual

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/stereo/internal/parallel"
)

func runners(t *testing.T) map[string]*parallel.Runner {
	t.Helper()
	out := map[string]*parallel.Runner{"nil": nil}
	for name, cfg := range map[string]parallel.Config{
		"sequential": parallel.Sequential(),
		"no-split":   {Workers: 4, Subtasks: 4, SplitSides: false, Interleave: true},
		"split":      {Workers: 4, Subtasks: 4, SplitSides: true, Interleave: true},
		"split-gate": {Workers: 2, Subtasks: 8, SplitSides: true, Interleave: false},
	} {
		r, err := parallel.NewRunner(cfg)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(r.Close)
		out[name] = r
	}
	return out
}

func TestPair_Operations(t *testing.T) {
	for name, r := range runners(t) {
		t.Run(name, func(t *testing.T) {
			double := func(v int) int { return v * 2 }
			inc := func(v int) int { return v + 1 }

			var seenL, seenR int
			p := Of(r, func() int { return 3 }, func() int { return 10 }).
				Update(double, inc).
				UpdateIf(false, double, true, double).
				Observe(func(v int) { seenL = v }, func(v int) { seenR = v })

			l, rr, err := p.Join()
			if err != nil {
				t.Fatal(err)
			}
			if l != 6 || rr != 22 {
				t.Errorf("Join() = %d, %d, want 6, 22", l, rr)
			}
			if seenL != 6 || seenR != 22 {
				t.Errorf("observed %d, %d, want 6, 22", seenL, seenR)
			}
		})
	}
}

func TestPair_OperationsAreSequenced(t *testing.T) {
	for name, r := range runners(t) {
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			var log []string
			record := func(s string) func(int) int {
				return func(v int) int {
					time.Sleep(time.Millisecond)
					mu.Lock()
					log = append(log, s)
					mu.Unlock()
					return v
				}
			}

			Of(r, func() int { return 0 }, func() int { return 0 }).
				Update(record("a"), record("a")).
				Update(record("b"), record("b")).
				Update(record("c"), record("c"))

			want := []string{"a", "a", "b", "b", "c", "c"}
			if len(log) != len(want) {
				t.Fatalf("log = %v", log)
			}
			for i := range want {
				if log[i] != want[i] {
					t.Fatalf("operation %d started before the previous one joined: %v", i/2, log)
				}
			}
		})
	}
}

func TestPair_SidesRunConcurrently(t *testing.T) {
	r, err := parallel.NewRunner(parallel.Config{Workers: 2, SplitSides: true, Interleave: true})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// Each side waits for the other to arrive: only completes when both run
	// at the same time.
	var wg sync.WaitGroup
	wg.Add(2)
	rendezvous := func() bool {
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return true
		case <-time.After(2 * time.Second):
			return false
		}
	}

	l, rr, err := Of(r, rendezvous, rendezvous).Join()
	if err != nil {
		t.Fatal(err)
	}
	if !l || !rr {
		t.Error("sides did not run concurrently")
	}
}

func TestPair_SequentialRunsLeftFirst(t *testing.T) {
	r, err := parallel.NewRunner(parallel.Config{Workers: 4, SplitSides: false})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var order []Side
	Of(r,
		func() int { order = append(order, Left); return 0 },
		func() int { order = append(order, Right); return 0 })

	if len(order) != 2 || order[0] != Left || order[1] != Right {
		t.Errorf("order = %v, want [left right]", order)
	}
}

func TestPair_FailureIsolation(t *testing.T) {
	for name, r := range runners(t) {
		t.Run(name, func(t *testing.T) {
			boom := errors.New("forced failure")
			var rightCalls int

			p := Of(r, func() int { return 1 }, func() int { return 1 }).
				Update(func(v int) int { return v + 1 }, func(v int) int { return v + 1 }).
				Update(func(v int) int { return v * 10 }, func(v int) int { panic(boom) }).
				Update(func(v int) int { return v + 5 }, func(v int) int { rightCalls++; return v })

			left, lerr := p.Left()
			if lerr != nil || left != 25 {
				t.Errorf("Left() = %d, %v, want 25, nil", left, lerr)
			}

			right, rerr := p.Right()
			if right != 2 {
				t.Errorf("Right() = %d, want pre-failure value 2", right)
			}
			var se *SideError
			if !errors.As(rerr, &se) || se.Side != Right {
				t.Fatalf("right error = %v, want *SideError for right", rerr)
			}
			if !errors.Is(p.Err(), boom) {
				t.Errorf("Err() = %v does not carry the panic value", p.Err())
			}
			if !p.Failed(Right) || p.Failed(Left) {
				t.Error("Failed() reports the wrong side")
			}
			if rightCalls != 0 {
				t.Error("failed side was updated again")
			}
		})
	}
}

func TestPair_ObserverPanicFailsSide(t *testing.T) {
	p := Of(nil, func() int { return 1 }, func() int { return 2 }).
		Observe(func(int) { panic("bad observer") }, nil)

	if !p.Failed(Left) || p.Failed(Right) {
		t.Errorf("Failed(left)=%v Failed(right)=%v", p.Failed(Left), p.Failed(Right))
	}
	if v, _ := p.Left(); v != 1 {
		t.Errorf("left value changed to %d", v)
	}
}

func TestSide_String(t *testing.T) {
	if Left.String() != "left" || Right.String() != "right" {
		t.Errorf("Side strings = %q, %q", Left, Right)
	}
}
