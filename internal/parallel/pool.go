package parallel

import (
	"sync"
	"sync/atomic"
)

// lane is the buffered queue owned by one worker.
type lane chan func()

// drain runs whatever is left in l without blocking.
func (l lane) drain() {
	for {
		select {
		case fn := <-l:
			fn()
		default:
			return
		}
	}
}

// WorkerPool runs submitted closures on a fixed set of goroutines.
//
// Every worker owns a lane and, once its lane is empty, takes work from the
// lanes of its neighbours. A side pipeline blocked in one worker therefore
// does not hold back the row spans queued behind it.
//
// Submit never blocks. It reports false when all lanes are full or the pool
// is closed, and the caller then runs the closure itself. Accepted work is
// always executed, also when it is still queued at Close.
type WorkerPool struct {
	lanes  []lane
	stop   chan struct{}
	exited sync.WaitGroup

	// mu orders Submit against Close.
	mu     sync.RWMutex
	closed bool

	cursor atomic.Uint32
}

// NewWorkerPool starts n workers. Values below one start a single worker.
func NewWorkerPool(n int) *WorkerPool {
	n = max(n, 1)
	depth := max(4*n, 8)

	p := &WorkerPool{
		lanes: make([]lane, n),
		stop:  make(chan struct{}),
	}
	for i := range p.lanes {
		p.lanes[i] = make(lane, depth)
	}
	p.exited.Add(n)
	for i := range n {
		go p.serve(i)
	}
	return p
}

func (p *WorkerPool) serve(own int) {
	defer p.exited.Done()
	for {
		fn, ok := p.take(own)
		if !ok {
			p.lanes[own].drain()
			return
		}
		fn()
	}
}

// take returns the next closure for worker own. It prefers the worker's
// lane, then any other lane, and otherwise waits. ok is false once the
// pool is stopping.
func (p *WorkerPool) take(own int) (fn func(), ok bool) {
	select {
	case fn = <-p.lanes[own]:
		return fn, true
	default:
	}

	n := len(p.lanes)
	for k := 1; k < n; k++ {
		select {
		case fn = <-p.lanes[(own+k)%n]:
			return fn, true
		default:
		}
	}

	select {
	case fn = <-p.lanes[own]:
		return fn, true
	case <-p.stop:
		return nil, false
	}
}

// Submit queues fn. A false result means fn was not accepted and will not
// run unless the caller runs it.
func (p *WorkerPool) Submit(fn func()) bool {
	if fn == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	n := len(p.lanes)
	first := int(p.cursor.Add(1) % uint32(n))
	for k := range n {
		select {
		case p.lanes[(first+k)%n] <- fn:
			return true
		default:
		}
	}
	return false
}

// Close rejects further work, lets the workers finish their lanes and waits
// for them. Repeated calls are no-ops.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stop)
	p.mu.Unlock()

	p.exited.Wait()
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int { return len(p.lanes) }

// IsRunning reports whether Submit may still accept work.
func (p *WorkerPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// QueuedWork is a snapshot of the closures waiting in all lanes.
func (p *WorkerPool) QueuedWork() int {
	n := 0
	for _, l := range p.lanes {
		n += len(l)
	}
	return n
}
