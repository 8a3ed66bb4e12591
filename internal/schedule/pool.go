package schedule

import (
	"runtime"
	"sync"

	deadlock "github.com/sasha-s/go-deadlock"
)

// Pool is a fixed-size OS-thread worker pool draining a Queue. Cancellation
// and timeouts are deliberately absent: every task runs to completion,
// and termination of the analyses dispatched here is guaranteed by their
// own lattice height and re-queue caps, not by the pool.
type Pool struct {
	Workers int
	queue   *Queue

	errMu deadlock.Mutex
	errs  []error
}

// NewPool returns a pool with the given worker count. A non-positive count
// defaults to runtime.NumCPU(), sizing goroutine fan-out off the host.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{Workers: workers, queue: NewQueue()}
}

// Submit queues a task. Must be called before Run.
func (p *Pool) Submit(t Task) error {
	return p.queue.Submit(t)
}

// Run starts the queue, spawns Workers goroutines draining it by
// descending weight, and blocks until every task has completed. It
// returns every error collected from failed or panicking tasks, in
// completion order (not submission order — task completion across
// workers is inherently unordered; callers needing stable diagnostic
// ordering must sort by source position themselves).
func (p *Pool) Run() []error {
	p.queue.start()

	var wg sync.WaitGroup
	wg.Add(p.Workers)
	for i := 0; i < p.Workers; i++ {
		go func() {
			defer wg.Done()
			p.drain()
		}()
	}
	wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.errs
}

func (p *Pool) drain() {
	for {
		t, ok := p.queue.pop()
		if !ok {
			return
		}
		p.runTask(t)
	}
}

func (p *Pool) runTask(t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.recordErr(panicToError(r))
		}
	}()
	if err := t.Run(); err != nil {
		p.recordErr(err)
	}
}

func (p *Pool) recordErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	p.errs = append(p.errs, err)
}
