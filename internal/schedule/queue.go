// Package schedule implements a priority task queue and a fixed-size
// worker pool dispatching over it, used to run per-function analysis and
// AST-to-CHIR translation across OS threads: goroutines drained via a
// WaitGroup, panics recovered and reported rather than crashing the
// pool.
package schedule

import (
	"container/heap"
	"fmt"

	"github.com/pkg/errors"
	deadlock "github.com/sasha-s/go-deadlock"
)

// Task is one unit of scheduled work: Run does the work, Weight orders it
// against its queue-mates (higher runs first).
type Task struct {
	Weight int
	Run    func() error
}

type taskHeap []Task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].Weight > h[j].Weight }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(Task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ErrQueueStarted is returned by Queue.Submit once the pool owning the
// queue has begun executing: adding tasks concurrently with execution is
// a precondition violation, not a race to paper over.
var ErrQueueStarted = errors.New("schedule: cannot submit a task after the queue has started executing")

// Queue is a priority task queue: workers pop the highest-weight task
// first. Every task must be submitted before the pool starts draining the
// queue; Submit after Start fails with ErrQueueStarted.
type Queue struct {
	mu      deadlock.Mutex
	items   taskHeap
	started bool
}

// NewQueue returns an empty queue ready to accept tasks.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.items)
	return q
}

// Submit adds a task to the queue. Fails once the queue has started.
func (q *Queue) Submit(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return ErrQueueStarted
	}
	heap.Push(&q.items, t)
	return nil
}

// start marks the queue as executing; called once by the owning Pool
// before spawning workers.
func (q *Queue) start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.started = true
}

// pop removes and returns the highest-weight remaining task. Returns
// false once the queue is empty — callers never block waiting for more
// work, since no task may arrive after start.
func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Task{}, false
	}
	return heap.Pop(&q.items).(Task), true
}

// Len reports how many tasks remain queued (racy once workers are
// draining it; intended for pre-Start diagnostics/logging only).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return errors.Wrap(err, "task panicked")
	}
	return errors.Errorf("task panicked: %v", fmt.Sprint(r))
}
