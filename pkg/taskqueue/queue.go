// Package taskqueue runs tagged tasks on a single worker goroutine in
// priority order. Pending tasks can be cancelled in bulk by tag prefix,
// which is how the predictor retires stale heavy-correction work before
// it ever runs.
package taskqueue

import (
	"container/heap"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Task is a unit of work executed on the worker goroutine.
type Task func()

type item struct {
	fn       Task
	priority int
	seq      uint64
	tag      string
}

// taskHeap orders by (priority asc, enqueue sequence asc).
type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*item)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is a single-worker prioritized task queue.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending taskHeap
	seq     uint64
	closed  bool
	drain   bool
	done    chan struct{}
}

// New starts the worker and returns the queue.
func New() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.worker()
	return q
}

// Submit enqueues fn with the given priority (smaller runs sooner) and tag.
// Submissions after Shutdown are rejected silently.
func (q *Queue) Submit(fn Task, priority int, tag string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.seq++
	heap.Push(&q.pending, &item{fn: fn, priority: priority, seq: q.seq, tag: tag})
	q.cond.Signal()
	return true
}

// Cancel removes every pending task whose tag begins with prefix and
// reports how many were dropped. A task already running is not interrupted.
func (q *Queue) Cancel(prefix string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.pending[:0]
	removed := 0
	for _, it := range q.pending {
		if strings.HasPrefix(it.tag, prefix) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	if removed > 0 {
		q.pending = kept
		heap.Init(&q.pending)
	}
	return removed
}

// Clear drops all pending tasks.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}

// Shutdown stops the worker and waits for it to exit. With drain set, the
// worker finishes everything already queued; otherwise pending tasks are
// discarded. The queue cannot be restarted.
func (q *Queue) Shutdown(drain bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.drain = drain
	if !drain {
		q.pending = nil
	}
	q.cond.Signal()
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) worker() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		it := heap.Pop(&q.pending).(*item)
		q.mu.Unlock()

		q.run(it)
	}
}

// run executes one task; a panicking task is logged and never stops the
// worker.
func (q *Queue) run(it *item) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("task %q panicked: %v", it.tag, r)
		}
	}()
	it.fn()
}
