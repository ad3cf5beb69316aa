package taskqueue

import (
	"sync"
	"testing"
	"time"
)

// block the worker with a first task so later submissions stay pending
// long enough to observe ordering and cancellation.
func blockWorker(q *Queue) (release func()) {
	started := make(chan struct{})
	gate := make(chan struct{})
	q.Submit(func() {
		close(started)
		<-gate
	}, -100, "gate")
	<-started
	return func() { close(gate) }
}

func TestPriorityOrdering(t *testing.T) {
	q := New()
	defer q.Shutdown(false)

	release := blockWorker(q)

	var mu sync.Mutex
	var order []string
	record := func(name string) Task {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	q.Submit(record("low"), 10, "t:low")
	q.Submit(record("high"), 1, "t:high")
	q.Submit(record("mid"), 5, "t:mid")
	q.Submit(record("high2"), 1, "t:high2")

	release()
	q.Shutdown(true)

	want := []string{"high", "high2", "mid", "low"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
}

func TestCancelByTagPrefix(t *testing.T) {
	q := New()
	defer q.Shutdown(false)

	release := blockWorker(q)

	var mu sync.Mutex
	ran := map[string]bool{}
	mark := func(name string) Task {
		return func() {
			mu.Lock()
			ran[name] = true
			mu.Unlock()
		}
	}

	q.Submit(mark("a1"), 5, "heavy:1")
	q.Submit(mark("a2"), 5, "heavy:2")
	q.Submit(mark("b"), 5, "light:1")

	if n := q.Cancel("heavy:"); n != 2 {
		t.Errorf("cancelled %d, want 2", n)
	}

	release()
	q.Shutdown(true)

	mu.Lock()
	defer mu.Unlock()
	if ran["a1"] || ran["a2"] {
		t.Error("cancelled tasks ran")
	}
	if !ran["b"] {
		t.Error("unrelated task did not run")
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	q := New()
	defer q.Shutdown(false)

	done := make(chan struct{})
	q.Submit(func() { panic("boom") }, 1, "bad")
	q.Submit(func() { close(done) }, 2, "good")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}
}

func TestSubmitAfterShutdownRejected(t *testing.T) {
	q := New()
	q.Shutdown(false)
	if q.Submit(func() {}, 1, "late") {
		t.Error("submit accepted after shutdown")
	}
}

func TestShutdownWithoutDrainTerminates(t *testing.T) {
	q := New()
	release := blockWorker(q)

	var ran bool
	q.Submit(func() { ran = true }, 5, "x")
	release()
	// Give the discard path a racing chance either way: shutdown without
	// drain may still run the task if the worker grabbed it first, so only
	// assert the queue terminates.
	q.Shutdown(false)
	_ = ran
}

func TestEqualPriorityFIFO(t *testing.T) {
	q := New()
	defer q.Shutdown(false)

	release := blockWorker(q)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}, 3, "same")
	}
	release()
	q.Shutdown(true)

	mu.Lock()
	defer mu.Unlock()
	for i := range order {
		if order[i] != i {
			t.Fatalf("order %v not FIFO", order)
		}
	}
}
