// Package scheduler decouples the layout engine from whatever drives its
// frames. The engine asks for one tick at a time; a Scheduler decides when
// that tick runs: on the next display frame, on a paced worker, or when a
// test steps it by hand.
package scheduler

import (
	"sync"
)

// Handle identifies a requested tick. The zero Handle is never issued.
type Handle uint64

// Scheduler runs requested callbacks at some later point
type Scheduler interface {
	// RequestTick registers fn to run once. It returns a handle that can
	// be used to cancel the request before it runs.
	RequestTick(fn func()) Handle

	// CancelTick withdraws a request. It is a no-op if the handle is
	// unknown, already ran or was already cancelled.
	CancelTick(h Handle)
}

type request struct {
	handle Handle
	fn     func()
}

// queue holds pending requests in the order they were made
type queue struct {
	mu      sync.Mutex
	counter uint64
	pending []request
}

func (q *queue) push(fn func()) Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.counter++
	h := Handle(q.counter)
	q.pending = append(q.pending, request{handle: h, fn: fn})
	return h
}

func (q *queue) cancel(h Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, r := range q.pending {
		if r.handle == h {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// pop removes and returns the oldest request
func (q *queue) pop() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return request{}, false
	}
	r := q.pending[0]
	q.pending = q.pending[1:]
	return r, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Manual runs requests only when stepped. It is used by tests and by
// one-shot layouts that want to run to convergence synchronously.
type Manual struct {
	q queue
}

// NewManual creates a manual scheduler
func NewManual() *Manual {
	return &Manual{}
}

// RequestTick implements Scheduler
func (m *Manual) RequestTick(fn func()) Handle {
	return m.q.push(fn)
}

// CancelTick implements Scheduler
func (m *Manual) CancelTick(h Handle) {
	m.q.cancel(h)
}

// Pending returns the number of requests waiting to run
func (m *Manual) Pending() int {
	return m.q.len()
}

// Step runs the oldest pending request, if any, and reports whether one ran.
// The callback runs outside the scheduler lock so it may request another tick.
func (m *Manual) Step() bool {
	r, ok := m.q.pop()
	if !ok {
		return false
	}
	if r.fn != nil {
		r.fn()
	}
	return true
}

// Drain steps until nothing is pending or limit requests have run. A limit
// of zero or less means no limit. It returns the number of requests run.
func (m *Manual) Drain(limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		if !m.Step() {
			break
		}
		n++
	}
	return n
}
