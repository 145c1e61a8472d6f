package engine

import (
	"sync"

	"github.com/mesa-livre/print-agent/internal/model"
)

// jobQueue is the FIFO of admitted orders waiting for the printer. Admission
// marks an order as processed before it is pushed here, so an order id never
// appears in the queue twice within one activation epoch.
type jobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []model.Order
	closed bool
}

func newJobQueue() *jobQueue {
	q := &jobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *jobQueue) Push(order model.Order) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.jobs = append(q.jobs, order)
	q.cond.Signal()
}

// Pop blocks until a job is available or the queue is closed. The second
// return is false once the queue is closed and drained.
func (q *jobQueue) Pop() (model.Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.jobs) == 0 {
		return model.Order{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}

func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Clear drops every pending job. Used when auto-print is disabled: whatever
// was waiting must not print after the operator turned the feature off.
func (q *jobQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	q.jobs = nil
	return n
}

func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
