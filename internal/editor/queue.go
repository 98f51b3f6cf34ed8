package editor

import "sync"

// envelope carries an action to the session goroutine. reply is nil for
// internal actions (timer fires and sync completions).
type envelope struct {
	action Action
	reply  chan result
}

type result struct {
	outcome Outcome
	err     error
}

// actionQueue is a thread-safe unbounded FIFO.
//
// Timer goroutines and request goroutines enqueue; only the session
// goroutine dequeues. The signal channel lets Run wait without polling and
// still observe context cancellation.
type actionQueue struct {
	mu      sync.Mutex
	pending []envelope
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newActionQueue() *actionQueue {
	return &actionQueue{
		pending: make([]envelope, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds an envelope to the back of the queue.
// Returns false if the queue is closed.
func (q *actionQueue) Enqueue(e envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.pending = append(q.pending, e)

	// Buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front envelope without blocking.
func (q *actionQueue) TryDequeue() (envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return envelope{}, false
	}
	e := q.pending[0]
	q.pending[0] = envelope{}
	if len(q.pending) == 1 {
		q.pending = q.pending[:0]
	} else {
		q.pending = q.pending[1:]
	}
	return e, true
}

// Wait returns a channel that signals when envelopes may be available.
// It is closed when the queue is closed.
func (q *actionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued envelopes.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops further enqueues and wakes any waiter.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *actionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
