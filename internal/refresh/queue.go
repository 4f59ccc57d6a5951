package refresh

import "sync"

// triggerQueue is a thread-safe FIFO of order ids waiting for an explicit
// refresh. An id already waiting is not queued twice.
//
// Waiting uses a buffered signal channel so the Run loop can select on it
// alongside context cancellation and the poll ticker.
type triggerQueue struct {
	mu      sync.Mutex
	ids     []string
	pending map[string]struct{}
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newTriggerQueue() *triggerQueue {
	return &triggerQueue{
		ids:     make([]string, 0, 16),
		pending: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds id to the back of the queue. Returns false if the queue is
// closed. Enqueueing an id that is already waiting succeeds without
// adding a second entry.
func (q *triggerQueue) Enqueue(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if _, ok := q.pending[id]; !ok {
		q.pending[id] = struct{}{}
		q.ids = append(q.ids, id)
	}

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front id without blocking.
func (q *triggerQueue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	if len(q.ids) == 1 {
		q.ids = q.ids[:0]
	} else {
		q.ids = q.ids[1:]
	}
	delete(q.pending, id)
	return id, true
}

// Wait returns a channel that signals when ids may be available. It is
// closed by Close.
func (q *triggerQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of waiting ids.
func (q *triggerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

// Close stops further enqueues and wakes waiters.
func (q *triggerQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
