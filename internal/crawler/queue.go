package crawler

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of artifact URLs that tracks how many items
// were put but not yet marked done. Emptiness is not completion: a worker
// holding an item may still put more.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []string
	pending int
	closed  bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends an item and counts it as pending. It returns false once the
// queue is closed.
func (q *Queue) Put(item string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.pending++
	q.cond.Broadcast()
	return true
}

// Get blocks until an item is available or the queue is closed. The second
// result is false after Close. Every item obtained must be followed by Done.
func (q *Queue) Get() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return "", false
	}

	item := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return item, true
}

// Done marks one obtained item as finished
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending > 0 {
		q.pending--
	}
	if q.pending == 0 {
		q.cond.Broadcast()
	}
}

// Drain blocks until the pending count reaches zero or ctx is done
func (q *Queue) Drain(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.cond.Wait()
	}
	return nil
}

// Close wakes every blocked Get and rejects further Puts
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Pending returns the number of items put but not yet done
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Len returns the number of items waiting to be obtained
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
