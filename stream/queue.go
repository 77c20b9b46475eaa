package stream

import "sync"

// Queue runs posted functions one at a time, in posting order, on a single
// goroutine. Post never blocks, so producers are decoupled from the cost of
// whatever the functions do.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []func()
	closed bool
	done   chan struct{}
}

// NewQueue starts a Queue.
func NewQueue() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Post appends fn to the queue. It reports false, and drops fn, when the
// queue has been closed.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, fn)
	q.cond.Signal()
	return true
}

// Close stops accepting posts. Functions already queued still run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()
}

// Done is closed once the queue is closed and every queued function has
// returned.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		items := q.items
		q.items = nil
		q.mu.Unlock()

		for _, fn := range items {
			fn()
		}
	}
}
