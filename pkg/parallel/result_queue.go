package parallel

import "sync"

// ResultQueue carries finished background results to the goroutine that
// owns the UI state. Push never blocks; Drain takes everything queued so far.
type ResultQueue[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewResultQueue creates an empty queue.
func NewResultQueue[T any]() *ResultQueue[T] {
	return &ResultQueue[T]{}
}

// Push appends an item.
func (q *ResultQueue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// Drain removes and returns every queued item in push order, or nil if the
// queue is empty.
func (q *ResultQueue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items.
func (q *ResultQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
