package device

import "sync"

// Queue is a FIFO guarded by a mutex. Emulated devices use it to hold
// responses produced by a control transfer until an interrupt poll drains
// them, and to park polls that arrive before any response exists.
type Queue[T any] struct {
	mutex sync.Mutex
	items []T
}

// Push appends v to the back of the queue.
func (q *Queue[T]) Push(v T) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.items = append(q.items, v)
}

// Pop removes and returns the front of the queue.
// Returns false if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, true
}

// Front returns the front of the queue without removing it.
// Returns false if the queue is empty.
func (q *Queue[T]) Front() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Back returns the most recently pushed element without removing it.
// Returns false if the queue is empty.
func (q *Queue[T]) Back() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[len(q.items)-1], true
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}

// Empty returns true if the queue holds no elements.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Clear removes every element.
func (q *Queue[T]) Clear() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.items = nil
}
