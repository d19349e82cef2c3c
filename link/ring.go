// Package link moves framed messages between the two halves: bounded
// transmit and receive queues over an interrupt-driven transport.
package link

import "errors"

var (
	ErrQueueFull       = errors.New("link: queue full")
	ErrTransferOngoing = errors.New("link: transfer ongoing")
)

// Ring is a bounded FIFO with a capacity fixed at construction
type Ring[T any] struct {
	items []T
	head  int
	n     int
}

// NewRing creates a ring holding up to capacity items
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("link: ring capacity must be positive")
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, overwriting the oldest item when full.
// It reports whether an item was overwritten.
func (r *Ring[T]) Push(v T) bool {
	if r.n == len(r.items) {
		r.items[r.head] = v
		r.head = (r.head + 1) % len(r.items)
		return true
	}
	r.items[(r.head+r.n)%len(r.items)] = v
	r.n++
	return false
}

// TryPush appends v or returns ErrQueueFull
func (r *Ring[T]) TryPush(v T) error {
	if r.n == len(r.items) {
		return ErrQueueFull
	}
	r.Push(v)
	return nil
}

// Peek returns the oldest item without removing it
func (r *Ring[T]) Peek() (T, bool) {
	if r.n == 0 {
		var zero T
		return zero, false
	}
	return r.items[r.head], true
}

// Pop removes and returns the oldest item
func (r *Ring[T]) Pop() (T, bool) {
	v, ok := r.Peek()
	if ok {
		r.Skip()
	}
	return v, ok
}

// Skip drops the oldest item, if any
func (r *Ring[T]) Skip() {
	if r.n == 0 {
		return
	}
	var zero T
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.n--
}

func (r *Ring[T]) Len() int      { return r.n }
func (r *Ring[T]) Cap() int      { return len(r.items) }
func (r *Ring[T]) IsEmpty() bool { return r.n == 0 }
func (r *Ring[T]) IsFull() bool  { return r.n == len(r.items) }

// Clear drops all items
func (r *Ring[T]) Clear() {
	for r.n > 0 {
		r.Skip()
	}
	r.head = 0
}
