// ============================================================================
// BoundedQueue — fixed-capacity FIFO with timed enqueue/dequeue
// ============================================================================
//
// File: queue.go
// Purpose: Single reusable queue type backing both the main queue (C1,
// multi-producer/single-consumer) and every appender adapter's private
// queue (single-producer/single-consumer).
//
// Design:
//   A monitor-style FIFO: one mutex, one "space available" condition
//   variable, one "item available" condition variable. enqueue() never
//   blocks longer than the poll interval its caller passes — callers on
//   a hot path get bounded latency, never unbounded blocking. dequeue()
//   waits up to its caller-supplied timeout, returning one of three
//   outcomes (signaled/timeout/shutdown) so a consumer can combine
//   wait-for-work with a periodic check of its own termination flag.
//
// Concurrency: internally synchronized; safe for any number of
// concurrent enqueuers and any number of concurrent dequeuers, though in
// this system there is always exactly one consumer per queue.
// ============================================================================

package logpipe

import (
	"container/list"
	"sync"
	"time"
)

// DequeueOutcome classifies the result of a BoundedQueue.Dequeue call.
type DequeueOutcome int

const (
	// DequeueSignaled indicates an item was returned.
	DequeueSignaled DequeueOutcome = iota
	// DequeueTimeout indicates the wait elapsed with no item available.
	DequeueTimeout
	// DequeueShutdown indicates Shutdown was called and the queue is
	// now empty; no more items will ever arrive.
	DequeueShutdown
)

// BoundedQueue is a fixed-capacity FIFO of T. The zero value is not
// usable; construct with NewBoundedQueue.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    *list.List
	capacity int
	shutdown bool
}

// NewBoundedQueue creates a queue with the given fixed capacity.
// capacity must be positive.
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	q := &BoundedQueue[T]{
		items:    list.New(),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends item to the tail of the queue. If the queue is full,
// it waits up to pollInterval for space to free up; if it is still full
// (or the queue has been shut down) it returns false ("rejected")
// without blocking further. Returns true ("accepted") on success.
func (q *BoundedQueue[T]) Enqueue(item T, pollInterval time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		return false
	}

	if q.items.Len() >= q.capacity {
		q.waitWithTimeout(q.notFull, pollInterval)
		if q.shutdown || q.items.Len() >= q.capacity {
			return false
		}
	}

	q.items.PushBack(item)
	q.notEmpty.Signal()
	return true
}

// Dequeue waits up to timeout for an item at the head of the queue. It
// returns DequeueSignaled with the item, DequeueTimeout if the wait
// elapsed with nothing available, or DequeueShutdown once Shutdown has
// been called and the queue has drained.
func (q *BoundedQueue[T]) Dequeue(timeout time.Duration) (T, DequeueOutcome) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T

	if q.items.Len() == 0 {
		if q.shutdown {
			return zero, DequeueShutdown
		}
		q.waitWithTimeout(q.notEmpty, timeout)
	}

	if q.items.Len() == 0 {
		if q.shutdown {
			return zero, DequeueShutdown
		}
		return zero, DequeueTimeout
	}

	front := q.items.Front()
	q.items.Remove(front)
	q.notFull.Signal()
	return front.Value.(T), DequeueSignaled
}

// Shutdown wakes all waiters and causes future Enqueue calls to return
// false immediately. It is idempotent. Items already queued remain
// available to Dequeue until drained, at which point Dequeue begins
// returning DequeueShutdown.
func (q *BoundedQueue[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return
	}
	q.shutdown = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// dropFront removes the head item without waiting, if any is present.
// Used by the Dispatcher's DiscardOlder overflow action, which must
// never block the single dispatcher goroutine.
func (q *BoundedQueue[T]) dropFront() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if front := q.items.Front(); front != nil {
		q.items.Remove(front)
		q.notFull.Signal()
	}
}

// isShutdown reports whether Shutdown has been called. Used by workers
// deciding whether a failed operation should lead to teardown instead
// of a restart attempt.
func (q *BoundedQueue[T]) isShutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shutdown
}

// Size returns the current number of queued items.
func (q *BoundedQueue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// waitWithTimeout blocks on cond for at most d, re-acquiring q.mu before
// returning (sync.Cond.Wait's usual contract). Must be called with q.mu
// held. The caller always re-checks its condition after this returns,
// since the wake may be a real signal, a timeout, or a Shutdown
// broadcast.
func (q *BoundedQueue[T]) waitWithTimeout(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		// Force the waiter out of Wait() by broadcasting; it re-checks
		// its condition after Wait returns either way.
		q.mu.Lock()
		cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	cond.Wait()
}
