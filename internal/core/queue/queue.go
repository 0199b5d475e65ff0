// Package queue provides the unbounded FIFO that connects the Actor, its
// workers and the host. Producers may be many; the pathfinding pool is the one
// place where several receivers share a queue.
package queue

import (
	"context"
	"sync"

	"github.com/zeusync/hexkernel/internal/core/errs"
)

// Unbounded is a FIFO that never blocks senders. Memory grows without limit
// when the consumer stalls.
type Unbounded[T any] struct {
	mx     sync.Mutex
	items  []T
	head   int
	closed bool
	notify chan struct{}
}

func New[T any]() *Unbounded[T] {
	return &Unbounded[T]{
		notify: make(chan struct{}, 1),
	}
}

// Send appends v. It fails only after Close.
func (q *Unbounded[T]) Send(v T) error {
	q.mx.Lock()
	if q.closed {
		q.mx.Unlock()
		return errs.ErrChannelClosed
	}
	q.items = append(q.items, v)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	q.mx.Unlock()
	return nil
}

// TryRecv pops the oldest item without blocking.
func (q *Unbounded[T]) TryRecv() (T, bool) {
	q.mx.Lock()
	defer q.mx.Unlock()
	return q.popLocked()
}

// Recv blocks until an item is available. It returns ErrChannelClosed once the
// queue is closed and drained, or the context error when ctx ends first.
func (q *Unbounded[T]) Recv(ctx context.Context) (T, error) {
	for {
		q.mx.Lock()
		v, ok := q.popLocked()
		closed := q.closed
		if ok && !closed && q.head < len(q.items) {
			// pass the wakeup on to another receiver sharing this queue
			select {
			case q.notify <- struct{}{}:
			default:
			}
		}
		q.mx.Unlock()

		if ok {
			return v, nil
		}
		var zero T
		if closed {
			return zero, errs.ErrChannelClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Drain pops every queued item in FIFO order.
func (q *Unbounded[T]) Drain() []T {
	q.mx.Lock()
	defer q.mx.Unlock()
	out := make([]T, len(q.items)-q.head)
	copy(out, q.items[q.head:])
	q.items = q.items[:0]
	q.head = 0
	return out
}

func (q *Unbounded[T]) Len() int {
	q.mx.Lock()
	defer q.mx.Unlock()
	return len(q.items) - q.head
}

// Close rejects further sends and wakes a blocked receiver. Items already
// queued can still be received.
func (q *Unbounded[T]) Close() {
	q.mx.Lock()
	if q.closed {
		q.mx.Unlock()
		return
	}
	q.closed = true
	close(q.notify)
	q.mx.Unlock()
}

func (q *Unbounded[T]) Closed() bool {
	q.mx.Lock()
	defer q.mx.Unlock()
	return q.closed
}

func (q *Unbounded[T]) popLocked() (T, bool) {
	var zero T
	if q.head >= len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v, true
}

// Serve runs a worker loop: every item received from in is handed to handle
// and its result is sent to out. It returns nil when ctx ends and
// errs.ErrChannelClosed when either queue is closed.
func Serve[W, R any](ctx context.Context, in *Unbounded[W], out *Unbounded[R], handle func(context.Context, W) R) error {
	for {
		w, err := in.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err = out.Send(handle(ctx, w)); err != nil {
			return err
		}
	}
}
