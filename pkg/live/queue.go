package live

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

// Backpressure selects how Send behaves when the queue is full.
type Backpressure int

const (
	// Block waits for space until the caller's context is done.
	Block Backpressure = iota
	// FailFast returns ErrQueueFull immediately.
	FailFast
)

func (b Backpressure) String() string {
	if b == FailFast {
		return "fail-fast"
	}
	return "block"
}

// sendQueue is a bounded FIFO of outbound messages. Waiters are woken via
// single-slot signal channels so that pushes and pops stay cancellable.
type sendQueue struct {
	mu       sync.Mutex
	items    *queue.Queue
	capacity int
	closed   bool

	notEmpty chan struct{}
	notFull  chan struct{}
	done     chan struct{}
}

func newSendQueue(capacity int) *sendQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &sendQueue{
		items:    queue.New(),
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (q *sendQueue) push(ctx context.Context, msg Message, policy Backpressure) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return newError(KindClosed, "send", nil)
		}
		if q.items.Length() < q.capacity {
			q.items.Add(msg)
			if q.items.Length() < q.capacity {
				signal(q.notFull)
			}
			q.mu.Unlock()
			signal(q.notEmpty)
			return nil
		}
		q.mu.Unlock()

		if policy == FailFast {
			return newError(KindQueueFull, "send", nil)
		}
		select {
		case <-q.notFull:
		case <-q.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// offer enqueues without blocking; it reports false when full or closed.
func (q *sendQueue) offer(msg Message) bool {
	q.mu.Lock()
	if q.closed || q.items.Length() >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.items.Add(msg)
	q.mu.Unlock()
	signal(q.notEmpty)
	return true
}

// pop blocks until a message is available. It returns false once the queue
// is closed and drained, or when ctx is done.
func (q *sendQueue) pop(ctx context.Context) (Message, bool) {
	for {
		q.mu.Lock()
		if q.items.Length() > 0 {
			msg := q.items.Remove().(Message)
			remaining := q.items.Length()
			q.mu.Unlock()
			signal(q.notFull)
			if remaining > 0 {
				signal(q.notEmpty)
			}
			return msg, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Message{}, false
		}

		select {
		case <-q.notEmpty:
		case <-q.done:
		case <-ctx.Done():
			return Message{}, false
		}
	}
}

// closeWith appends a final message and rejects further pushes. The final
// message bypasses the capacity limit so that Finish never blocks.
func (q *sendQueue) closeWith(final *Message) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if final != nil {
		q.items.Add(*final)
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()
	signal(q.notEmpty)
	return true
}

// drain removes and returns everything still queued.
func (q *sendQueue) drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Length() == 0 {
		return nil
	}
	out := make([]Message, 0, q.items.Length())
	for q.items.Length() > 0 {
		out = append(out, q.items.Remove().(Message))
	}
	return out
}

func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}
