package executor

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// QueueMetrics tracks metrics for the work queue
type QueueMetrics struct {
	enqueued atomic.Int64
	dequeued atomic.Int64
	dropped  atomic.Int64
	removed  atomic.Int64
	size     atomic.Int64
}

// QueueSnapshot is a point-in-time copy of QueueMetrics.
type QueueSnapshot struct {
	Enqueued int64
	Dequeued int64
	Dropped  int64
	Removed  int64
	Size     int64
}

// Snapshot returns a copy of the current counters
func (m *QueueMetrics) Snapshot() QueueSnapshot {
	return QueueSnapshot{
		Enqueued: m.enqueued.Load(),
		Dequeued: m.dequeued.Load(),
		Dropped:  m.dropped.Load(),
		Removed:  m.removed.Load(),
		Size:     m.size.Load(),
	}
}

// WorkQueue is the FIFO backlog of pending handles.
//
// A bounded queue hands out one slot per accepted handle. The slot is held
// while the handle waits and while it runs. Remove and Drain return it; a
// handle handed to a worker keeps it until the worker calls Release.
type WorkQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   *list.List
	closed  bool
	closeCh chan struct{}

	slots   chan struct{} // nil when unbounded
	policy  FullPolicy
	metrics *QueueMetrics
	log     *logrus.Entry
}

// NewWorkQueue creates a queue holding at most capacity pending handles.
// A capacity of 0 makes the queue unbounded.
func NewWorkQueue(capacity int, policy FullPolicy, log *logrus.Entry) *WorkQueue {
	q := &WorkQueue{
		items:   list.New(),
		closeCh: make(chan struct{}),
		policy:  policy,
		metrics: &QueueMetrics{},
		log:     log,
	}
	q.cond = sync.NewCond(&q.mu)
	if capacity > 0 {
		q.slots = make(chan struct{}, capacity)
	}
	return q
}

// Enqueue appends h to the back of the queue.
func (q *WorkQueue) Enqueue(ctx context.Context, h *Handle) error {
	if err := q.acquireSlot(ctx); err != nil {
		q.metrics.dropped.Add(1)
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.Release()
		q.metrics.dropped.Add(1)
		return ErrShutdown
	}
	h.elem = q.items.PushBack(h)
	q.metrics.enqueued.Add(1)
	q.metrics.size.Add(1)
	q.mu.Unlock()
	q.cond.Signal()

	q.log.WithField("taskID", h.ID()).Debug("Task enqueued")
	return nil
}

func (q *WorkQueue) acquireSlot(ctx context.Context) error {
	if q.slots == nil {
		if q.IsClosed() {
			return ErrShutdown
		}
		return nil
	}
	if q.IsClosed() {
		return ErrShutdown
	}

	if q.policy == FailFast {
		select {
		case q.slots <- struct{}{}:
			return nil
		default:
			return ErrQueueFull
		}
	}

	select {
	case q.slots <- struct{}{}:
		return nil
	case <-q.closeCh:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the slot of a handle obtained from Dequeue. Call it once
// the handle is terminal.
func (q *WorkQueue) Release() {
	if q.slots != nil {
		<-q.slots
	}
}

// Dequeue removes and returns the oldest pending handle, blocking while the
// queue is empty. It returns false once the queue is closed and drained.
// The handle keeps its slot; see Release.
func (q *WorkQueue) Dequeue() (*Handle, bool) {
	q.mu.Lock()
	for q.items.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	front := q.items.Front()
	if front == nil {
		q.mu.Unlock()
		return nil, false
	}
	q.items.Remove(front)
	h := front.Value.(*Handle)
	h.elem = nil
	q.metrics.dequeued.Add(1)
	q.metrics.size.Add(-1)
	q.mu.Unlock()

	q.log.WithField("taskID", h.ID()).Debug("Task dequeued")
	return h, true
}

// Remove takes h out of the queue if it is still waiting there.
func (q *WorkQueue) Remove(h *Handle) bool {
	q.mu.Lock()
	if h.elem == nil {
		q.mu.Unlock()
		return false
	}
	q.items.Remove(h.elem)
	h.elem = nil
	q.metrics.removed.Add(1)
	q.metrics.size.Add(-1)
	q.mu.Unlock()

	q.Release()
	return true
}

// Drain removes every pending handle and returns them in FIFO order.
func (q *WorkQueue) Drain() []*Handle {
	q.mu.Lock()
	handles := make([]*Handle, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = q.items.Front() {
		q.items.Remove(e)
		h := e.Value.(*Handle)
		h.elem = nil
		handles = append(handles, h)
	}
	q.metrics.removed.Add(int64(len(handles)))
	q.metrics.size.Add(-int64(len(handles)))
	q.mu.Unlock()

	for range handles {
		q.Release()
	}
	return handles
}

// Close stops accepting handles and wakes every blocked Dequeue. Pending
// handles stay queued so workers can drain them. Idempotent.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.closeCh)
	q.mu.Unlock()

	q.cond.Broadcast()
	q.log.Debug("Work queue closed")
}

// Closed returns a channel that is closed by Close.
func (q *WorkQueue) Closed() <-chan struct{} {
	return q.closeCh
}

// IsClosed returns true if the queue is closed
func (q *WorkQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of pending handles.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Metrics returns a copy of the current queue metrics
func (q *WorkQueue) Metrics() QueueSnapshot {
	return q.metrics.Snapshot()
}
