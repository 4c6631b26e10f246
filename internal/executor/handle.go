package executor

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle position of a submitted task.
type State int32

const (
	Pending State = iota
	Running
	Completed
	Failed
	Cancelled
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s State) IsTerminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// handleOwner is notified when a pending handle is cancelled so it can be
// taken out of the queue or the delay timers.
type handleOwner interface {
	handleCancelled(h *Handle)
}

// Handle is the caller's reference to the eventual outcome of one task.
//
// The submitter reads it; the executor writes it. Every state change goes
// through mu, so exactly one goroutine wins each transition.
type Handle struct {
	id        uint64
	task      Task
	ctx       context.Context
	interrupt context.CancelFunc
	owner     handleOwner

	mu          sync.Mutex
	state       State
	result      any
	err         error
	submittedAt time.Time
	startedAt   time.Time
	finishedAt  time.Time
	done        chan struct{}

	// elem is the handle's position in the WorkQueue, guarded by WorkQueue.mu.
	elem *list.Element
}

func newHandle(id uint64, task Task, owner handleOwner) *Handle {
	ctx, interrupt := context.WithCancel(context.Background())
	return &Handle{
		id:          id,
		task:        task,
		ctx:         ctx,
		interrupt:   interrupt,
		owner:       owner,
		state:       Pending,
		submittedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// ID returns the sequence number assigned at submission.
func (h *Handle) ID() uint64 {
	return h.id
}

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done returns a channel that is closed once the handle reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsDone reports whether the task completed, failed or was cancelled.
func (h *Handle) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// SubmittedAt returns when the handle was created.
func (h *Handle) SubmittedAt() time.Time {
	return h.submittedAt
}

// StartedAt returns when a worker claimed the task, or the zero time.
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

// FinishedAt returns when the handle became terminal, or the zero time.
func (h *Handle) FinishedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finishedAt
}

// Get blocks until the task finishes and returns its result.
//
// A failed task yields a *TaskFailedError wrapping the cause. A cancelled
// handle yields ErrCancelled without waiting. If ctx expires first Get
// returns ErrTimeout (or ctx.Err() when ctx was cancelled) and the task keeps
// running.
func (h *Handle) Get(ctx context.Context) (any, error) {
	if h.State() == Cancelled {
		return nil, ErrCancelled
	}

	select {
	case <-h.done:
		return h.outcome()
	default:
	}

	select {
	case <-h.done:
		return h.outcome()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: task %d: %w", ErrTimeout, h.id, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// GetWithTimeout is Get bounded by d.
func (h *Handle) GetWithTimeout(d time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return h.Get(ctx)
}

func (h *Handle) outcome() (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case Completed:
		return h.result, nil
	case Failed:
		return nil, &TaskFailedError{TaskID: h.id, Cause: h.err}
	case Cancelled:
		return nil, ErrCancelled
	default:
		return nil, fmt.Errorf("task %d is still %s", h.id, h.state)
	}
}

// Cancel stops a task that has not started yet. It returns false when the
// task is already running or finished; running work is never interrupted.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	if h.state != Pending {
		h.mu.Unlock()
		return false
	}
	h.state = Cancelled
	h.finishedAt = time.Now()
	close(h.done)
	h.mu.Unlock()

	h.interrupt()
	if h.owner != nil {
		h.owner.handleCancelled(h)
	}
	return true
}

// Interrupt signals the context of a running task. The task decides whether
// to stop; the handle still finishes with whatever the task returns.
func (h *Handle) Interrupt() bool {
	h.mu.Lock()
	running := h.state == Running
	h.mu.Unlock()

	if running {
		h.interrupt()
	}
	return running
}

// claim moves the handle from Pending to Running. It fails when a concurrent
// Cancel got there first.
func (h *Handle) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Pending {
		return false
	}
	h.state = Running
	h.startedAt = time.Now()
	return true
}

// finish records the task outcome on a running handle.
func (h *Handle) finish(result any, err error) {
	h.mu.Lock()
	if h.state != Running {
		h.mu.Unlock()
		return
	}
	if err != nil {
		h.state = Failed
		h.err = err
	} else {
		h.state = Completed
		h.result = result
	}
	h.finishedAt = time.Now()
	close(h.done)
	h.mu.Unlock()

	h.interrupt()
}

// release frees the handle context of a submission that was never accepted.
func (h *Handle) release() {
	h.interrupt()
}
