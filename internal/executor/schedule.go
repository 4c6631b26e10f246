package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type delayedTask struct {
	handle *Handle
	timer  *time.Timer
}

// Schedule returns a handle for task that joins the queue after delay. The
// handle stays Pending, and cancellable, until then. If the executor shuts
// down or rejects the task when the delay expires, the handle is cancelled.
func (e *Executor) Schedule(delay time.Duration, task Task) (*Handle, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if delay <= 0 {
		return e.Submit(task)
	}

	h := newHandle(e.nextID.Add(1), task, e)

	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		h.release()
		e.reject(ErrShutdown)
		return nil, ErrShutdown
	}
	e.delayed[h.id] = &delayedTask{
		handle: h,
		timer:  time.AfterFunc(delay, func() { e.enqueueDelayed(h) }),
	}
	e.mu.Unlock()

	// Counted on acceptance so a cancel during the delay never finishes more
	// tasks than were submitted.
	e.submitted.Add(1)
	e.observer.TaskSubmitted()

	e.log.WithFields(logrus.Fields{
		"taskID": h.id,
		"delay":  delay.String(),
	}).Debug("Task scheduled")
	return h, nil
}

func (e *Executor) enqueueDelayed(h *Handle) {
	e.mu.Lock()
	_, scheduled := e.delayed[h.id]
	delete(e.delayed, h.id)
	e.mu.Unlock()

	if !scheduled || h.State() != Pending {
		return
	}
	if err := e.queue.Enqueue(context.Background(), h); err != nil {
		e.log.WithFields(logrus.Fields{
			"taskID": h.id,
			"reason": err.Error(),
		}).Debug("Delayed task could not be queued")
		h.Cancel()
	}
}

func (e *Executor) cancelDelayed(handles []*Handle) {
	for _, h := range handles {
		h.Cancel()
	}
}

// Periodic controls a task scheduled with ScheduleAtFixedRate.
type Periodic struct {
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	runs     atomic.Int64

	mu  sync.Mutex
	err error
}

// Stop prevents further runs. A run already in progress finishes.
func (p *Periodic) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Done is closed once no further runs will happen.
func (p *Periodic) Done() <-chan struct{} {
	return p.done
}

// Runs returns the number of finished runs.
func (p *Periodic) Runs() int {
	return int(p.runs.Load())
}

// Err returns the error that ended the schedule, if any.
func (p *Periodic) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Periodic) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// ScheduleAtFixedRate runs fn on the pool after initialDelay and then once
// per period, numbering runs from 1. A run that overruns the period delays
// the next one; runs never overlap. The schedule ends when fn returns false,
// Stop is called, a run fails, or the executor shuts down.
func (e *Executor) ScheduleAtFixedRate(initialDelay, period time.Duration, fn func(ctx context.Context, run int) bool) (*Periodic, error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %v", period)
	}
	if e.IsShutdown() {
		return nil, ErrShutdown
	}

	p := &Periodic{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go e.runPeriodic(p, initialDelay, period, fn)
	return p, nil
}

func (e *Executor) runPeriodic(p *Periodic, initialDelay, period time.Duration, fn func(ctx context.Context, run int) bool) {
	defer close(p.done)

	if initialDelay > 0 {
		timer := time.NewTimer(initialDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-p.stop:
			return
		case <-e.queue.Closed():
			return
		}
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for run := 1; ; run++ {
		h, err := e.Submit(func(ctx context.Context) (any, error) {
			return fn(ctx, run), nil
		})
		if err != nil {
			if !errors.Is(err, ErrShutdown) {
				p.fail(err)
			}
			return
		}

		again, err := h.Get(context.Background())
		if err != nil {
			if !errors.Is(err, ErrCancelled) {
				p.fail(err)
			}
			return
		}
		p.runs.Add(1)
		if cont, _ := again.(bool); !cont {
			return
		}

		select {
		case <-ticker.C:
		case <-p.stop:
			return
		case <-e.queue.Closed():
			return
		}
	}
}
