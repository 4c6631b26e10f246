package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is a unit of work producing one result or one error. The context is
// cancelled when the task is interrupted; checking it is up to the task.
type Task func(ctx context.Context) (any, error)

// Stats is a snapshot of executor counters.
type Stats struct {
	PoolSize    int
	Submitted   int64
	Rejected    int64
	Completed   int64
	Failed      int64
	Cancelled   int64
	Queued      int
	Running     int64
	PeakRunning int64
}

// Finished returns the number of handles that reached a terminal state.
func (s Stats) Finished() int64 {
	return s.Completed + s.Failed + s.Cancelled
}

// Executor runs submitted tasks on a fixed pool of worker goroutines,
// starting them in submission order.
type Executor struct {
	name     string
	cfg      Config
	queue    *WorkQueue
	log      *logrus.Entry
	observer Observer

	wg         sync.WaitGroup
	terminated chan struct{}

	mu       sync.Mutex
	shutdown bool
	running  map[uint64]*Handle
	delayed  map[uint64]*delayedTask

	nextID    atomic.Uint64
	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	active    atomic.Int64
	peak      atomic.Int64
}

// New validates cfg and starts cfg.PoolSize workers.
func New(cfg Config, opts ...Option) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		name:       "default",
		cfg:        cfg,
		observer:   nopObserver{},
		terminated: make(chan struct{}),
		running:    make(map[uint64]*Handle),
		delayed:    make(map[uint64]*delayedTask),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = defaultLogEntry(e.name)
	}
	e.queue = NewWorkQueue(cfg.QueueCapacity, cfg.FullPolicy, e.log)

	for i := 0; i < cfg.PoolSize; i++ {
		e.wg.Add(1)
		go e.worker(i + 1)
	}
	go func() {
		e.wg.Wait()
		close(e.terminated)
		e.log.Debug("All workers stopped")
	}()

	e.log.WithFields(logrus.Fields{
		"poolSize":      cfg.PoolSize,
		"queueCapacity": cfg.QueueCapacity,
		"policy":        cfg.FullPolicy.String(),
	}).Info("Executor started")

	return e, nil
}

// MustNew is New that panics on an invalid config.
func MustNew(cfg Config, opts ...Option) *Executor {
	e, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns the configuration the executor was built with.
func (e *Executor) Config() Config {
	return e.cfg
}

// Name returns the executor label.
func (e *Executor) Name() string {
	return e.name
}

func (e *Executor) worker(id int) {
	defer e.wg.Done()
	log := e.log.WithField("workerID", id)
	log.Debug("Worker started")
	defer log.Debug("Worker stopped")

	for {
		h, ok := e.queue.Dequeue()
		if !ok {
			return
		}
		if !h.claim() {
			// Cancelled between dequeue and claim.
			e.queue.Release()
			continue
		}
		e.run(log, h)
	}
}

func (e *Executor) run(log *logrus.Entry, h *Handle) {
	n := e.active.Add(1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	e.mu.Lock()
	e.running[h.id] = h
	e.mu.Unlock()

	started := h.StartedAt()
	e.observer.TaskStarted(started.Sub(h.submittedAt))

	result, err := e.invoke(h)

	e.mu.Lock()
	delete(e.running, h.id)
	e.mu.Unlock()
	e.active.Add(-1)

	state := Completed
	if err != nil {
		state = Failed
		e.failed.Add(1)
		log.WithFields(logrus.Fields{
			"taskID": h.id,
			"error":  err.Error(),
		}).Debug("Task failed")
	} else {
		e.completed.Add(1)
	}
	e.observer.TaskFinished(state, time.Since(started))

	// Free the slot before waking waiters so a caller that saw the result can
	// submit again straight away.
	e.queue.Release()
	h.finish(result, err)
}

// invoke runs the task body, turning a panic into a *PanicError.
func (e *Executor) invoke(h *Handle) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
			e.log.WithFields(logrus.Fields{
				"taskID": h.id,
				"panic":  fmt.Sprint(r),
			}).Warn("Task panicked")
		}
	}()
	return h.task(h.ctx)
}

// Submit enqueues task and returns its handle without waiting for it to run.
// A bounded queue that is full either blocks or returns ErrQueueFull,
// depending on the configured FullPolicy.
func (e *Executor) Submit(task Task) (*Handle, error) {
	return e.SubmitContext(context.Background(), task)
}

// SubmitContext is Submit where ctx bounds how long a blocking submission
// may wait for a queue slot. ctx is not passed to the task.
func (e *Executor) SubmitContext(ctx context.Context, task Task) (*Handle, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if e.IsShutdown() {
		e.reject(ErrShutdown)
		return nil, ErrShutdown
	}

	h := newHandle(e.nextID.Add(1), task, e)
	if err := e.queue.Enqueue(ctx, h); err != nil {
		h.release()
		e.reject(err)
		return nil, err
	}

	e.submitted.Add(1)
	e.observer.TaskSubmitted()
	return h, nil
}

// SubmitAll submits tasks in order. On the first rejection it returns the
// handles accepted so far together with the error.
func (e *Executor) SubmitAll(tasks []Task) ([]*Handle, error) {
	handles := make([]*Handle, 0, len(tasks))
	for i, task := range tasks {
		h, err := e.Submit(task)
		if err != nil {
			return handles, fmt.Errorf("submitting task %d of %d: %w", i+1, len(tasks), err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (e *Executor) reject(err error) {
	e.rejected.Add(1)
	e.observer.TaskRejected(err)
	e.log.WithField("reason", err.Error()).Debug("Task rejected")
}

// handleCancelled implements handleOwner
func (e *Executor) handleCancelled(h *Handle) {
	e.queue.Remove(h)

	e.mu.Lock()
	if d, ok := e.delayed[h.id]; ok {
		d.timer.Stop()
		delete(e.delayed, h.id)
	}
	e.mu.Unlock()

	e.cancelled.Add(1)
	e.observer.TaskCancelled()
	e.log.WithField("taskID", h.id).Debug("Task cancelled")
}

// Shutdown stops accepting new tasks. Queued and running tasks still run to
// completion; delayed tasks that have not reached the queue are cancelled.
// Calling Shutdown more than once has no further effect.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return
	}
	e.shutdown = true
	delayed := make([]*Handle, 0, len(e.delayed))
	for _, d := range e.delayed {
		delayed = append(delayed, d.handle)
	}
	e.mu.Unlock()

	e.queue.Close()
	e.cancelDelayed(delayed)

	e.log.WithFields(logrus.Fields{
		"queued":  e.queue.Len(),
		"running": e.active.Load(),
	}).Info("Executor shutting down")
}

// ShutdownNow shuts down, cancels every pending task and interrupts the
// running ones. It returns the handles it cancelled in submission order.
func (e *Executor) ShutdownNow() []*Handle {
	e.Shutdown()

	var cancelled []*Handle
	for _, h := range e.queue.Drain() {
		if h.Cancel() {
			cancelled = append(cancelled, h)
		}
	}

	e.mu.Lock()
	running := make([]*Handle, 0, len(e.running))
	for _, h := range e.running {
		running = append(running, h)
	}
	e.mu.Unlock()

	for _, h := range running {
		h.Interrupt()
	}

	e.log.WithFields(logrus.Fields{
		"cancelled":   len(cancelled),
		"interrupted": len(running),
	}).Info("Executor stopped immediately")
	return cancelled
}

// AwaitTermination waits up to timeout for every worker to exit after
// Shutdown. It reports whether termination completed in time.
func (e *Executor) AwaitTermination(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return e.AwaitTerminationContext(ctx)
}

// AwaitTerminationContext is AwaitTermination bounded by ctx.
func (e *Executor) AwaitTerminationContext(ctx context.Context) bool {
	select {
	case <-e.terminated:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsShutdown reports whether Shutdown has been called.
func (e *Executor) IsShutdown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown
}

// IsTerminated reports whether all workers have exited.
func (e *Executor) IsTerminated() bool {
	select {
	case <-e.terminated:
		return true
	default:
		return false
	}
}

// Stats returns a snapshot of the executor counters.
func (e *Executor) Stats() Stats {
	return Stats{
		PoolSize:    e.cfg.PoolSize,
		Submitted:   e.submitted.Load(),
		Rejected:    e.rejected.Load(),
		Completed:   e.completed.Load(),
		Failed:      e.failed.Load(),
		Cancelled:   e.cancelled.Load(),
		Queued:      e.queue.Len(),
		Running:     e.active.Load(),
		PeakRunning: e.peak.Load(),
	}
}

// QueueMetrics returns the work queue counters.
func (e *Executor) QueueMetrics() QueueSnapshot {
	return e.queue.Metrics()
}
