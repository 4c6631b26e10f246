package workloads

import (
	"context"
	"fmt"
	"time"

	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/executor"
)

// Alarm prints a wake-up call and then a reminder every period until ticks
// reminders have been printed. It returns the number of reminders.
func (r *Runner) Alarm(ctx context.Context, period time.Duration, ticks int) (int, error) {
	if ticks < 1 {
		return 0, taskerrors.NewInputValidationError("alarm", fmt.Sprintf("Ticks must be at least 1, got %d", ticks))
	}
	if period <= 0 {
		return 0, taskerrors.NewInputValidationError("alarm", fmt.Sprintf("Period must be positive, got %s", period))
	}

	r.println("It's time to get up!")
	p, err := r.Exec.ScheduleAtFixedRate(period, period, func(_ context.Context, run int) bool {
		overslept := (time.Duration(run) * period).Seconds()
		r.println(fmt.Sprintf("You overslept by %g seconds, it's time to get up!", overslept))
		return run < ticks
	})
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Scheduling alarm")
	}

	select {
	case <-p.Done():
		return p.Runs(), taskerrors.FromExecutor(p.Err(), "Running alarm")
	case <-ctx.Done():
		p.Stop()
		<-p.Done()
		return p.Runs(), ctx.Err()
	}
}

// InterruptCounter starts a task that counts until it is interrupted, lets it
// run for runFor and then interrupts it. It returns the count reached.
func (r *Runner) InterruptCounter(ctx context.Context, runFor time.Duration) (int64, error) {
	started := make(chan struct{})
	h, err := r.Exec.Submit(func(ctx context.Context) (any, error) {
		close(started)
		var counter int64
		for {
			counter++
			select {
			case <-ctx.Done():
				return counter, nil
			default:
			}
		}
	})
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Starting counter")
	}

	select {
	case <-started:
	case <-ctx.Done():
		if !h.Cancel() {
			h.Interrupt()
		}
		return 0, ctx.Err()
	}

	timer := time.NewTimer(runFor)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	h.Interrupt()

	waitCtx, cancel := r.waitContext(context.Background())
	defer cancel()
	v, err := h.Get(waitCtx)
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Stopping counter")
	}
	r.println("It was interrupted")
	return v.(int64), nil
}

// RaceEntry is a value that becomes available after Delay.
type RaceEntry struct {
	Value int
	Delay time.Duration
}

// Race runs every entry on the pool and returns the value that arrives
// first. The losers are cancelled or interrupted.
func (r *Runner) Race(ctx context.Context, entries []RaceEntry) (int, error) {
	if len(entries) == 0 {
		return 0, taskerrors.NewInputValidationError("race", "At least one entry is required")
	}

	tasks := make([]executor.Task, len(entries))
	for i, entry := range entries {
		tasks[i] = func(ctx context.Context) (any, error) {
			timer := time.NewTimer(entry.Delay)
			defer timer.Stop()
			select {
			case <-timer.C:
				return entry.Value, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	waitCtx, cancel := r.waitContext(ctx)
	defer cancel()
	v, err := r.Exec.InvokeAny(waitCtx, r.tasks(tasks))
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Running race")
	}
	return v.(int), nil
}
