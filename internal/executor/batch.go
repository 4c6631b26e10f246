package executor

import (
	"context"
	"fmt"
)

// InvokeAll submits tasks in order and waits until every handle is terminal.
// If ctx ends first the unfinished handles are cancelled and ctx.Err() is
// returned with the handles.
func (e *Executor) InvokeAll(ctx context.Context, tasks []Task) ([]*Handle, error) {
	handles, err := e.SubmitAll(tasks)
	if err != nil {
		cancelAll(handles)
		return handles, err
	}

	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			cancelAll(handles)
			return handles, ctx.Err()
		}
	}
	return handles, nil
}

// InvokeAny submits tasks and returns the result of the first one to
// complete successfully. The remaining tasks are cancelled or interrupted.
// If every task fails, the last failure is returned.
func (e *Executor) InvokeAny(ctx context.Context, tasks []Task) (any, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}

	handles, err := e.SubmitAll(tasks)
	defer cancelAll(handles)
	if err != nil {
		return nil, err
	}

	finished := make(chan *Handle, len(handles))
	for _, h := range handles {
		go func(h *Handle) {
			select {
			case <-h.Done():
				finished <- h
			case <-ctx.Done():
			}
		}(h)
	}

	var lastErr error
	for range handles {
		select {
		case h := <-finished:
			result, err := h.Get(ctx)
			if err == nil {
				return result, nil
			}
			lastErr = err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// cancelAll cancels pending handles and interrupts running ones.
func cancelAll(handles []*Handle) {
	for _, h := range handles {
		if !h.Cancel() {
			h.Interrupt()
		}
	}
}

// Collect waits for every handle and returns the results in the order of
// handles, which is the order to reduce over when submission order matters.
// The first failure aborts the collection.
func Collect[T any](ctx context.Context, handles []*Handle) ([]T, error) {
	results := make([]T, 0, len(handles))
	for _, h := range handles {
		v, err := h.Get(ctx)
		if err != nil {
			return results, err
		}
		typed, ok := v.(T)
		if !ok {
			var zero T
			return results, fmt.Errorf("task %d returned %T, expected %T", h.ID(), v, zero)
		}
		results = append(results, typed)
	}
	return results, nil
}

// CountDone returns how many handles completed, failed or were cancelled.
func CountDone(handles []*Handle) int {
	n := 0
	for _, h := range handles {
		if h.IsDone() {
			n++
		}
	}
	return n
}
