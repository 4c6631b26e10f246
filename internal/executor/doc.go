// Package executor provides a fixed-size worker pool with future-style
// handles.
//
// Tasks start in submission order on at most Config.PoolSize goroutines.
// Each Submit returns a *Handle that can be waited on, polled or cancelled
// while still pending:
//
//	exec, err := executor.New(executor.Config{PoolSize: 2})
//	if err != nil {
//	    return err
//	}
//	defer exec.Shutdown()
//
//	h, _ := exec.Submit(func(ctx context.Context) (any, error) {
//	    return 42, nil
//	})
//	v, err := h.Get(ctx)
//
// Shutdown lets queued work drain; ShutdownNow cancels it. Cancellation of
// running work is cooperative: tasks observe ctx.Done() after Interrupt.
package executor
