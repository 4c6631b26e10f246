// Package workloads contains small concurrent programs built on the
// executor: prime checks, a transaction ledger, range sums, message
// broadcast, ordered mail delivery, a fixed-rate alarm, an interruptible
// counter and a first-result race.
package workloads

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxkimambo/taskpool/internal/executor"
	"github.com/maxkimambo/taskpool/internal/logger"
)

// Runner runs workloads on a shared executor.
type Runner struct {
	Exec *executor.Executor

	// Decorate wraps every submitted task, e.g. with executor.Retry.
	Decorate func(executor.Task) executor.Task

	// ResultTimeout bounds each wait for results. Zero means no limit
	// beyond the caller's context.
	ResultTimeout time.Duration

	// Out receives the lines a workload prints. Defaults to os.Stdout.
	Out io.Writer

	Log *logrus.Entry

	outMu sync.Mutex
}

// NewRunner creates a Runner printing to stdout.
func NewRunner(e *executor.Executor) *Runner {
	return &Runner{
		Exec: e,
		Out:  os.Stdout,
		Log:  logger.Op.WithFields(map[string]interface{}{"component": "workloads"}),
	}
}

func (r *Runner) task(t executor.Task) executor.Task {
	if r.Decorate != nil {
		return r.Decorate(t)
	}
	return t
}

func (r *Runner) tasks(ts []executor.Task) []executor.Task {
	for i, t := range ts {
		ts[i] = r.task(t)
	}
	return ts
}

// waitContext derives the context used while waiting for results.
func (r *Runner) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.ResultTimeout > 0 {
		return context.WithTimeout(ctx, r.ResultTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

// println writes one line; workers print concurrently.
func (r *Runner) println(line string) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	_, _ = io.WriteString(r.out(), line+"\n")
}

func (r *Runner) log() *logrus.Entry {
	if r.Log == nil {
		return logger.Op.WithFields(map[string]interface{}{"component": "workloads"})
	}
	return r.Log
}
