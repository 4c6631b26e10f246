package executor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxkimambo/taskpool/internal/logger"
)

// Observer receives executor lifecycle events. Implementations must be safe
// for concurrent use; calls are made from submitters and workers.
type Observer interface {
	TaskSubmitted()
	TaskRejected(reason error)
	TaskStarted(queueWait time.Duration)
	TaskFinished(state State, runtime time.Duration)
	TaskCancelled()
}

type nopObserver struct{}

func (nopObserver) TaskSubmitted()                    {}
func (nopObserver) TaskRejected(error)                {}
func (nopObserver) TaskStarted(time.Duration)         {}
func (nopObserver) TaskFinished(State, time.Duration) {}
func (nopObserver) TaskCancelled()                    {}

// Option customises an Executor.
type Option func(*Executor)

// WithLogger replaces the default operational log entry.
func WithLogger(entry *logrus.Entry) Option {
	return func(e *Executor) {
		if entry != nil {
			e.log = entry
		}
	}
}

// WithObserver registers an Observer, e.g. the Prometheus collectors.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithName labels the executor in log output.
func WithName(name string) Option {
	return func(e *Executor) {
		if name != "" {
			e.name = name
		}
	}
}

func defaultLogEntry(name string) *logrus.Entry {
	return logger.Op.WithFields(map[string]interface{}{
		"component": "executor",
		"executor":  name,
	})
}
