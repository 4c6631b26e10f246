package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogType tags an entry with the stream it is routed to.
type LogType string

const (
	UserLog LogType = "user"
	OpLog   LogType = "op"
)

var (
	base     *logrus.Logger
	baseOnce sync.Once
)

// shared returns the logrus logger behind both User and Op. Until Setup runs
// it prints bare messages to stdout.
func shared() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stdout)
		base.SetLevel(logrus.InfoLevel)
		base.SetFormatter(&CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
		})
	})
	return base
}
