package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInitialization(t *testing.T) {
	assert.NotNil(t, User, "User logger should not be nil after init")
	assert.NotNil(t, Op, "Op logger should not be nil after init")
}

func TestSharedLogger(t *testing.T) {
	l := shared()
	require.NotNil(t, l)
	assert.Same(t, l, shared(), "User and Op must share one logrus logger")
}

func TestLoggerSetup(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		jsonLogs bool
		quiet    bool
		level    logrus.Level
	}{
		{"Default", false, false, false, logrus.InfoLevel},
		{"Verbose", true, false, false, logrus.DebugLevel},
		{"Quiet", false, false, true, logrus.ErrorLevel},
		{"JSON", false, true, false, logrus.InfoLevel},
		{"Verbose JSON", true, true, false, logrus.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var userOut, opOut bytes.Buffer
			SetupWithWriters(tt.verbose, tt.jsonLogs, tt.quiet, &userOut, &opOut)

			require.NotNil(t, User)
			require.NotNil(t, Op)
			assert.Equal(t, tt.level, shared().GetLevel())
		})
	}
}

func TestSetup_EnvOverridesFlags(t *testing.T) {
	t.Setenv("TASKPOOL_LOG_MODE", "quiet")

	var userOut, opOut bytes.Buffer
	SetupWithWriters(true, false, false, &userOut, &opOut)
	assert.Equal(t, logrus.ErrorLevel, shared().GetLevel())

	User.Infof("hidden %d", 1)
	assert.Empty(t, userOut.String())
}

func TestSetup_RoutesByLogType(t *testing.T) {
	var userOut, opOut bytes.Buffer
	SetupWithWriters(false, false, false, &userOut, &opOut)

	User.Successf("all %s done", "tasks")
	Op.WithFields(map[string]interface{}{"task_id": 7}).Info("task finished")

	assert.Equal(t, "✅ all tasks done\n", userOut.String())
	assert.Contains(t, opOut.String(), "INFO: task finished task_id=7")
	assert.NotContains(t, opOut.String(), "all tasks done")
}

func TestSetup_JSON(t *testing.T) {
	var userOut, opOut bytes.Buffer
	SetupWithWriters(false, true, false, &userOut, &opOut)

	Op.WithFields(map[string]interface{}{"worker": 2}).Warn("slow task")
	assert.Contains(t, opOut.String(), `"worker":2`)
	assert.Contains(t, opOut.String(), `"msg":"slow task"`)
}

func TestUserLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	testLogger := logrus.New()
	testLogger.SetOutput(&buf)
	testLogger.SetLevel(logrus.InfoLevel)

	userLogger := &UserLogger{logger: testLogger}

	userLogger.Infof("test %s", "message")
	assert.Contains(t, buf.String(), "test message")

	buf.Reset()
	userLogger.Cancel("cancelled 2 queued tasks")
	assert.Contains(t, buf.String(), "emoji=🛑")

	buf.Reset()
	userLogger.Startingf("starting %d workers", 4)
	assert.Contains(t, buf.String(), "starting 4 workers")
	assert.Contains(t, buf.String(), "emoji=")
}

func TestOpLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	testLogger := logrus.New()
	testLogger.SetOutput(&buf)
	testLogger.SetLevel(logrus.DebugLevel)

	opLogger := &OpLogger{logger: testLogger}

	opLogger.Debugf("operational %s", "message")
	assert.Contains(t, buf.String(), "operational message")

	buf.Reset()
	fields := map[string]interface{}{"executor": "primes", "pool_size": 2}
	opLogger.WithFields(fields).Info("executor started")
	assert.Contains(t, buf.String(), "executor started")
	assert.Contains(t, buf.String(), "pool_size=2")
	assert.NotContains(t, fields, "log_type", "caller map must not be mutated")
}

func TestCLIFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Message: "queue full",
		Level:   logrus.WarnLevel,
		Data: logrus.Fields{
			"log_type": "op",
			"capacity": 2,
			"policy":   "fail-fast",
		},
	}

	t.Run("Message only", func(t *testing.T) {
		f := &CLIFormatter{DisableTimestamp: true, DisableLevel: true}
		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.Equal(t, "queue full\n", string(out))
	})

	t.Run("Level and sorted fields", func(t *testing.T) {
		f := &CLIFormatter{DisableTimestamp: true, DisableColors: true}
		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.Equal(t, "WARNING: queue full capacity=2 policy=fail-fast\n", string(out))
	})

	t.Run("Colors", func(t *testing.T) {
		f := &CLIFormatter{DisableTimestamp: true}
		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(out), "\033[33mWARNING"))
	})
}

func TestLogTypeRouting(t *testing.T) {
	SetupWithWriters(true, false, false, io.Discard, io.Discard)

	captureHook := &testHook{}
	shared().AddHook(captureHook)

	User.Shutdown("user message")
	require.NotEmpty(t, captureHook.entries)
	last := captureHook.entries[len(captureHook.entries)-1]
	assert.Equal(t, string(UserLog), last.Data["log_type"])

	Op.Debug("op message")
	last = captureHook.entries[len(captureHook.entries)-1]
	assert.Equal(t, string(OpLog), last.Data["log_type"])
}

// testHook is a simple hook for capturing log entries in tests
type testHook struct {
	entries []*logrus.Entry
}

func (h *testHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *testHook) Fire(entry *logrus.Entry) error {
	h.entries = append(h.entries, entry)
	return nil
}
