package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxkimambo/taskpool/internal/config"
	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/workloads"
)

// executeRun runs `taskpool run <workload>` with quiet output and a fixed
// pool. Later args override the defaults because flags are parsed in order.
func executeRun(t *testing.T, workload string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	full := append([]string{
		"run", workload,
		"-q",
		"--progress=0",
		"--workers=2",
		"--queue-capacity=0",
		"--policy=block",
	}, args...)
	rootCmd.SetArgs(full)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRun_Primes(t *testing.T) {
	out, err := executeRun(t, "primes", "2", "3", "4,5", "9")
	require.NoError(t, err)
	assert.Equal(t, "2 is prime\n3 is prime\n5 is prime\n", out)
}

func TestRun_Transactions(t *testing.T) {
	out, err := executeRun(t, "transactions", "--", "100", "-30", "50", "-500", "10")
	require.NoError(t, err)
	assert.Equal(t, "Balance: 120\n", out)
}

func TestRun_Ranges(t *testing.T) {
	out, err := executeRun(t, "ranges", "1..100", "101..200")
	require.NoError(t, err)
	assert.Equal(t, "Sum: 20100\n", out)
}

func TestRun_Messages(t *testing.T) {
	out, err := executeRun(t, "messages", "--repeat=2", "alice>bob:hi")
	require.NoError(t, err)
	assert.Equal(t, "(alice>bob): hi\n(alice>bob): hi\n", out)
}

func TestRun_Mail(t *testing.T) {
	out, err := executeRun(t, "mail", "first", "second", "third")
	require.NoError(t, err)
	assert.Equal(t, "Message first was sent\nMessage second was sent\nMessage third was sent\n", out)
}

func TestRun_Alarm(t *testing.T) {
	out, err := executeRun(t, "alarm", "--period=5ms", "--ticks=2")
	require.NoError(t, err)
	assert.Equal(t, "It's time to get up!\n"+
		"You overslept by 0.005 seconds, it's time to get up!\n"+
		"You overslept by 0.01 seconds, it's time to get up!\n", out)
}

func TestRun_Counter(t *testing.T) {
	out, err := executeRun(t, "counter", "--run-for=10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "It was interrupted\n")
	assert.Regexp(t, `Counted to \d+\n$`, out)
}

func TestRun_Race(t *testing.T) {
	out, err := executeRun(t, "race", "1@500ms", "2@1ms", "3@400ms")
	require.NoError(t, err)
	assert.Equal(t, "Winner: 2\n", out)
}

func TestRun_UnknownWorkload(t *testing.T) {
	_, err := executeRun(t, "fibonacci")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION-002", taskerrors.GetErrorCode(err))
	assert.Equal(t, 2, taskerrors.ExitCode(err))
}

func TestRun_InvalidInput(t *testing.T) {
	_, err := executeRun(t, "ranges", "1-100")
	require.Error(t, err)
	assert.True(t, taskerrors.IsUserError(err))
	assert.Contains(t, taskerrors.FormatForCLI(err), "FROM..TO")
}

func TestRun_InvalidSetting(t *testing.T) {
	_, err := executeRun(t, "primes", "--workers=0", "7")
	require.Error(t, err)
	assert.Equal(t, "CONFIG-001", taskerrors.GetErrorCode(err))
}

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addExecutorFlags(c)
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestResolveSettings_Defaults(t *testing.T) {
	s, err := resolveSettings(newFlagCommand(t), "")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Workers, s.Workers)
	assert.False(t, s.RetryEnabled)
}

func TestResolveSettings_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
executor:
  workers: 3
  queue_capacity: 10
  policy: fail-fast
retry:
  enabled: true
  max_retries: 5
`), 0o600))
	t.Setenv(config.EnvWorkers, "6")

	s, err := resolveSettings(newFlagCommand(t, "--queue-capacity=20", "--result-timeout=2s"), path)
	require.NoError(t, err)
	assert.Equal(t, 6, s.Workers, "env overrides file")
	assert.Equal(t, 20, s.QueueCapacity, "flag overrides file")
	assert.Equal(t, "fail-fast", s.Policy)
	assert.Equal(t, 2*time.Second, s.ResultTimeout)
	assert.True(t, s.RetryEnabled)
	assert.Equal(t, 5, s.Retry.MaxRetries)

	s, err = resolveSettings(newFlagCommand(t, "--workers=1", "--retry=false"), path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Workers, "flag overrides env")
	assert.False(t, s.RetryEnabled)
}

func TestResolveSettings_Invalid(t *testing.T) {
	_, err := resolveSettings(newFlagCommand(t, "--policy=drop"), "")
	require.Error(t, err)
	assert.True(t, taskerrors.IsUserError(err))

	_, err = resolveSettings(newFlagCommand(t), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, "CONFIG-002", taskerrors.GetErrorCode(err))
}

func TestParseMessages(t *testing.T) {
	msgs, err := parseMessages([]string{"alice>bob:hello there", " carol > dave : hi "})
	require.NoError(t, err)
	assert.Equal(t, []workloads.Message{
		{From: "alice", To: "bob", Text: "hello there"},
		{From: "carol", To: "dave", Text: "hi"},
	}, msgs)

	for _, bad := range []string{"alice:hi", "alice>:hi", "alice>bob", ">bob:hi"} {
		_, err := parseMessages([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseRaceEntries(t *testing.T) {
	entries, err := parseRaceEntries([]string{"1@10ms", "2@1s"})
	require.NoError(t, err)
	assert.Equal(t, []workloads.RaceEntry{
		{Value: 1, Delay: 10 * time.Millisecond},
		{Value: 2, Delay: time.Second},
	}, entries)

	for _, bad := range []string{"1", "x@1s", "1@soon", "1@-1s"} {
		_, err := parseRaceEntries([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseRanges(t *testing.T) {
	ranges, err := parseRanges([]string{"1..10", "-5..5"})
	require.NoError(t, err)
	assert.Equal(t, []workloads.Range{{From: 1, To: 10}, {From: -5, To: 5}}, ranges)

	_, err = parseRanges([]string{"1..ten"})
	assert.Error(t, err)
}

func TestCapacityLabel(t *testing.T) {
	assert.Equal(t, "unbounded", capacityLabel(0))
	assert.Equal(t, "8", capacityLabel(8))
}
