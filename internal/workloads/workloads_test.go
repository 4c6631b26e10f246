package workloads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/executor"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func quietEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestRunner(t *testing.T, workers int) (*Runner, *syncBuffer) {
	t.Helper()
	e, err := executor.New(executor.Config{PoolSize: workers}, executor.WithLogger(quietEntry()))
	require.NoError(t, err)
	t.Cleanup(func() {
		e.ShutdownNow()
		e.AwaitTermination(time.Second)
	})

	out := &syncBuffer{}
	r := NewRunner(e)
	r.Out = out
	r.Log = quietEntry()
	r.ResultTimeout = 5 * time.Second
	return r, out
}

func TestIsPrime(t *testing.T) {
	tests := []struct {
		n     int
		prime bool
	}{
		{-7, false}, {0, false}, {1, false}, {2, true}, {3, true},
		{4, false}, {9, false}, {17, true}, {25, false}, {97, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.prime, IsPrime(tt.n), "IsPrime(%d)", tt.n)
	}
}

func TestRunner_Primes(t *testing.T) {
	r, _ := newTestRunner(t, 4)

	primes, err := r.Primes(context.Background(), []int{10, 7, 1, 13, 4, 2, 29})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 13, 2, 29}, primes)

	primes, err = r.Primes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, primes)
}

func TestLastSolventBalance(t *testing.T) {
	tests := []struct {
		name    string
		amounts []int
		want    int
	}{
		{"Empty", nil, 0},
		{"All deposits", []int{10, 20, 30}, 60},
		{"Overdraft stops the ledger", []int{100, -30, -80, 500}, 70},
		{"First is an overdraft", []int{-5, 10}, 0},
		{"Back to zero", []int{5, -5, 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastSolventBalance(tt.amounts))
		})
	}
}

func TestRunner_Transactions(t *testing.T) {
	r, _ := newTestRunner(t, 4)

	balance, err := r.Transactions(context.Background(), []int{100, -30, -80, 500})
	require.NoError(t, err)
	assert.Equal(t, 70, balance)
}

func TestRange_Sum(t *testing.T) {
	assert.Equal(t, int64(55), Range{1, 10}.Sum())
	assert.Equal(t, int64(0), Range{5, 4}.Sum())
	assert.Equal(t, int64(-3), Range{-2, 1}.Sum())
	assert.Equal(t, "1..10", Range{1, 10}.String())
}

func TestRunner_SumRanges(t *testing.T) {
	r, _ := newTestRunner(t, 2)

	total, err := r.SumRanges(context.Background(), []Range{{1, 10}, {11, 20}, {7, 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(210), total)

	_, err = r.SumRanges(context.Background(), nil)
	assert.True(t, taskerrors.IsUserError(err))
}

func TestRunner_Broadcast(t *testing.T) {
	r, out := newTestRunner(t, 2)

	messages := []Message{
		{From: "alice", To: "bob", Text: "hi"},
		{From: "bob", To: "alice", Text: "hello"},
	}
	sent, err := r.Broadcast(context.Background(), r.MessagePrinter(), messages, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, sent)

	lines := out.Lines()
	assert.Len(t, lines, 6)
	counts := map[string]int{}
	for _, l := range lines {
		counts[l]++
	}
	assert.Equal(t, 3, counts["(alice>bob): hi"])
	assert.Equal(t, 3, counts["(bob>alice): hello"])
}

func TestRunner_BroadcastFailures(t *testing.T) {
	r, _ := newTestRunner(t, 2)

	var calls atomic.Int32
	sender := MessageSenderFunc(func(_ context.Context, m Message) error {
		calls.Add(1)
		if m.To == "nobody" {
			return errors.New("no such recipient")
		}
		return nil
	})

	sent, err := r.Broadcast(context.Background(), sender, []Message{
		{From: "a", To: "b", Text: "ok"},
		{From: "a", To: "nobody", Text: "lost"},
	}, 2)
	assert.Equal(t, 2, sent)
	assert.Equal(t, "WORKLOAD-001", taskerrors.GetErrorCode(err))
	assert.Equal(t, int32(4), calls.Load())

	_, err = r.Broadcast(context.Background(), sender, nil, 0)
	assert.True(t, taskerrors.IsUserError(err))
}

func TestRunner_SendMailInOrder(t *testing.T) {
	r, out := newTestRunner(t, 4)

	messages := []string{"first", "second", "third", "fourth"}
	require.NoError(t, r.SendMail(context.Background(), r.MailPrinter(), messages))

	assert.Equal(t, []string{
		"Message first was sent",
		"Message second was sent",
		"Message third was sent",
		"Message fourth was sent",
	}, out.Lines())
}

func TestRunner_SendMailFailure(t *testing.T) {
	r, _ := newTestRunner(t, 1)

	var delivered []string
	sender := MailSenderFunc(func(m string) error {
		if m == "bad" {
			return errors.New("mailbox unavailable")
		}
		delivered = append(delivered, m)
		return nil
	})

	err := r.SendMail(context.Background(), sender, []string{"a", "bad", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox unavailable")
	assert.Equal(t, []string{"a", "c"}, delivered)
}

func TestRunner_Alarm(t *testing.T) {
	r, out := newTestRunner(t, 1)

	reminders, err := r.Alarm(context.Background(), 5*time.Millisecond, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, reminders)

	assert.Equal(t, []string{
		"It's time to get up!",
		"You overslept by 0.005 seconds, it's time to get up!",
		"You overslept by 0.01 seconds, it's time to get up!",
		"You overslept by 0.015 seconds, it's time to get up!",
	}, out.Lines())

	_, err = r.Alarm(context.Background(), time.Millisecond, 0)
	assert.True(t, taskerrors.IsUserError(err))
}

func TestRunner_AlarmContextCancelled(t *testing.T) {
	r, _ := newTestRunner(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	reminders, err := r.Alarm(ctx, 10*time.Millisecond, 1000)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, reminders, 1000)
}

func TestRunner_InterruptCounter(t *testing.T) {
	r, out := newTestRunner(t, 1)

	count, err := r.InterruptCounter(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Positive(t, count)
	assert.Equal(t, []string{"It was interrupted"}, out.Lines())
}

func TestRunner_Race(t *testing.T) {
	r, _ := newTestRunner(t, 3)

	winner, err := r.Race(context.Background(), []RaceEntry{
		{Value: 10, Delay: 200 * time.Millisecond},
		{Value: 20, Delay: 5 * time.Millisecond},
		{Value: 30, Delay: 300 * time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, winner)

	_, err = r.Race(context.Background(), nil)
	assert.True(t, taskerrors.IsUserError(err))
}

func TestRunner_DecorateAppliesToTasks(t *testing.T) {
	r, _ := newTestRunner(t, 2)

	var wrapped atomic.Int32
	r.Decorate = func(task executor.Task) executor.Task {
		wrapped.Add(1)
		return task
	}

	_, err := r.Primes(context.Background(), []int{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, int32(3), wrapped.Load())
}
