package workloads

import (
	"context"
	"fmt"

	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/executor"
)

// Message is a chat message delivered by Broadcast.
type Message struct {
	From string
	To   string
	Text string
}

func (m Message) String() string {
	return fmt.Sprintf("(%s>%s): %s", m.From, m.To, m.Text)
}

// MessageSender delivers one message.
type MessageSender interface {
	Send(ctx context.Context, m Message) error
}

// MessageSenderFunc adapts a function to MessageSender.
type MessageSenderFunc func(ctx context.Context, m Message) error

func (f MessageSenderFunc) Send(ctx context.Context, m Message) error {
	return f(ctx, m)
}

// MessagePrinter returns a sender that prints each message to r.Out.
func (r *Runner) MessagePrinter() MessageSender {
	return MessageSenderFunc(func(_ context.Context, m Message) error {
		r.println(m.String())
		return nil
	})
}

// Broadcast sends every message repeat times, one task per delivery, and
// waits for all of them. It returns the number of successful deliveries and
// the first failure.
func (r *Runner) Broadcast(ctx context.Context, sender MessageSender, messages []Message, repeat int) (int, error) {
	if repeat < 1 {
		return 0, taskerrors.NewInputValidationError("messages", fmt.Sprintf("Repeat factor must be at least 1, got %d", repeat))
	}

	tasks := make([]executor.Task, 0, len(messages)*repeat)
	for _, m := range messages {
		for i := 0; i < repeat; i++ {
			tasks = append(tasks, func(ctx context.Context) (any, error) {
				return nil, sender.Send(ctx, m)
			})
		}
	}

	waitCtx, cancel := r.waitContext(ctx)
	defer cancel()

	handles, err := r.Exec.InvokeAll(waitCtx, r.tasks(tasks))
	if err != nil {
		return executor.CountDone(handles), taskerrors.FromExecutor(err, "Broadcasting messages")
	}

	sent := 0
	var firstErr error
	for _, h := range handles {
		if _, err := h.Get(waitCtx); err != nil {
			if firstErr == nil {
				firstErr = taskerrors.FromExecutor(err, "Broadcasting messages")
			}
			continue
		}
		sent++
	}
	return sent, firstErr
}

// MailSender delivers one mail body.
type MailSender interface {
	Send(message string) error
}

// MailSenderFunc adapts a function to MailSender.
type MailSenderFunc func(message string) error

func (f MailSenderFunc) Send(message string) error {
	return f(message)
}

// MailPrinter returns a sender that reports each delivery on r.Out.
func (r *Runner) MailPrinter() MailSender {
	return MailSenderFunc(func(message string) error {
		r.println(fmt.Sprintf("Message %s was sent", message))
		return nil
	})
}

// SendMail delivers messages in order on a dedicated single-worker executor,
// then shuts it down and waits for it to drain. If ctx ends first the
// remaining deliveries are cancelled.
func (r *Runner) SendMail(ctx context.Context, sender MailSender, messages []string) error {
	mailer, err := executor.New(
		executor.Config{PoolSize: 1},
		executor.WithName("mail"),
		executor.WithLogger(r.log().WithField("executor", "mail")),
	)
	if err != nil {
		return taskerrors.FromExecutor(err, "Starting mail executor")
	}

	handles := make([]*executor.Handle, 0, len(messages))
	for _, msg := range messages {
		h, err := mailer.Submit(r.task(func(context.Context) (any, error) {
			return nil, sender.Send(msg)
		}))
		if err != nil {
			mailer.ShutdownNow()
			return taskerrors.FromExecutor(err, "Queueing mail")
		}
		handles = append(handles, h)
	}

	mailer.Shutdown()
	if !mailer.AwaitTerminationContext(ctx) {
		cancelled := mailer.ShutdownNow()
		r.log().WithField("cancelled", len(cancelled)).Warn("Mail delivery interrupted")
		return taskerrors.FromExecutor(ctx.Err(), "Delivering mail")
	}

	for _, h := range handles {
		if _, err := h.Get(ctx); err != nil {
			return taskerrors.FromExecutor(err, "Delivering mail")
		}
	}
	return nil
}
