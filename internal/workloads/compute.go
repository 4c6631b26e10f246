package workloads

import (
	"context"
	"fmt"

	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/executor"
)

// IsPrime reports whether n is prime by trial division.
func IsPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// Primes checks every number on the pool and returns the primes in input
// order.
func (r *Runner) Primes(ctx context.Context, numbers []int) ([]int, error) {
	tasks := make([]executor.Task, len(numbers))
	for i, n := range numbers {
		tasks[i] = func(context.Context) (any, error) {
			return IsPrime(n), nil
		}
	}

	handles, err := r.Exec.SubmitAll(r.tasks(tasks))
	if err != nil {
		return nil, taskerrors.FromExecutor(err, "Submitting prime checks")
	}

	waitCtx, cancel := r.waitContext(ctx)
	defer cancel()
	flags, err := executor.Collect[bool](waitCtx, handles)
	if err != nil {
		return nil, taskerrors.FromExecutor(err, "Collecting prime checks")
	}

	primes := make([]int, 0, len(numbers))
	for i, prime := range flags {
		if prime {
			primes = append(primes, numbers[i])
		}
	}
	r.log().WithField("checked", len(numbers)).Debugf("Found %d primes", len(primes))
	return primes, nil
}

// Transactions applies amounts to a running balance. Each amount is produced
// by its own task; the balance is reduced in submission order and stops at
// the first overdraft. The last non-negative balance is returned, or 0 when
// there is none.
func (r *Runner) Transactions(ctx context.Context, amounts []int) (int, error) {
	tasks := make([]executor.Task, len(amounts))
	for i, amount := range amounts {
		tasks[i] = func(context.Context) (any, error) {
			return amount, nil
		}
	}

	waitCtx, cancel := r.waitContext(ctx)
	defer cancel()

	handles, err := r.Exec.InvokeAll(waitCtx, r.tasks(tasks))
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Running transactions")
	}
	values, err := executor.Collect[int](waitCtx, handles)
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Collecting transactions")
	}

	return LastSolventBalance(values), nil
}

// LastSolventBalance folds amounts into a running sum and returns the last
// sum before the first negative one.
func LastSolventBalance(amounts []int) int {
	balance, last := 0, 0
	for _, a := range amounts {
		balance += a
		if balance < 0 {
			break
		}
		last = balance
	}
	return last
}

// Range is an inclusive integer interval.
type Range struct {
	From int64
	To   int64
}

func (rg Range) String() string {
	return fmt.Sprintf("%d..%d", rg.From, rg.To)
}

// Sum adds every integer in the range. Empty when From > To.
func (rg Range) Sum() int64 {
	if rg.From > rg.To {
		return 0
	}
	n := rg.To - rg.From + 1
	return n * (rg.From + rg.To) / 2
}

// SumRanges sums each range on its own task and returns the total.
func (r *Runner) SumRanges(ctx context.Context, ranges []Range) (int64, error) {
	if len(ranges) == 0 {
		return 0, taskerrors.NewInputValidationError("ranges", "At least one range is required")
	}

	tasks := make([]executor.Task, len(ranges))
	for i, rg := range ranges {
		tasks[i] = func(ctx context.Context) (any, error) {
			var sum int64
			if rg.From > rg.To {
				return sum, nil
			}
			for v := rg.From; ; v++ {
				if v&0xffff == 0 && ctx.Err() != nil {
					return nil, ctx.Err()
				}
				sum += v
				if v == rg.To {
					return sum, nil
				}
			}
		}
	}

	handles, err := r.Exec.SubmitAll(r.tasks(tasks))
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Submitting range sums")
	}

	waitCtx, cancel := r.waitContext(ctx)
	defer cancel()
	sums, err := executor.Collect[int64](waitCtx, handles)
	if err != nil {
		return 0, taskerrors.FromExecutor(err, "Collecting range sums")
	}

	var total int64
	for _, s := range sums {
		total += s
	}
	return total, nil
}
