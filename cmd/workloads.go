package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/taskpool/internal/logger"
)

var primesCmd = &cobra.Command{
	Use:     "primes NUMBER...",
	Short:   "Check which numbers are prime, one task per number",
	Example: "  taskpool run primes 2 3 4 5 97\n  taskpool run primes 1,2,3,4 --workers 2",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		numbers, err := parseInts("primes", args)
		if err != nil {
			return err
		}
		s, err := startSession(cmd, "primes", len(numbers))
		if err != nil {
			return err
		}
		primes, err := s.runner.Primes(cmd.Context(), numbers)
		if err == nil {
			for _, p := range primes {
				fmt.Fprintf(cmd.OutOrStdout(), "%d is prime\n", p)
			}
			logger.User.Successf("%d of %d numbers are prime", len(primes), len(numbers))
		}
		return s.finish(err)
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions AMOUNT...",
	Short: "Apply amounts to a balance and report the last solvent balance",
	Long: `Apply each amount to a running balance in order, stopping at the first
overdraft. Negative amounts must follow "--" so they are not read as flags.`,
	Example: "  taskpool run transactions -- 100 -30 50 -200",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amounts, err := parseInts("transactions", args)
		if err != nil {
			return err
		}
		s, err := startSession(cmd, "transactions", len(amounts))
		if err != nil {
			return err
		}
		balance, err := s.runner.Transactions(cmd.Context(), amounts)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Balance: %d\n", balance)
		}
		return s.finish(err)
	},
}

var rangesCmd = &cobra.Command{
	Use:     "ranges FROM..TO...",
	Short:   "Sum integer ranges, one task per range",
	Example: "  taskpool run ranges 1..1000000 1000001..2000000",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ranges, err := parseRanges(args)
		if err != nil {
			return err
		}
		s, err := startSession(cmd, "ranges", len(ranges))
		if err != nil {
			return err
		}
		total, err := s.runner.SumRanges(cmd.Context(), ranges)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Sum: %d\n", total)
		}
		return s.finish(err)
	},
}

var messagesCmd = &cobra.Command{
	Use:     "messages FROM>TO:TEXT...",
	Short:   "Broadcast chat messages, one task per delivery",
	Example: "  taskpool run messages 'alice>bob:hi' 'bob>alice:hello' --repeat 3",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		messages, err := parseMessages(args)
		if err != nil {
			return err
		}
		repeat, _ := cmd.Flags().GetInt("repeat")
		s, err := startSession(cmd, "messages", len(messages)*repeat)
		if err != nil {
			return err
		}
		sent, err := s.runner.Broadcast(cmd.Context(), s.runner.MessagePrinter(), messages, repeat)
		if err == nil {
			logger.User.Successf("Delivered %d messages", sent)
		}
		return s.finish(err)
	},
}

var mailCmd = &cobra.Command{
	Use:     "mail MESSAGE...",
	Short:   "Deliver messages in order on a dedicated single-worker executor",
	Example: "  taskpool run mail first second third",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := startSession(cmd, "mail", 0)
		if err != nil {
			return err
		}
		err = s.runner.SendMail(cmd.Context(), s.runner.MailPrinter(), args)
		if err == nil {
			logger.User.Successf("Delivered %d messages in order", len(args))
		}
		return s.finish(err)
	},
}

var alarmCmd = &cobra.Command{
	Use:     "alarm",
	Short:   "Ring an alarm at a fixed rate",
	Example: "  taskpool run alarm --period 500ms --ticks 4",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		period, _ := cmd.Flags().GetDuration("period")
		ticks, _ := cmd.Flags().GetInt("ticks")
		s, err := startSession(cmd, "alarm", ticks)
		if err != nil {
			return err
		}
		runs, err := s.runner.Alarm(cmd.Context(), period, ticks)
		logger.Op.Debugf("Alarm stopped after %d reminders", runs)
		return s.finish(err)
	},
}

var counterCmd = &cobra.Command{
	Use:     "counter",
	Short:   "Count on a worker until it is interrupted",
	Example: "  taskpool run counter --run-for 250ms",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runFor, _ := cmd.Flags().GetDuration("run-for")
		s, err := startSession(cmd, "counter", 1)
		if err != nil {
			return err
		}
		count, err := s.runner.InterruptCounter(cmd.Context(), runFor)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Counted to %d\n", count)
		}
		return s.finish(err)
	},
}

var raceCmd = &cobra.Command{
	Use:     "race VALUE@DELAY...",
	Short:   "Return the value whose task finishes first",
	Example: "  taskpool run race 1@300ms 2@100ms 3@200ms",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := parseRaceEntries(args)
		if err != nil {
			return err
		}
		s, err := startSession(cmd, "race", len(entries))
		if err != nil {
			return err
		}
		winner, err := s.runner.Race(cmd.Context(), entries)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Winner: %d\n", winner)
		}
		return s.finish(err)
	},
}

// workloadNames lists the run subcommands, sorted by name.
func workloadNames() []string {
	names := make([]string, 0, len(runCmd.Commands()))
	for _, c := range runCmd.Commands() {
		names = append(names, c.Name())
	}
	return names
}

func init() {
	messagesCmd.Flags().Int("repeat", 1, "Send every message this many times")
	alarmCmd.Flags().Duration("period", time.Second, "Time between reminders")
	alarmCmd.Flags().Int("ticks", 3, "Number of reminders before the alarm stops")
	counterCmd.Flags().Duration("run-for", 100*time.Millisecond, "How long the counter runs before it is interrupted")

	runCmd.AddCommand(primesCmd, transactionsCmd, rangesCmd, messagesCmd, mailCmd, alarmCmd, counterCmd, raceCmd)

	runCmd.Long += "\n\nWorkloads: " + strings.Join(workloadNames(), ", ")
}
