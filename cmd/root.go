package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/taskpool/internal/logger"
)

var (
	configPath string
	debug      bool
	verbose    bool
	jsonLogs   bool
	quiet      bool
	version    = "v0.1.0"

	rootCmd = &cobra.Command{
		Use:   "taskpool",
		Short: "Run concurrent workloads on a bounded worker pool",
		Long: `taskpool runs small concurrent workloads on a fixed pool of workers
behind a bounded queue. Pool size, queue capacity, the full-queue policy and
retries come from flags, a YAML or JSON config file, or TASKPOOL_* variables.`,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(verbose || debug, jsonLogs, quiet)
			// Flags parsed fine; later errors are not usage errors.
			cmd.SilenceUsage = true
			if debug {
				logger.Op.Debug("Debug logging enabled")
			}
		},
	}
)

// Execute runs the root command. The context is cancelled on SIGINT or
// SIGTERM so running workloads can stop early.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file")

	rootCmd.AddCommand(runCmd)
}
