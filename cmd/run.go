package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maxkimambo/taskpool/internal/config"
	taskerrors "github.com/maxkimambo/taskpool/internal/errors"
	"github.com/maxkimambo/taskpool/internal/executor"
	"github.com/maxkimambo/taskpool/internal/logger"
	"github.com/maxkimambo/taskpool/internal/metrics"
	"github.com/maxkimambo/taskpool/internal/progress"
	"github.com/maxkimambo/taskpool/internal/utils"
	"github.com/maxkimambo/taskpool/internal/workloads"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload on the worker pool",
	Long: `Run one of the built-in workloads on a bounded worker pool.

Executor settings are resolved in order: defaults, the --config file,
TASKPOOL_* environment variables, then flags given on the command line.`,
}

func init() {
	addExecutorFlags(runCmd)

	// Set here rather than in the literal: workloadNames reads runCmd.
	runCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return taskerrors.NewUnknownWorkloadError(args[0], workloadNames())
	}
}

// addExecutorFlags registers the executor settings as persistent flags on
// cmd. Defaults mirror config.Default so --help shows real values.
func addExecutorFlags(cmd *cobra.Command) {
	def := config.Default()
	fs := cmd.PersistentFlags()
	fs.IntP("workers", "w", def.Workers, "Number of worker goroutines")
	fs.Int("queue-capacity", def.QueueCapacity, "Maximum queued or running tasks (0 = unbounded)")
	fs.String("policy", def.Policy, "What Submit does when the queue is full: block or fail-fast")
	fs.String("metrics-addr", def.MetricsAddr, "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.Duration("result-timeout", def.ResultTimeout, "Maximum time to wait for workload results")
	fs.Duration("shutdown-timeout", def.ShutdownTimeout, "Grace period for queued tasks on shutdown")
	fs.Bool("retry", def.RetryEnabled, "Retry failed tasks with exponential backoff")
	fs.Int("max-retries", def.Retry.MaxRetries, "Retries per task when --retry is set")
	fs.Duration("progress", 2*time.Second, "Progress report interval (0 disables)")
}

// resolveSettings loads the config file and environment, then applies the
// flags the user set explicitly.
func resolveSettings(cmd *cobra.Command, path string) (*config.Settings, error) {
	s, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		s.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("queue-capacity") {
		s.QueueCapacity, _ = flags.GetInt("queue-capacity")
	}
	if flags.Changed("policy") {
		s.Policy, _ = flags.GetString("policy")
	}
	if flags.Changed("metrics-addr") {
		s.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("result-timeout") {
		s.ResultTimeout, _ = flags.GetDuration("result-timeout")
	}
	if flags.Changed("shutdown-timeout") {
		s.ShutdownTimeout, _ = flags.GetDuration("shutdown-timeout")
	}
	if flags.Changed("retry") {
		s.RetryEnabled, _ = flags.GetBool("retry")
	}
	if flags.Changed("max-retries") {
		s.Retry.MaxRetries, _ = flags.GetInt("max-retries")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// session owns the executor, metrics and progress reporting for one
// workload run.
type session struct {
	cmd      *cobra.Command
	workload string
	settings *config.Settings
	exec     *executor.Executor
	runner   *workloads.Runner
	registry *prometheus.Registry
	server   *metrics.Server
	reporter *progress.Reporter
	log      *logrus.Entry

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// startSession builds the executor for workload from the resolved settings.
// expected is the number of tasks the workload will submit, or 0 if unknown.
func startSession(cmd *cobra.Command, workload string, expected int) (*session, error) {
	settings, err := resolveSettings(cmd, configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := settings.ExecutorConfig()
	if err != nil {
		return nil, err
	}

	log := logger.Op.WithFields(map[string]interface{}{
		"component": "cli",
		"workload":  workload,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs, err := metrics.NewCollectors(registry, workload)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	exec, err := executor.New(cfg,
		executor.WithName(workload),
		executor.WithObserver(obs),
		executor.WithLogger(log.WithField("executor", workload)),
	)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(metrics.NewStatsCollector(exec)); err != nil {
		exec.ShutdownNow()
		return nil, fmt.Errorf("registering executor stats: %w", err)
	}

	s := &session{
		cmd:      cmd,
		workload: workload,
		settings: settings,
		exec:     exec,
		registry: registry,
		reporter: progress.NewReporter(workload, expected),
		log:      log,
	}

	if settings.MetricsAddr != "" {
		s.server, err = metrics.Start(settings.MetricsAddr, registry, log.WithField("component", "metrics"))
		if err != nil {
			exec.ShutdownNow()
			return nil, fmt.Errorf("starting metrics server on %s: %w", settings.MetricsAddr, err)
		}
		logger.User.Infof("Serving metrics on http://%s/metrics", s.server.Addr())
	}

	s.runner = workloads.NewRunner(exec)
	s.runner.Decorate = settings.Decorator()
	s.runner.ResultTimeout = settings.ResultTimeout
	s.runner.Out = cmd.OutOrStdout()
	s.runner.Log = log

	if interval, _ := cmd.Flags().GetDuration("progress"); interval > 0 {
		s.reporter.WithInterval(interval)
		ctx, cancel := context.WithCancel(cmd.Context())
		s.stopWatch = cancel
		s.watchDone = make(chan struct{})
		go func() {
			defer close(s.watchDone)
			s.reporter.Watch(ctx, exec, func(line string) {
				logger.User.Task(line)
			})
		}()
	}

	logger.User.Startingf("Running %s on %d workers (queue %s, policy %s)",
		workload, settings.Workers, capacityLabel(settings.QueueCapacity), settings.Policy)
	log.WithFields(logrus.Fields{
		"workers":        settings.Workers,
		"queue_capacity": settings.QueueCapacity,
		"policy":         settings.Policy,
		"retry":          settings.RetryEnabled,
	}).Debug("Executor started")

	return s, nil
}

// finish shuts the executor down, stops the metrics server and prints a
// summary. It returns runErr unchanged.
func (s *session) finish(runErr error) error {
	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
	}

	if errors.Is(runErr, context.Canceled) {
		logger.User.Warn("Interrupted, stopping early")
	}
	if st := s.exec.Stats(); st.Queued > 0 || st.Running > 0 {
		logger.User.Shutdown(fmt.Sprintf("Shutting down, waiting for %d queued and %d running tasks", st.Queued, st.Running))
	}
	s.exec.Shutdown()
	if !s.exec.AwaitTermination(s.settings.ShutdownTimeout) {
		dropped := s.exec.ShutdownNow()
		logger.User.Cancel(fmt.Sprintf("Shutdown timed out after %s, cancelled %d queued tasks",
			s.settings.ShutdownTimeout, len(dropped)))
		if !s.exec.AwaitTermination(s.settings.ShutdownTimeout) {
			logger.User.Error("Some tasks ignored interruption and are still running")
		}
	}

	q := s.exec.QueueMetrics()
	s.log.WithFields(logrus.Fields{
		"enqueued": q.Enqueued,
		"dequeued": q.Dequeued,
		"dropped":  q.Dropped,
		"removed":  q.Removed,
	}).Debug("Queue drained")

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.ShutdownTimeout)
		if err := s.server.Stop(ctx); err != nil {
			s.log.WithError(err).Warn("Metrics server did not stop cleanly")
		}
		cancel()
	}

	if !quiet {
		fmt.Fprintln(s.cmd.OutOrStdout(), s.summary(runErr))
	}
	return runErr
}

func (s *session) summary(runErr error) string {
	st := s.exec.Stats()

	table := utils.NewTableFormatter("Tasks", "Count").AlignColumn(1, utils.AlignRight)
	_ = table.AddRow("submitted", st.Submitted)
	_ = table.AddRow("completed", st.Completed)
	_ = table.AddRow("failed", st.Failed)
	_ = table.AddRow("cancelled", st.Cancelled)
	_ = table.AddRow("rejected", st.Rejected)
	_ = table.AddRow("peak running", st.PeakRunning)

	boxType := utils.SuccessMessage
	title := fmt.Sprintf("%s finished", s.workload)
	switch {
	case runErr != nil:
		boxType = utils.ErrorMessage
		title = fmt.Sprintf("%s failed", s.workload)
	case st.Failed > 0 || st.Cancelled > 0 || st.Rejected > 0:
		boxType = utils.WarningMessage
		title = fmt.Sprintf("%s finished with problems", s.workload)
	}

	box := utils.NewBox(boxType, title).
		AddLinef("%d workers, queue %s, policy %s", s.settings.Workers, capacityLabel(s.settings.QueueCapacity), s.settings.Policy).
		AddLinef("Elapsed %s", progress.FormatDuration(s.reporter.Elapsed()))
	if s.settings.RetryEnabled {
		box.AddBullet(fmt.Sprintf("retries enabled (max %d per task)", s.settings.Retry.MaxRetries))
	}

	return box.Render() + "\n" + table.String()
}

func capacityLabel(capacity int) string {
	if capacity == 0 {
		return "unbounded"
	}
	return strconv.Itoa(capacity)
}
