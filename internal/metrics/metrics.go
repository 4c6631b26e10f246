package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maxkimambo/taskpool/internal/executor"
)

const namespace = "taskpool"

// Collectors holds the Prometheus collectors fed by executor events. It
// implements executor.Observer.
type Collectors struct {
	TasksSubmitted prometheus.Counter
	TasksRejected  *prometheus.CounterVec
	TasksFinished  *prometheus.CounterVec
	TasksCancelled prometheus.Counter
	QueueWait      prometheus.Histogram
	TaskDuration   *prometheus.HistogramVec
}

var _ executor.Observer = (*Collectors)(nil)

// NewCollectors creates the collectors for one executor and registers them
// with registry. The executor name becomes a constant label.
func NewCollectors(registry prometheus.Registerer, executorName string) (*Collectors, error) {
	labels := prometheus.Labels{"executor": executorName}

	c := &Collectors{
		TasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tasks_submitted_total",
			Help:        "Total number of tasks accepted into the work queue",
			ConstLabels: labels,
		}),
		TasksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tasks_rejected_total",
			Help:        "Total number of submissions refused, by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		TasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tasks_finished_total",
			Help:        "Total number of tasks that ran to a terminal state, by state",
			ConstLabels: labels,
		}, []string{"state"}),
		TasksCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tasks_cancelled_total",
			Help:        "Total number of tasks cancelled before they started",
			ConstLabels: labels,
		}),
		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "task_queue_wait_seconds",
			Help:        "Time between submission and a worker picking the task up",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "task_duration_seconds",
			Help:        "Histogram of task execution time, by terminal state",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"state"}),
	}

	for _, col := range []prometheus.Collector{
		c.TasksSubmitted,
		c.TasksRejected,
		c.TasksFinished,
		c.TasksCancelled,
		c.QueueWait,
		c.TaskDuration,
	} {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collectors) TaskSubmitted() {
	c.TasksSubmitted.Inc()
}

func (c *Collectors) TaskRejected(reason error) {
	c.TasksRejected.WithLabelValues(rejectReason(reason)).Inc()
}

func (c *Collectors) TaskStarted(queueWait time.Duration) {
	c.QueueWait.Observe(queueWait.Seconds())
}

func (c *Collectors) TaskFinished(state executor.State, runtime time.Duration) {
	c.TasksFinished.WithLabelValues(state.String()).Inc()
	c.TaskDuration.WithLabelValues(state.String()).Observe(runtime.Seconds())
}

func (c *Collectors) TaskCancelled() {
	c.TasksCancelled.Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, executor.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, executor.ErrShutdown):
		return "shutdown"
	case err == nil:
		return "unknown"
	default:
		return "context"
	}
}

// StatsSource is anything that can report executor statistics.
type StatsSource interface {
	Name() string
	Stats() executor.Stats
}

// StatsCollector exports point-in-time executor gauges at scrape time.
type StatsCollector struct {
	source StatsSource

	queued   *prometheus.Desc
	running  *prometheus.Desc
	peak     *prometheus.Desc
	poolSize *prometheus.Desc
}

// NewStatsCollector creates a collector reading source on every scrape.
func NewStatsCollector(source StatsSource) *StatsCollector {
	labels := prometheus.Labels{"executor": source.Name()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, labels)
	}
	return &StatsCollector{
		source:   source,
		queued:   desc("queue_depth", "Number of tasks waiting in the work queue"),
		running:  desc("tasks_running", "Number of tasks currently running"),
		peak:     desc("tasks_running_peak", "Highest number of tasks observed running at once"),
		poolSize: desc("pool_size", "Number of worker goroutines"),
	}
}

// Describe implements prometheus.Collector
func (s *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.queued
	ch <- s.running
	ch <- s.peak
	ch <- s.poolSize
}

// Collect implements prometheus.Collector
func (s *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	st := s.source.Stats()
	ch <- prometheus.MustNewConstMetric(s.queued, prometheus.GaugeValue, float64(st.Queued))
	ch <- prometheus.MustNewConstMetric(s.running, prometheus.GaugeValue, float64(st.Running))
	ch <- prometheus.MustNewConstMetric(s.peak, prometheus.GaugeValue, float64(st.PeakRunning))
	ch <- prometheus.MustNewConstMetric(s.poolSize, prometheus.GaugeValue, float64(st.PoolSize))
}
