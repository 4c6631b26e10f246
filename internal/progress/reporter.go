package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxkimambo/taskpool/internal/executor"
)

// StatsSource reports executor statistics.
type StatsSource interface {
	Stats() executor.Stats
}

// Reporter turns executor statistics into progress lines.
type Reporter struct {
	workload       string
	expected       int64
	startTime      time.Time
	reportInterval time.Duration
}

// NewReporter creates a reporter for a workload expected to submit expected
// tasks. Pass 0 when the total is not known up front.
func NewReporter(workload string, expected int) *Reporter {
	return &Reporter{
		workload:       workload,
		expected:       int64(expected),
		startTime:      time.Now(),
		reportInterval: 5 * time.Second,
	}
}

// WithInterval changes how often Watch reports.
func (r *Reporter) WithInterval(d time.Duration) *Reporter {
	if d > 0 {
		r.reportInterval = d
	}
	return r
}

// Report generates a formatted progress line
func (r *Reporter) Report(st executor.Stats) string {
	total := r.expected
	if total == 0 || st.Submitted > total {
		total = st.Submitted
	}
	finished := st.Finished()
	elapsed := time.Since(r.startTime)

	percentage := 0.0
	if total > 0 {
		percentage = float64(finished) / float64(total) * 100
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d/%d tasks finished (%.1f%%)", r.workload, finished, total, percentage)
	fmt.Fprintf(&sb, " | running %d/%d, queued %d", st.Running, st.PoolSize, st.Queued)
	if st.Failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", st.Failed)
	}
	if st.Cancelled > 0 {
		fmt.Fprintf(&sb, ", %d cancelled", st.Cancelled)
	}
	fmt.Fprintf(&sb, " | elapsed %s", FormatDuration(elapsed))
	if eta := CalculateETA(finished, total, elapsed); eta > 0 {
		fmt.Fprintf(&sb, ", eta %s", FormatDuration(eta))
	}
	return sb.String()
}

// Watch reports on every interval until ctx ends.
func (r *Reporter) Watch(ctx context.Context, src StatsSource, emit func(string)) {
	ticker := time.NewTicker(r.reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit(r.Report(src.Stats()))
		}
	}
}

// Elapsed returns the time since the reporter was created.
func (r *Reporter) Elapsed() time.Duration {
	return time.Since(r.startTime)
}

// CalculateETA estimates time remaining based on current progress
func CalculateETA(completed, total int64, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}

	averageTimePerTask := elapsed / time.Duration(completed)
	return averageTimePerTask * time.Duration(total-completed)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
