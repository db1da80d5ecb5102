package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务结果标签取值。
const (
	TaskOutcomeOK    = "ok"
	TaskOutcomeRetry = "retry"
	TaskOutcomeDrop  = "dropped"
)

var (
	taskResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "asynq",
			Name:      "task_results_total",
			Help:      "后台任务处理结果：ok、retry（交给 asynq 重试）、dropped（SkipRetry）。",
		},
		[]string{"task_type", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portfolio",
			Subsystem: "asynq",
			Name:      "task_duration_seconds",
			Help:      "单次任务处理耗时（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	taskInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "portfolio",
			Subsystem: "asynq",
			Name:      "tasks_in_progress",
			Help:      "当前正在处理的任务数量。",
		},
		[]string{"task_type"},
	)
)

// AsynqMetricsMiddleware 记录 Asynq 任务处理指标。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			taskInProgress.WithLabelValues(taskType).Inc()
			defer taskInProgress.WithLabelValues(taskType).Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			taskResultsTotal.WithLabelValues(taskType, TaskOutcome(err)).Inc()

			return err
		})
	}
}

// TaskOutcome 把处理结果映射为指标标签。
func TaskOutcome(err error) string {
	switch {
	case err == nil:
		return TaskOutcomeOK
	case errors.Is(err, asynq.SkipRetry):
		return TaskOutcomeDrop
	default:
		return TaskOutcomeRetry
	}
}
