package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/logger"
	"github.com/ignatzorin/livebook-backend/internal/metrics"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
)

// Handler выполняет задачу одного типа. Ошибка приводит к повтору с задержкой.
type Handler func(ctx context.Context, job Job) error

type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RunTimeout   time.Duration
}

// Worker периодически забирает созревшие задачи и выполняет их.
type Worker struct {
	store    Store
	clock    clock.Clock
	config   WorkerConfig
	handlers map[string]Handler
	log      *logrus.Entry
}

func NewWorker(store Store, clk clock.Clock, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}

	return &Worker{
		store:    store,
		clock:    clk,
		config:   cfg,
		handlers: make(map[string]Handler),
		log:      logger.Component("jobs"),
	}
}

// Handle регистрирует обработчик для типа задачи.
func (w *Worker) Handle(jobType string, h Handler) {
	w.handlers[jobType] = h
}

// Run крутит цикл опроса до отмены ctx.
func (w *Worker) Run(ctx context.Context) error {
	w.log.WithField("interval", w.config.PollInterval.String()).Info("воркер отложенных задач запущен")

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.WithError(err).Error("не удалось обработать пачку задач")
		}

		select {
		case <-ctx.Done():
			w.log.Info("воркер отложенных задач остановлен")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce обрабатывает одну пачку созревших задач и возвращает их количество.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	jobs, err := w.store.ClaimDue(ctx, w.clock.Now(), w.config.BatchSize, w.config.RunTimeout)
	if err != nil {
		return 0, fmt.Errorf("jobs: claim due %w", err)
	}

	for _, job := range jobs {
		w.process(ctx, job)
	}
	return len(jobs), nil
}

func (w *Worker) process(ctx context.Context, job Job) {
	entry := w.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": job.Type,
		"attempt":  job.Attempts,
	})

	handler, ok := w.handlers[job.Type]
	if !ok {
		w.fail(ctx, entry, job, fmt.Errorf("нет обработчика для типа %q", job.Type), true)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()

	if err := w.safeRun(runCtx, handler, job); err != nil {
		w.fail(ctx, entry, job, err, job.Attempts >= w.config.MaxAttempts)
		return
	}

	if err := w.store.MarkDone(ctx, job.ID, w.clock.Now()); err != nil {
		entry.WithError(err).Error("не удалось отметить задачу выполненной")
		return
	}
	metrics.JobsProcessedTotal.WithLabelValues(job.Type, "done").Inc()
	entry.Debug("задача выполнена")
}

func (w *Worker) safeRun(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return h(ctx, job)
}

func (w *Worker) fail(ctx context.Context, entry *logrus.Entry, job Job, cause error, final bool) {
	now := w.clock.Now()
	var retryAt *time.Time
	result := "failed"
	if !final {
		next := now.Add(backoff(job.Attempts))
		retryAt = &next
		result = "retry"
	}

	entry.WithError(cause).WithField("final", final).Warn("задача завершилась ошибкой")
	metrics.JobsProcessedTotal.WithLabelValues(job.Type, result).Inc()

	if err := w.store.MarkFailed(ctx, job.ID, cause.Error(), retryAt, now); err != nil {
		entry.WithError(err).Error("не удалось сохранить ошибку задачи")
	}
}

// backoff: 30s, 2m, 4.5m, 8m...
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt*attempt) * 30 * time.Second
}
