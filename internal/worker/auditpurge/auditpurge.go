package auditpurge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/robfig/cron/v3"
)

const runTimeout = 5 * time.Minute

type purger interface {
	Purge(ctx context.Context, daysToKeep int) (int64, error)
}

// Worker deletes old audit entries on a cron schedule.
type Worker struct {
	purger     purger
	cron       *cron.Cron
	schedule   string
	daysToKeep int
	log        *slog.Logger
}

// option is a function that configures the Worker.
type option func(*Worker)

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(w *Worker) {
		w.log = log.With("component", "audit-purge")
	}
}

// NewWorker validates the schedule and registers the purge job.
func NewWorker(p purger, cfg config.AuditConfig, opts ...option) (*Worker, error) {
	w := &Worker{
		purger:     p,
		schedule:   cfg.PurgeSchedule,
		daysToKeep: cfg.DaysToKeep,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := w.cron.AddFunc(w.schedule, w.run); err != nil {
		return nil, fmt.Errorf("invalid audit purge schedule %q: %w", w.schedule, err)
	}

	return w, nil
}

func (w *Worker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	deleted, err := w.purger.Purge(ctx, w.daysToKeep)
	if err != nil {
		w.log.ErrorContext(ctx, "Audit purge failed", "error", err)

		return
	}

	w.log.InfoContext(ctx, "Audit purge finished", "deleted", deleted, "days_to_keep", w.daysToKeep)
}

// Start runs the scheduler until ctx is done and then waits for a running purge.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Audit purge scheduled", "schedule", w.schedule, "days_to_keep", w.daysToKeep)
	w.cron.Start()

	<-ctx.Done()
	<-w.cron.Stop().Done()
	w.log.Info("Audit purge stopped")
}
