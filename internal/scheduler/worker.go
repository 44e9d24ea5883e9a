package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type WorkerParams struct {
	fx.In

	Log      *zap.Logger
	Triggers *Triggers
	Config   Config
}

// Worker runs every trigger on a fixed interval. Deployments that prefer
// an external cron leave it disabled and call the triggers directly.
type Worker struct {
	log      *zap.Logger
	triggers *Triggers
	cfg      Config
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		log:      p.Log.Named("scheduler.worker"),
		triggers: p.Triggers,
		cfg:      p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn("fee maintenance run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce refreshes aging before notifying so alerts see current status.
// A failing step does not stop the ones after it.
func (w *Worker) RunOnce(ctx context.Context) error {
	var errs []error
	if _, err := w.triggers.RefreshAging(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := w.triggers.SendDueReminders(ctx, w.cfg.ReminderDaysBefore); err != nil {
		errs = append(errs, err)
	}
	if _, err := w.triggers.SendOverdueAlerts(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
