package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Retention periodically purges conversions older than MaxAge.
type Retention struct {
	cron   *cron.Cron
	store  Store
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRetention creates a purge job for s. A zero maxAge makes every run a
// no-op.
func NewRetention(s Store, maxAge time.Duration, logger *slog.Logger) *Retention {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	return &Retention{
		cron:   c,
		store:  s,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the purge with a standard cron spec or descriptor such as
// "@daily".
func (r *Retention) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("retention job scheduled",
		slog.String("schedule", schedule),
		slog.Duration("max_age", r.maxAge),
	)
	return nil
}

// Stop halts the scheduler; the returned context is done once a running
// purge finishes.
func (r *Retention) Stop() context.Context {
	return r.cron.Stop()
}

// RunNow purges stale conversions immediately.
func (r *Retention) RunNow(ctx context.Context) (int, error) {
	if r.maxAge <= 0 {
		return 0, nil
	}
	return r.store.PurgeBefore(ctx, r.now().Add(-r.maxAge))
}

func (r *Retention) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := r.RunNow(ctx)
	if err != nil {
		r.logger.Error("retention purge failed", slog.Any("error", err))
		return
	}
	r.logger.Info("retention purge completed", slog.Int("purged", n))
}
