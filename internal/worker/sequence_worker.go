package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/repository"
)

// SequenceResetWorker restarts the daily ticket sequence at midnight so
// ticket codes stay unique per day. On start it catches up a reset that
// was missed while the process was down.
type SequenceResetWorker struct {
	settings repository.SettingsRepository
	logger   *zap.Logger
}

// NewSequenceResetWorker creates a sequence reset worker.
func NewSequenceResetWorker(settings repository.SettingsRepository, logger *zap.Logger) *SequenceResetWorker {
	return &SequenceResetWorker{settings: settings, logger: logger}
}

// Run resets at every local midnight until the context is cancelled.
func (w *SequenceResetWorker) Run(ctx context.Context) {
	w.catchUp(ctx)

	for {
		now := time.Now()
		next := midnightAfter(now)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.reset(ctx)
		}
	}
}

// catchUp resets immediately when the last recorded reset is from an
// earlier day.
func (w *SequenceResetWorker) catchUp(ctx context.Context) {
	settings, err := w.settings.Get(ctx)
	if err != nil {
		w.logger.Error("sequence reset: load settings failed", zap.Error(err))
		return
	}
	if settings.LastResetDate != nil && sameDay(*settings.LastResetDate, time.Now()) {
		return
	}
	w.reset(ctx)
}

func (w *SequenceResetWorker) reset(ctx context.Context) {
	now := time.Now()
	if err := w.settings.ResetTicketSequence(ctx, now); err != nil {
		w.logger.Error("ticket sequence reset failed", zap.Error(err))
		return
	}
	w.logger.Info("ticket sequence reset", zap.Time("at", now))
}

func midnightAfter(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).Add(24 * time.Hour)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
