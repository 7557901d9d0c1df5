package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldkit/dispatch-service/internal/service"
)

// EscalationWorker drives the periodic escalation sweep. The sweep runs
// concurrently with ordinary transitions and tolerates a view of ticket
// state that lags by up to one interval.
type EscalationWorker struct {
	escalations *service.EscalationService
	interval    time.Duration
	logger      *zap.Logger
}

// NewEscalationWorker constructs the worker.
func NewEscalationWorker(escalations *service.EscalationService, interval time.Duration, logger *zap.Logger) *EscalationWorker {
	return &EscalationWorker{
		escalations: escalations,
		interval:    interval,
		logger:      logger,
	}
}

// Run blocks until the context is cancelled, sweeping on each tick.
func (w *EscalationWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("escalation sweep worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("escalation sweep worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.escalations.RunSweep(ctx, time.Now()); err != nil {
				w.logger.Error("escalation sweep failed", zap.Error(err))
			}
		}
	}
}
