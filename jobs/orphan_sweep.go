package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/salesops-erp/salesops-erp/internal/jobs"
)

// CompletionSource lists completed requests and prunes their never-linked
// balance entries.
type CompletionSource interface {
	ListCompletedRequests(ctx context.Context) ([]int64, error)
	DeleteUnlinkedEntries(ctx context.Context, requestID int64) (int64, error)
}

// OrphanSweeper re-runs entry cleanup for completed requests. Completion and
// cleanup are separate writes, so a crash between the two can leave orphan
// entries behind; the sweep makes the cascade eventually consistent.
type OrphanSweeper struct {
	source  CompletionSource
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewOrphanSweeper constructs the sweeper.
func NewOrphanSweeper(source CompletionSource, metrics *jobmetrics.Metrics, logger *slog.Logger) *OrphanSweeper {
	return &OrphanSweeper{source: source, metrics: metrics, logger: logger}
}

// Handle processes TaskTypeOrphanSweep tasks.
func (s *OrphanSweeper) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := s.metrics.Track("orphan_sweep")
	return tracker.End(s.sweep(ctx))
}

func (s *OrphanSweeper) sweep(ctx context.Context) error {
	requests, err := s.source.ListCompletedRequests(ctx)
	if err != nil {
		return fmt.Errorf("list completed requests: %w", err)
	}

	var total int64
	for _, requestID := range requests {
		pruned, err := s.source.DeleteUnlinkedEntries(ctx, requestID)
		if err != nil {
			return fmt.Errorf("sweep request %d: %w", requestID, err)
		}
		if pruned > 0 {
			s.logger.Info("orphan entries pruned", slog.Int64("request", requestID), slog.Int64("pruned", pruned))
		}
		total += pruned
	}

	s.logger.Info("orphan sweep done", slog.Int("requests", len(requests)), slog.Int64("pruned", total))
	return nil
}
