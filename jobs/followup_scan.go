package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/salesops-erp/salesops-erp/internal/jobs"
	"github.com/salesops-erp/salesops-erp/internal/workflow"
)

// QuotationSource is the slice of the workflow repository the scan needs.
type QuotationSource interface {
	ListOpenQuotations(ctx context.Context) ([]workflow.Quotation, error)
}

// FollowUpScanner walks open quotations and enqueues a reminder email for
// every quotation whose follow-up backlog reached at least one week.
type FollowUpScanner struct {
	source   QuotationSource
	client   *Client
	metrics  *jobmetrics.Metrics
	logger   *slog.Logger
	reminder string
	now      func() time.Time
}

// NewFollowUpScanner constructs the scanner. Client may be nil, in which
// case reminders are only logged.
func NewFollowUpScanner(source QuotationSource, client *Client, metrics *jobmetrics.Metrics, logger *slog.Logger, reminderAddr string) *FollowUpScanner {
	return &FollowUpScanner{
		source:   source,
		client:   client,
		metrics:  metrics,
		logger:   logger,
		reminder: reminderAddr,
		now:      time.Now,
	}
}

// Handle processes TaskTypeFollowUpScan tasks.
func (s *FollowUpScanner) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := s.metrics.Track("followup_scan")
	return tracker.End(s.scan(ctx))
}

func (s *FollowUpScanner) scan(ctx context.Context) error {
	quotations, err := s.source.ListOpenQuotations(ctx)
	if err != nil {
		return fmt.Errorf("list open quotations: %w", err)
	}

	now := s.now()
	flagged := 0
	for _, q := range quotations {
		weeks := workflow.BacklogWeeks(q.CreatedAt, q.LastFollowUpAt, now)
		if weeks < 1 {
			continue
		}
		flagged++
		s.metrics.AddBacklogged(weeks, 1)
		s.logger.Info("quotation follow-up overdue",
			slog.Int64("quotation", q.ID),
			slog.String("number", q.Number),
			slog.Int("backlog_weeks", weeks),
		)
		if s.client == nil || s.reminder == "" {
			continue
		}
		payload := SendEmailPayload{
			To:      s.reminder,
			Subject: fmt.Sprintf("Follow-up penawaran %s tertunda %d minggu", q.Number, weeks),
			Body:    fmt.Sprintf("Penawaran %s belum di-follow-up sejak %d minggu.", q.Number, weeks),
		}
		if _, err := s.client.EnqueueSendEmail(ctx, payload); err != nil {
			s.logger.Warn("enqueue reminder", slog.Int64("quotation", q.ID), slog.Any("error", err))
		}
	}

	s.logger.Info("follow-up scan done", slog.Int("open", len(quotations)), slog.Int("flagged", flagged))
	return nil
}
