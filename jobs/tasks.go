package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeFollowUpScan walks open quotations and raises reminders.
	TaskTypeFollowUpScan = "followup:scan"
	// TaskTypeOrphanSweep re-runs entry cleanup for completed requests.
	TaskTypeOrphanSweep = "entries:orphan_sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewSendEmailHandler returns the TaskTypeSendEmail handler. Outbound mail
// stops at this boundary; delivery is whatever relay the deployment points
// the worker at, so the handler records the send and nothing else.
func NewSendEmailHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("send email",
			slog.String("to", payload.To),
			slog.String("subject", payload.Subject),
		)
		return nil
	}
}

// NewFollowUpScanTask constructs the periodic follow-up scan task.
func NewFollowUpScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeFollowUpScan, nil)
}

// NewOrphanSweepTask constructs the periodic orphan entry sweep task.
func NewOrphanSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOrphanSweep, nil)
}
