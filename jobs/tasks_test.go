package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmailHandlerLogsRecipient(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := NewSendEmailHandler(logger)

	task, err := NewSendEmailTask(SendEmailPayload{
		To:      "sales@salesops.local",
		Subject: "Pengingat follow-up penawaran",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	assert.Contains(t, buf.String(), "sales@salesops.local")
	assert.Contains(t, buf.String(), "Pengingat follow-up penawaran")
}

func TestSendEmailHandlerSkipsRetryOnBadPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewSendEmailHandler(logger)

	err := handler(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
