package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

// SendEmailJob delivers queued transactional mail over plain SMTP. The
// endpoint is a local relay (Mailpit in development), so no auth or TLS.
type SendEmailJob struct {
	Addr   string
	From   string
	Logger *slog.Logger

	// send is swapped in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewSendEmailJob initialises the mail handler against an SMTP relay.
func NewSendEmailJob(host string, port int, from string, logger *slog.Logger) *SendEmailJob {
	return &SendEmailJob{
		Addr:   fmt.Sprintf("%s:%d", host, port),
		From:   from,
		Logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		j.From, payload.To, payload.Subject, payload.Body))
	if err := j.send(j.Addr, j.From, []string{payload.To}, msg); err != nil {
		j.logger().Error("send email",
			slog.String("to", payload.To),
			slog.Any("error", err))
		return fmt.Errorf("send email to %s: %w", payload.To, err)
	}

	j.logger().Info("email sent",
		slog.String("to", payload.To),
		slog.String("subject", payload.Subject))
	return nil
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
