package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/parkdesk/parkdesk/internal/invoices"
	jobmetrics "github.com/parkdesk/parkdesk/internal/jobs"
	"github.com/parkdesk/parkdesk/internal/permits"
)

// OverdueInvoiceSource lists unpaid invoices past their due date.
type OverdueInvoiceSource interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]invoices.Invoice, error)
}

// ReminderApplicationSource resolves the application behind an invoice.
type ReminderApplicationSource interface {
	Get(ctx context.Context, id int64) (*permits.Application, error)
}

// MailEnqueuer queues outgoing reminder emails.
type MailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// PaymentReminderJob scans for invoice-pending applications whose permit-fee
// invoice is overdue and queues one reminder email per invoice to the permits
// office inbox. Applicants have no stored address; follow-up is a staff task.
type PaymentReminderJob struct {
	Invoices     OverdueInvoiceSource
	Applications ReminderApplicationSource
	Mail         MailEnqueuer
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	OfficeInbox  string
	clock        func() time.Time
}

// NewPaymentReminderJob initialises the reminder scan handler.
func NewPaymentReminderJob(invoiceSource OverdueInvoiceSource, applications ReminderApplicationSource, mail MailEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics, officeInbox string) *PaymentReminderJob {
	return &PaymentReminderJob{
		Invoices:     invoiceSource,
		Applications: applications,
		Mail:         mail,
		Logger:       logger,
		Metrics:      metrics,
		OfficeInbox:  officeInbox,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the reminder scan.
func (j *PaymentReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("payment reminder: handler not configured")
	}
	var payload PaymentReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.GraceHours < 0 {
		payload.GraceHours = 0
	}

	tracker := j.metrics().Track(TaskPaymentReminder)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	asOf := j.now().Add(-time.Duration(payload.GraceHours) * time.Hour)
	logger := j.logger().With(slog.Int("grace_hours", payload.GraceHours))
	logger.Info("starting payment reminder scan")

	overdue, err := j.Invoices.ListOverdue(ctx, asOf)
	if err != nil {
		resultErr = fmt.Errorf("list overdue invoices: %w", err)
		logger.Error("scan failed", slog.Any("error", resultErr))
		return resultErr
	}

	sent := 0
	for _, inv := range overdue {
		app, err := j.Applications.Get(ctx, inv.ApplicationID)
		if err != nil {
			logger.Warn("skip invoice with missing application",
				slog.Int64("invoice_id", inv.ID),
				slog.Int64("application_id", inv.ApplicationID),
				slog.Any("error", err))
			continue
		}
		if _, err := j.Mail.EnqueueSendEmail(ctx, j.reminderEmail(inv, app)); err != nil {
			resultErr = fmt.Errorf("enqueue reminder for invoice %d: %w", inv.ID, err)
			logger.Error("enqueue failed", slog.Any("error", resultErr))
			return resultErr
		}
		sent++
	}

	j.metrics().AddReminders(sent)
	logger.Info("payment reminder scan complete",
		slog.Int("overdue", len(overdue)),
		slog.Int("reminders", sent))
	return nil
}

func (j *PaymentReminderJob) reminderEmail(inv invoices.Invoice, app *permits.Application) SendEmailPayload {
	due := "unknown"
	if inv.DueDate != nil {
		due = inv.DueDate.Format("2006-01-02")
	}
	return SendEmailPayload{
		To:      j.OfficeInbox,
		Subject: fmt.Sprintf("Permit fee overdue: %s (%s)", app.EventTitle, inv.InvoiceNumber),
		Body: fmt.Sprintf(
			"Invoice %s for application %s (%q) is unpaid.\nAmount: %.2f\nDue: %s\n",
			inv.InvoiceNumber, app.Reference, app.EventTitle, inv.Amount, due),
	}
}

func (j *PaymentReminderJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *PaymentReminderJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

func (j *PaymentReminderJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
