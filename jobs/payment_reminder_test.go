package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkdesk/parkdesk/internal/invoices"
	"github.com/parkdesk/parkdesk/internal/permits"
)

type stubOverdue struct {
	rows []invoices.Invoice
	asOf time.Time
}

func (s *stubOverdue) ListOverdue(ctx context.Context, asOf time.Time) ([]invoices.Invoice, error) {
	s.asOf = asOf
	return s.rows, nil
}

type stubApplications struct {
	apps map[int64]*permits.Application
}

func (s *stubApplications) Get(ctx context.Context, id int64) (*permits.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, permits.ErrNotFound
	}
	return app, nil
}

type capturedMail struct {
	sent []SendEmailPayload
	err  error
}

func (c *capturedMail) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func reminderTask(t *testing.T, payload PaymentReminderPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TaskPaymentReminder, data)
}

func TestPaymentReminderQueuesOneMailPerOverdueInvoice(t *testing.T) {
	due := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	overdue := &stubOverdue{rows: []invoices.Invoice{
		{ID: 1, ApplicationID: 10, InvoiceNumber: "INV-202406-0001", Amount: 25, DueDate: &due},
		{ID: 2, ApplicationID: 11, InvoiceNumber: "INV-202406-0002", Amount: 40, DueDate: &due},
	}}
	apps := &stubApplications{apps: map[int64]*permits.Application{
		10: {ID: 10, Reference: "ref-10", EventTitle: "Company picnic"},
		11: {ID: 11, Reference: "ref-11", EventTitle: "Charity run"},
	}}
	mail := &capturedMail{}

	job := NewPaymentReminderJob(overdue, apps, mail, nil, nil, "permits@parkdesk.local")
	job.clock = func() time.Time {
		return time.Date(2024, time.July, 1, 8, 0, 0, 0, time.UTC)
	}

	err := job.Handle(context.Background(), reminderTask(t, PaymentReminderPayload{GraceHours: 72}))
	require.NoError(t, err)

	require.Len(t, mail.sent, 2)
	assert.Equal(t, "permits@parkdesk.local", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Subject, "INV-202406-0001")
	assert.Contains(t, mail.sent[0].Body, "ref-10")
	// Grace period shifts the cutoff back so freshly-due invoices wait.
	assert.Equal(t, time.Date(2024, time.June, 28, 8, 0, 0, 0, time.UTC), overdue.asOf)
}

func TestPaymentReminderSkipsOrphanedInvoices(t *testing.T) {
	overdue := &stubOverdue{rows: []invoices.Invoice{
		{ID: 1, ApplicationID: 99, InvoiceNumber: "INV-202406-0003", Amount: 25},
	}}
	mail := &capturedMail{}

	job := NewPaymentReminderJob(overdue, &stubApplications{}, mail, nil, nil, "permits@parkdesk.local")

	err := job.Handle(context.Background(), reminderTask(t, PaymentReminderPayload{}))
	require.NoError(t, err)
	assert.Empty(t, mail.sent)
}

func TestPaymentReminderPropagatesEnqueueFailure(t *testing.T) {
	overdue := &stubOverdue{rows: []invoices.Invoice{
		{ID: 1, ApplicationID: 10, InvoiceNumber: "INV-202406-0004", Amount: 25},
	}}
	apps := &stubApplications{apps: map[int64]*permits.Application{
		10: {ID: 10, Reference: "ref-10", EventTitle: "Company picnic"},
	}}
	mail := &capturedMail{err: errors.New("redis down")}

	job := NewPaymentReminderJob(overdue, apps, mail, nil, nil, "permits@parkdesk.local")

	err := job.Handle(context.Background(), reminderTask(t, PaymentReminderPayload{}))
	assert.Error(t, err)
}

func TestPaymentReminderRejectsMalformedPayload(t *testing.T) {
	job := NewPaymentReminderJob(&stubOverdue{}, &stubApplications{}, &capturedMail{}, nil, nil, "permits@parkdesk.local")

	err := job.Handle(context.Background(), asynq.NewTask(TaskPaymentReminder, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubWarmer struct {
	horizon int
	warmed  int
	err     error
}

func (s *stubWarmer) WarmupCalendars(ctx context.Context, horizonDays int) (int, error) {
	s.horizon = horizonDays
	return s.warmed, s.err
}

func TestCalendarWarmupPassesHorizon(t *testing.T) {
	warmer := &stubWarmer{warmed: 4}
	job := NewCalendarWarmupJob(warmer, nil, nil)

	data, err := json.Marshal(CalendarWarmupPayload{HorizonDays: 45})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskCalendarWarmup, data)))
	assert.Equal(t, 45, warmer.horizon)
}

func TestSendEmailJobFormatsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	job := NewSendEmailJob("127.0.0.1", 1025, "no-reply@parkdesk.local", nil)
	job.send = func(addr, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	data, err := json.Marshal(SendEmailPayload{
		To:      "permits@parkdesk.local",
		Subject: "Permit fee overdue",
		Body:    "Invoice INV-202406-0001 is unpaid.",
	})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, data)))
	assert.Equal(t, "127.0.0.1:1025", gotAddr)
	assert.Equal(t, "no-reply@parkdesk.local", gotFrom)
	assert.Equal(t, []string{"permits@parkdesk.local"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Permit fee overdue")
}

func TestSendEmailJobSkipsEmptyRecipient(t *testing.T) {
	job := NewSendEmailJob("127.0.0.1", 1025, "no-reply@parkdesk.local", nil)

	data, err := json.Marshal(SendEmailPayload{Subject: "x"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, data))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
