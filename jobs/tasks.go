package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskPaymentReminder scans for overdue permit-fee invoices.
	TaskPaymentReminder = "permits:payment-reminder"
	// TaskCalendarWarmup precomputes park availability calendars.
	TaskCalendarWarmup = "parks:calendar-warmup"
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

// PaymentReminderPayload bounds the overdue-invoice scan.
type PaymentReminderPayload struct {
	// GraceHours delays reminders until an invoice is this far past due.
	GraceHours int `json:"grace_hours"`
}

// NewPaymentReminderTask constructs the reminder scan task.
func NewPaymentReminderTask(payload PaymentReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReminder, data), nil
}

// CalendarWarmupPayload configures how far ahead calendars are precomputed.
type CalendarWarmupPayload struct {
	HorizonDays int `json:"horizon_days"`
}

// NewCalendarWarmupTask constructs the calendar warmup task.
func NewCalendarWarmupTask(payload CalendarWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCalendarWarmup, data), nil
}
