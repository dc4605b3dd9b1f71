package invoices

import "time"

type IssueInvoiceRequest struct {
	Amount  *float64   `json:"amount,omitempty" validate:"omitempty,gt=0"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

type RecordPaymentRequest struct {
	ReceiptID string     `json:"receipt_id" validate:"required,uuid4"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

type ListInvoicesRequest struct {
	ApplicationID *int64     `json:"application_id,omitempty"`
	Paid          *bool      `json:"paid,omitempty"`
	IssuedFrom    *time.Time `json:"issued_from,omitempty"`
	IssuedTo      *time.Time `json:"issued_to,omitempty"`
	PaidFrom      *time.Time `json:"paid_from,omitempty"`
	PaidTo        *time.Time `json:"paid_to,omitempty"`
	Limit         int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset        int        `json:"offset" validate:"gte=0"`
}
