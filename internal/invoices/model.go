package invoices

import "time"

// Invoice is the permit-fee invoice issued for an approved application.
// Payment capture happens in the external payment processor; this record
// only tracks the reported outcome.
type Invoice struct {
	ID            int64      `json:"id" db:"id"`
	ApplicationID int64      `json:"application_id" db:"application_id"`
	InvoiceNumber string     `json:"invoice_number" db:"invoice_number"`
	Amount        float64    `json:"amount" db:"amount"`
	IsPaid        bool       `json:"is_paid" db:"is_paid"`
	IssuedAt      time.Time  `json:"issued_at" db:"issued_at"`
	DueDate       *time.Time `json:"due_date,omitempty" db:"due_date"`
	PaidAt        *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	PaymentRef    *string    `json:"payment_ref,omitempty" db:"payment_ref"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
