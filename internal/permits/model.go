package permits

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/parkdesk/parkdesk/internal/invoices"
)

// Raw review statuses as stored on the application record.
const (
	ReviewPending     = "pending"
	ReviewApproved    = "approved"
	ReviewDisapproved = "disapproved"
)

// Application is one submitted special-use permit request.
type Application struct {
	ID                     int64      `json:"id" db:"id"`
	Reference              string     `json:"reference" db:"reference"`
	Status                 string     `json:"status" db:"status"`
	IsPaid                 bool       `json:"is_paid" db:"is_paid"`
	ApplicationFee         Fee        `json:"application_fee" db:"application_fee"`
	PermitFee              Fee        `json:"permit_fee" db:"permit_fee"`
	PermitFeePaymentStatus *string    `json:"permit_fee_payment_status,omitempty" db:"permit_fee_payment_status"`
	EventDate              *time.Time `json:"event_date,omitempty" db:"event_date"`
	EventTitle             string     `json:"event_title" db:"event_title"`
	EventDescription       string     `json:"event_description" db:"event_description"`
	ParkID                 *int64     `json:"park_id,omitempty" db:"park_id"`
	LocationID             *int64     `json:"location_id,omitempty" db:"location_id"`
	ReviewedBy             *int64     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt             *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewNote             *string    `json:"review_note,omitempty" db:"review_note"`
	CreatedBy              int64      `json:"created_by" db:"created_by"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// ApplicationView is the derived record handed to rendering surfaces. It is
// recomputed on every read and never written back.
type ApplicationView struct {
	Application
	DerivedStatus DerivedStatus     `json:"derived_status"`
	StatusLabel   string            `json:"status_label"`
	PaidAmount    float64           `json:"paid_amount"`
	Invoice       *invoices.Invoice `json:"invoice,omitempty"`
}

// Fee is a decimal fee amount tolerant of the loose encodings legacy records
// carry: JSON numbers, numeric strings, or null. Anything unparsable decodes
// as zero rather than failing the record.
type Fee struct {
	Amount float64
	Valid  bool
}

// FeeOf wraps a known amount.
func FeeOf(amount float64) Fee {
	return Fee{Amount: amount, Valid: true}
}

func (f *Fee) UnmarshalJSON(data []byte) error {
	f.Amount = 0
	f.Valid = false

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var num float64
	if err := json.Unmarshal(trimmed, &num); err == nil {
		f.Amount = num
		f.Valid = true
		return nil
	}

	var str string
	if err := json.Unmarshal(trimmed, &str); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			f.Amount = parsed
			f.Valid = true
		}
		return nil
	}

	// Unexpected shape: default to zero instead of failing the whole record.
	return nil
}

func (f Fee) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Amount)
}
