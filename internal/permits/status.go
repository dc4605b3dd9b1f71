package permits

import (
	"strings"

	"github.com/parkdesk/parkdesk/internal/invoices"
)

// DerivedStatus is the single user-facing status derived from the raw review
// status, the application-fee flag, and the invoice payment state. It is a
// pure function of its inputs and is never persisted or cached.
type DerivedStatus string

const (
	StatusUnpaidPending  DerivedStatus = "unpaid-pending"
	StatusAwaitingReview DerivedStatus = "awaiting-review"
	StatusApproved       DerivedStatus = "approved"
	StatusDisapproved    DerivedStatus = "disapproved"
	StatusPaidApproved   DerivedStatus = "paid-approved"
	StatusInvoicePending DerivedStatus = "invoice-pending"
	StatusUnknown        DerivedStatus = "unknown"
)

// PermitFeePaid is the value the invoicing subsystem writes into
// permitFeePaymentStatus once the permit fee clears.
const PermitFeePaid = "paid"

// NormalizeStatus lowercases and trims a raw status value.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// Resolve maps an application and its related invoice (nil when none has been
// issued) to one canonical status. Precedence, first match wins:
//
//  1. unrecognized raw status -> unknown
//  2. approved: paid invoice -> paid-approved; unpaid invoice ->
//     invoice-pending; no invoice -> approved
//  3. disapproved -> disapproved, regardless of payment state
//  4. pending: application fee paid -> awaiting-review, else unpaid-pending
//
// The invoice is authoritative for the approved/unpaid distinction; the
// caller supplies the one matching invoice.ApplicationID == app.ID.
func Resolve(app Application, inv *invoices.Invoice) DerivedStatus {
	switch NormalizeStatus(app.Status) {
	case ReviewApproved:
		switch {
		case inv != nil && inv.IsPaid:
			return StatusPaidApproved
		case inv != nil:
			return StatusInvoicePending
		default:
			return StatusApproved
		}
	case ReviewDisapproved:
		// Terminal. A rejected application's payment state is not actionable.
		return StatusDisapproved
	case ReviewPending:
		if app.IsPaid {
			return StatusAwaitingReview
		}
		return StatusUnpaidPending
	default:
		return StatusUnknown
	}
}

// PaidAmount totals the fees actually collected for an application: the
// application fee once flagged paid plus the permit fee once the invoicing
// subsystem reports it paid. Missing or unparsable fee values count as zero.
func PaidAmount(app Application) float64 {
	var total float64
	if app.IsPaid {
		total += app.ApplicationFee.Amount
	}
	if app.PermitFeePaymentStatus != nil && NormalizeStatus(*app.PermitFeePaymentStatus) == PermitFeePaid {
		total += app.PermitFee.Amount
	}
	return total
}

// Label returns the display name used by list views and the calendar.
func (s DerivedStatus) Label() string {
	switch s {
	case StatusUnpaidPending:
		return "Pending (Unpaid)"
	case StatusAwaitingReview:
		return "Awaiting Review"
	case StatusApproved:
		return "Approved"
	case StatusDisapproved:
		return "Disapproved"
	case StatusPaidApproved:
		return "Paid & Approved"
	case StatusInvoicePending:
		return "Invoice Pending"
	default:
		return "Unknown"
	}
}

// CardLabel returns the dashboard-card wording. The cards historically call
// the awaiting-review state "Waiting on Approval"; both labels name the same
// state.
func (s DerivedStatus) CardLabel() string {
	if s == StatusAwaitingReview {
		return "Waiting on Approval"
	}
	return s.Label()
}

// Recognized reports whether the raw status is one of the three review
// statuses the engine understands.
func Recognized(status string) bool {
	switch NormalizeStatus(status) {
	case ReviewPending, ReviewApproved, ReviewDisapproved:
		return true
	default:
		return false
	}
}
