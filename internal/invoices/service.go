package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parkdesk/parkdesk/internal/shared"
)

var (
	ErrNotApproved         = errors.New("application must be approved before invoicing")
	ErrAmountMissing       = errors.New("invoice amount not set and application has no permit fee")
	ErrAlreadyPaid         = errors.New("invoice already paid")
	ErrApplicationNotFound = errors.New("application not found")
)

const idempotencyModule = "invoices.payment"

// ApplicationInfo is the minimal application view the invoicing flow needs.
type ApplicationInfo struct {
	ID        int64
	Status    string
	PermitFee float64
}

// ApplicationSource resolves applications without importing the permits
// package, and receives the permit-fee payment write-back once an invoice
// clears.
type ApplicationSource interface {
	ApplicationInfo(ctx context.Context, id int64) (ApplicationInfo, error)
	SetPermitFeeStatus(ctx context.Context, id int64, status string) error
}

// PermitFeePaid is the permit-fee payment status written back onto the
// application once its invoice is paid.
const PermitFeePaid = "paid"

// IdempotencyStore guards payment webhooks against replays.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo        Repository
	apps        ApplicationSource
	idempotency IdempotencyStore
	clock       func() time.Time
}

func NewService(repo Repository, apps ApplicationSource, idempotency IdempotencyStore) *Service {
	return &Service{
		repo:        repo,
		apps:        apps,
		idempotency: idempotency,
		clock:       time.Now,
	}
}

// Issue creates the permit-fee invoice for an approved application. At most
// one invoice exists per application.
func (s *Service) Issue(ctx context.Context, applicationID int64, req IssueInvoiceRequest) (*Invoice, error) {
	app, err := s.apps.ApplicationInfo(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("verify application: %w", err)
	}
	if strings.ToLower(strings.TrimSpace(app.Status)) != "approved" {
		return nil, ErrNotApproved
	}

	amount := app.PermitFee
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 {
		return nil, ErrAmountMissing
	}

	if existing, err := s.repo.GetByApplicationID(ctx, applicationID); err == nil {
		return existing, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	issuedAt := s.clock()
	dueDate := req.DueDate
	if dueDate == nil {
		d := issuedAt.AddDate(0, 0, 30)
		dueDate = &d
	}

	// The monthly sequence counts committed rows, so two concurrent issues
	// can draw the same number; the unique index rejects the loser and the
	// next attempt draws a fresh one.
	for attempt := 0; attempt < 3; attempt++ {
		number, err := s.repo.GenerateNumber(ctx, issuedAt)
		if err != nil {
			return nil, fmt.Errorf("generate invoice number: %w", err)
		}
		id, err := s.repo.Create(ctx, Invoice{
			ApplicationID: applicationID,
			InvoiceNumber: number,
			Amount:        amount,
			IssuedAt:      issuedAt,
			DueDate:       dueDate,
		})
		if errors.Is(err, ErrNumberTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create invoice: %w", err)
		}
		return s.repo.Get(ctx, id)
	}
	return nil, fmt.Errorf("create invoice: %w", ErrNumberTaken)
}

// RecordPayment records the payment outcome reported by the external payment
// processor. Replayed receipts are acknowledged without marking the invoice
// a second time.
func (s *Service) RecordPayment(ctx context.Context, id int64, req RecordPaymentRequest) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.IsPaid {
		// An earlier run can die between marking the invoice paid and the
		// application write-back; the replay re-runs the write-back before
		// acknowledging.
		if err := s.apps.SetPermitFeeStatus(ctx, inv.ApplicationID, PermitFeePaid); err != nil {
			return nil, fmt.Errorf("update application payment status: %w", err)
		}
		return inv, ErrAlreadyPaid
	}

	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, req.ReceiptID, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return inv, nil
			}
			return nil, err
		}
	}

	paidAt := s.clock()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	if err := s.repo.MarkPaid(ctx, id, paidAt, req.ReceiptID); err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, req.ReceiptID)
		}
		return nil, fmt.Errorf("mark invoice paid: %w", err)
	}
	if err := s.apps.SetPermitFeeStatus(ctx, inv.ApplicationID, PermitFeePaid); err != nil {
		return nil, fmt.Errorf("update application payment status: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByApplicationID(ctx context.Context, applicationID int64) (*Invoice, error) {
	return s.repo.GetByApplicationID(ctx, applicationID)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}
