package permits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parkdesk/parkdesk/internal/invoices"
	"github.com/parkdesk/parkdesk/internal/parks"
	"github.com/parkdesk/parkdesk/internal/shared"
)

var (
	ErrInvalidStatus  = errors.New("invalid status transition")
	ErrFeeUnpaid      = errors.New("application fee not paid")
	ErrFeeAlreadyPaid = errors.New("application fee already recorded")
)

const idempotencyModule = "permits.application-fee"

// UnavailableDateError reports the blackout rules blocking an approval.
type UnavailableDateError struct {
	Date      time.Time
	Conflicts []parks.Conflict
}

func (e *UnavailableDateError) Error() string {
	return fmt.Sprintf("event date %s is blacked out by %d rule(s)", e.Date.Format("2006-01-02"), len(e.Conflicts))
}

// AvailabilityChecker is the slice of the parks service the approval flow
// needs.
type AvailabilityChecker interface {
	DateConflicts(ctx context.Context, parkID int64, date time.Time) ([]parks.Conflict, error)
}

// IdempotencyStore guards fee webhooks against replays.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo         Repository
	invoiceRepo  invoices.Repository
	availability AvailabilityChecker
	idempotency  IdempotencyStore
}

func NewService(repo Repository, invoiceRepo invoices.Repository, availability AvailabilityChecker, idempotency IdempotencyStore) *Service {
	return &Service{
		repo:         repo,
		invoiceRepo:  invoiceRepo,
		availability: availability,
		idempotency:  idempotency,
	}
}

// NewView derives the read model for one application. Derivation happens on
// every read; nothing here is cached or written back.
func NewView(app Application, inv *invoices.Invoice) ApplicationView {
	derived := Resolve(app, inv)
	return ApplicationView{
		Application:   app,
		DerivedStatus: derived,
		StatusLabel:   derived.Label(),
		PaidAmount:    PaidAmount(app),
		Invoice:       inv,
	}
}

func (s *Service) Create(ctx context.Context, req CreateApplicationRequest, createdBy int64) (*ApplicationView, error) {
	app := Application{
		Reference:        uuid.NewString(),
		Status:           ReviewPending,
		EventTitle:       req.EventTitle,
		EventDescription: req.EventDescription,
		EventDate:        req.EventDate,
		ParkID:           req.ParkID,
		LocationID:       req.LocationID,
		CreatedBy:        createdBy,
	}
	if req.ApplicationFee != nil {
		app.ApplicationFee = FeeOf(*req.ApplicationFee)
	}
	if req.PermitFee != nil {
		app.PermitFee = FeeOf(*req.PermitFee)
	}

	id, err := s.repo.Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return s.Get(ctx, id)
}

// Get returns the derived view for one application, joining the matching
// invoice when one has been issued.
func (s *Service) Get(ctx context.Context, id int64) (*ApplicationView, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inv, err := s.relatedInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewView(*app, inv)
	return &view, nil
}

// List returns derived views for a page of applications. When a derived
// status filter is set the raw rows are prefiltered by review status, joined
// with invoices, refined by the resolver, and paginated in memory, since
// derived status is never stored.
func (s *Service) List(ctx context.Context, req ListApplicationsRequest) ([]ApplicationView, shared.Pagination, error) {
	if req.DerivedStatus != nil {
		return s.listByDerived(ctx, req)
	}

	apps, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	views, err := s.buildViews(ctx, apps)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return views, shared.NewPagination(req.Page, req.PerPage, total), nil
}

// derivedScanPage bounds each repository read while the derived-status scan
// pages through every matching row.
const derivedScanPage = 1000

func (s *Service) listByDerived(ctx context.Context, req ListApplicationsRequest) ([]ApplicationView, shared.Pagination, error) {
	want := *req.DerivedStatus

	scan := req
	scan.DerivedStatus = nil
	scan.PerPage = derivedScanPage
	if raw, ok := rawStatusFor(want); ok {
		scan.Status = &raw
	}

	var apps []Application
	for page := 1; ; page++ {
		scan.Page = page
		batch, total, err := s.repo.List(ctx, scan)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		apps = append(apps, batch...)
		if len(batch) < derivedScanPage || len(apps) >= total {
			break
		}
	}
	views, err := s.buildViews(ctx, apps)
	if err != nil {
		return nil, shared.Pagination{}, err
	}

	var filtered []ApplicationView
	for _, v := range views {
		if v.DerivedStatus == want {
			filtered = append(filtered, v)
		}
	}

	p := shared.NewPagination(req.Page, req.PerPage, len(filtered))
	start := p.Offset()
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + p.PerPage
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], p, nil
}

// rawStatusFor maps a derived status back to the stored review status that
// can produce it, letting the repository narrow the scan.
func rawStatusFor(derived DerivedStatus) (string, bool) {
	switch derived {
	case StatusUnpaidPending, StatusAwaitingReview:
		return ReviewPending, true
	case StatusApproved, StatusInvoicePending, StatusPaidApproved:
		return ReviewApproved, true
	case StatusDisapproved:
		return ReviewDisapproved, true
	default:
		return "", false
	}
}

func (s *Service) buildViews(ctx context.Context, apps []Application) ([]ApplicationView, error) {
	ids := make([]int64, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	invMap, err := s.invoiceRepo.MapByApplicationIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("join invoices: %w", err)
	}

	views := make([]ApplicationView, 0, len(apps))
	for _, app := range apps {
		var inv *invoices.Invoice
		if found, ok := invMap[app.ID]; ok {
			invCopy := found
			inv = &invCopy
		}
		views = append(views, NewView(app, inv))
	}
	return views, nil
}

// Approve moves a pending, fee-paid application to approved. When the
// application targets a park and event date, the date is re-checked against
// the blackout calendar and a conflicting date refuses the approval.
func (s *Service) Approve(ctx context.Context, id, reviewedBy int64) (*ApplicationView, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if NormalizeStatus(app.Status) != ReviewPending {
		return nil, fmt.Errorf("%w: only pending applications can be approved", ErrInvalidStatus)
	}
	if !app.IsPaid {
		return nil, ErrFeeUnpaid
	}

	if s.availability != nil && app.EventDate != nil && app.ParkID != nil {
		conflicts, err := s.availability.DateConflicts(ctx, *app.ParkID, *app.EventDate)
		if err != nil {
			return nil, fmt.Errorf("check availability: %w", err)
		}
		if len(conflicts) > 0 {
			return nil, &UnavailableDateError{Date: *app.EventDate, Conflicts: conflicts}
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, ReviewApproved, reviewedBy, nil); err != nil {
		return nil, fmt.Errorf("approve application: %w", err)
	}
	return s.Get(ctx, id)
}

// Disapprove rejects a pending application. The state is terminal; payment
// state is irrelevant from here on.
func (s *Service) Disapprove(ctx context.Context, id, reviewedBy int64, reason string) (*ApplicationView, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if NormalizeStatus(app.Status) != ReviewPending {
		return nil, fmt.Errorf("%w: only pending applications can be disapproved", ErrInvalidStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, ReviewDisapproved, reviewedBy, &reason); err != nil {
		return nil, fmt.Errorf("disapprove application: %w", err)
	}
	return s.Get(ctx, id)
}

// RecordApplicationFee records the application-fee payment outcome reported
// by the external payment processor. Replayed receipts are acknowledged
// without a second write.
func (s *Service) RecordApplicationFee(ctx context.Context, id int64, req RecordApplicationFeeRequest) (*ApplicationView, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.IsPaid {
		return nil, ErrFeeAlreadyPaid
	}

	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, req.ReceiptID, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return s.Get(ctx, id)
			}
			return nil, err
		}
	}

	if err := s.repo.MarkApplicationFeePaid(ctx, id, req.Amount); err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, req.ReceiptID)
		}
		return nil, fmt.Errorf("record application fee: %w", err)
	}
	return s.Get(ctx, id)
}

// ApplicationInfo implements invoices.ApplicationSource.
func (s *Service) ApplicationInfo(ctx context.Context, id int64) (invoices.ApplicationInfo, error) {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invoices.ApplicationInfo{}, invoices.ErrApplicationNotFound
		}
		return invoices.ApplicationInfo{}, err
	}
	return invoices.ApplicationInfo{
		ID:        app.ID,
		Status:    app.Status,
		PermitFee: app.PermitFee.Amount,
	}, nil
}

// SetPermitFeeStatus implements invoices.ApplicationSource.
func (s *Service) SetPermitFeeStatus(ctx context.Context, id int64, status string) error {
	return s.repo.SetPermitFeeStatus(ctx, id, status)
}

func (s *Service) relatedInvoice(ctx context.Context, applicationID int64) (*invoices.Invoice, error) {
	inv, err := s.invoiceRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load related invoice: %w", err)
	}
	return inv, nil
}
