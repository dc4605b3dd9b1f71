package invoices

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkdesk/parkdesk/internal/shared"
)

type mockRepository struct {
	invoices map[int64]*Invoice
	nextID   int64

	markPaidErr error
	numberTaken int
	numberSeq   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{invoices: make(map[int64]*Invoice), nextID: 1}
}

func (m *mockRepository) seed(inv Invoice) int64 {
	id := m.nextID
	m.nextID++
	inv.ID = id
	m.invoices[id] = &inv
	return id
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *mockRepository) GetByApplicationID(ctx context.Context, applicationID int64) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.ApplicationID == applicationID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) MapByApplicationIDs(ctx context.Context, ids []int64) (map[int64]Invoice, error) {
	result := make(map[int64]Invoice)
	for _, inv := range m.invoices {
		for _, id := range ids {
			if inv.ApplicationID == id {
				result[id] = *inv
			}
		}
	}
	return result, nil
}

func (m *mockRepository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var result []Invoice
	for id := int64(1); id < m.nextID; id++ {
		if inv, ok := m.invoices[id]; ok {
			result = append(result, *inv)
		}
	}
	return result, len(result), nil
}

func (m *mockRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	var result []Invoice
	for id := int64(1); id < m.nextID; id++ {
		inv, ok := m.invoices[id]
		if !ok || inv.IsPaid || inv.DueDate == nil {
			continue
		}
		if inv.DueDate.Before(asOf) {
			result = append(result, *inv)
		}
	}
	return result, nil
}

func (m *mockRepository) Create(ctx context.Context, inv Invoice) (int64, error) {
	if m.numberTaken > 0 {
		m.numberTaken--
		return 0, ErrNumberTaken
	}
	return m.seed(inv), nil
}

func (m *mockRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time, paymentRef string) error {
	if m.markPaidErr != nil {
		return m.markPaidErr
	}
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.IsPaid = true
	inv.PaidAt = &paidAt
	inv.PaymentRef = &paymentRef
	return nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, issuedAt time.Time) (string, error) {
	m.numberSeq++
	return fmt.Sprintf("INV-%s-%04d", issuedAt.Format("200601"), m.numberSeq), nil
}

type stubApplications struct {
	infos         map[int64]ApplicationInfo
	feeStatus     map[int64]string
	writeBacks    int
	feeStatusErrs int
}

func newStubApplications() *stubApplications {
	return &stubApplications{
		infos:     make(map[int64]ApplicationInfo),
		feeStatus: make(map[int64]string),
	}
}

func (s *stubApplications) ApplicationInfo(ctx context.Context, id int64) (ApplicationInfo, error) {
	info, ok := s.infos[id]
	if !ok {
		return ApplicationInfo{}, ErrApplicationNotFound
	}
	return info, nil
}

func (s *stubApplications) SetPermitFeeStatus(ctx context.Context, id int64, status string) error {
	if s.feeStatusErrs > 0 {
		s.feeStatusErrs--
		return errors.New("connection reset")
	}
	s.feeStatus[id] = status
	s.writeBacks++
	return nil
}

type stubIdempotency struct {
	seen    map[string]bool
	deleted []string
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{seen: make(map[string]bool)}
}

func (s *stubIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if s.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	s.seen[key] = true
	return nil
}

func (s *stubIdempotency) Delete(ctx context.Context, key string) error {
	delete(s.seen, key)
	s.deleted = append(s.deleted, key)
	return nil
}

const receiptID = "5f0c9c62-4ea5-4a79-9f6d-1f1d54b0f0aa"

func TestIssueForApprovedApplication(t *testing.T) {
	repo := newMockRepository()
	apps := newStubApplications()
	apps.infos[10] = ApplicationInfo{ID: 10, Status: "Approved", PermitFee: 25}

	svc := NewService(repo, apps, newStubIdempotency())
	svc.clock = func() time.Time {
		return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	}

	inv, err := svc.Issue(context.Background(), 10, IssueInvoiceRequest{})
	require.NoError(t, err)

	assert.Equal(t, int64(10), inv.ApplicationID)
	assert.Equal(t, 25.0, inv.Amount)
	assert.Equal(t, "INV-202406-0001", inv.InvoiceNumber)
	assert.False(t, inv.IsPaid)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC), *inv.DueDate)
}

func TestIssueOverridesAmount(t *testing.T) {
	repo := newMockRepository()
	apps := newStubApplications()
	apps.infos[10] = ApplicationInfo{ID: 10, Status: "approved", PermitFee: 25}

	svc := NewService(repo, apps, newStubIdempotency())

	amount := 99.5
	inv, err := svc.Issue(context.Background(), 10, IssueInvoiceRequest{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, 99.5, inv.Amount)
}

func TestIssueRejectsUnapproved(t *testing.T) {
	apps := newStubApplications()
	apps.infos[10] = ApplicationInfo{ID: 10, Status: "pending", PermitFee: 25}

	svc := NewService(newMockRepository(), apps, newStubIdempotency())

	_, err := svc.Issue(context.Background(), 10, IssueInvoiceRequest{})
	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestIssueRequiresAnAmount(t *testing.T) {
	apps := newStubApplications()
	apps.infos[10] = ApplicationInfo{ID: 10, Status: "approved"}

	svc := NewService(newMockRepository(), apps, newStubIdempotency())

	_, err := svc.Issue(context.Background(), 10, IssueInvoiceRequest{})
	assert.ErrorIs(t, err, ErrAmountMissing)
}

func TestIssueReturnsExistingOnDuplicate(t *testing.T) {
	repo := newMockRepository()
	existing := repo.seed(Invoice{ApplicationID: 10, InvoiceNumber: "INV-202405-0001", Amount: 25})
	apps := newStubApplications()
	apps.infos[10] = ApplicationInfo{ID: 10, Status: "approved", PermitFee: 25}

	svc := NewService(repo, apps, newStubIdempotency())

	inv, err := svc.Issue(context.Background(), 10, IssueInvoiceRequest{})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NotNil(t, inv)
	assert.Equal(t, existing, inv.ID)
}

func TestIssueRetriesWhenNumberTaken(t *testing.T) {
	repo := newMockRepository()
	repo.numberTaken = 1
	apps := newStubApplications()
	apps.infos[10] = ApplicationInfo{ID: 10, Status: "approved", PermitFee: 25}

	svc := NewService(repo, apps, newStubIdempotency())
	svc.clock = func() time.Time {
		return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	}

	inv, err := svc.Issue(context.Background(), 10, IssueInvoiceRequest{})
	require.NoError(t, err)
	// A concurrent issue claimed 0001; the retry drew the next number.
	assert.Equal(t, "INV-202406-0002", inv.InvoiceNumber)
}

func TestIssueGivesUpAfterRepeatedNumberCollisions(t *testing.T) {
	repo := newMockRepository()
	repo.numberTaken = 3
	apps := newStubApplications()
	apps.infos[10] = ApplicationInfo{ID: 10, Status: "approved", PermitFee: 25}

	svc := NewService(repo, apps, newStubIdempotency())

	_, err := svc.Issue(context.Background(), 10, IssueInvoiceRequest{})
	assert.ErrorIs(t, err, ErrNumberTaken)
}

func TestIssueUnknownApplication(t *testing.T) {
	svc := NewService(newMockRepository(), newStubApplications(), newStubIdempotency())

	_, err := svc.Issue(context.Background(), 404, IssueInvoiceRequest{})
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestRecordPaymentMarksPaidAndWritesBack(t *testing.T) {
	repo := newMockRepository()
	id := repo.seed(Invoice{ApplicationID: 10, InvoiceNumber: "INV-202406-0001", Amount: 25})
	apps := newStubApplications()

	svc := NewService(repo, apps, newStubIdempotency())

	inv, err := svc.RecordPayment(context.Background(), id, RecordPaymentRequest{ReceiptID: receiptID})
	require.NoError(t, err)

	assert.True(t, inv.IsPaid)
	require.NotNil(t, inv.PaymentRef)
	assert.Equal(t, receiptID, *inv.PaymentRef)
	assert.Equal(t, PermitFeePaid, apps.feeStatus[10])
}

func TestRecordPaymentReplayedReceiptIsAcknowledged(t *testing.T) {
	repo := newMockRepository()
	id := repo.seed(Invoice{ApplicationID: 10, Amount: 25})
	apps := newStubApplications()
	idempotency := newStubIdempotency()
	idempotency.seen[receiptID] = true

	svc := NewService(repo, apps, idempotency)

	inv, err := svc.RecordPayment(context.Background(), id, RecordPaymentRequest{ReceiptID: receiptID})
	require.NoError(t, err)
	assert.False(t, inv.IsPaid)
	assert.Zero(t, apps.writeBacks)
}

func TestRecordPaymentAlreadyPaid(t *testing.T) {
	repo := newMockRepository()
	id := repo.seed(Invoice{ApplicationID: 10, Amount: 25, IsPaid: true})

	svc := NewService(repo, newStubApplications(), newStubIdempotency())

	inv, err := svc.RecordPayment(context.Background(), id, RecordPaymentRequest{ReceiptID: receiptID})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	require.NotNil(t, inv)
}

func TestRecordPaymentReplayRepairsLostWriteBack(t *testing.T) {
	repo := newMockRepository()
	id := repo.seed(Invoice{ApplicationID: 10, Amount: 25})
	apps := newStubApplications()
	apps.feeStatusErrs = 1

	svc := NewService(repo, apps, newStubIdempotency())

	// First delivery marks the invoice paid but loses the application
	// write-back.
	_, err := svc.RecordPayment(context.Background(), id, RecordPaymentRequest{ReceiptID: receiptID})
	require.Error(t, err)
	assert.Empty(t, apps.feeStatus)

	// The processor retries; the replay repairs the application.
	inv, err := svc.RecordPayment(context.Background(), id, RecordPaymentRequest{ReceiptID: receiptID})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	require.NotNil(t, inv)
	assert.True(t, inv.IsPaid)
	assert.Equal(t, PermitFeePaid, apps.feeStatus[10])
}

func TestRecordPaymentRollsBackKeyOnFailure(t *testing.T) {
	repo := newMockRepository()
	id := repo.seed(Invoice{ApplicationID: 10, Amount: 25})
	repo.markPaidErr = errors.New("connection reset")
	idempotency := newStubIdempotency()

	svc := NewService(repo, newStubApplications(), idempotency)

	_, err := svc.RecordPayment(context.Background(), id, RecordPaymentRequest{ReceiptID: receiptID})
	require.Error(t, err)
	// The receipt can be retried after the transient failure.
	assert.Contains(t, idempotency.deleted, receiptID)
	assert.False(t, idempotency.seen[receiptID])
}
