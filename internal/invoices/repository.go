package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("invoice not found")
	ErrDuplicate   = errors.New("invoice already exists for application")
	ErrNumberTaken = errors.New("invoice number already used")
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByApplicationID(ctx context.Context, applicationID int64) (*Invoice, error)
	MapByApplicationIDs(ctx context.Context, applicationIDs []int64) (map[int64]Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time, paymentRef string) error
	GenerateNumber(ctx context.Context, issuedAt time.Time) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, application_id, invoice_number, amount, is_paid, issued_at, due_date, paid_at, payment_ref, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID,
		&inv.ApplicationID,
		&inv.InvoiceNumber,
		&inv.Amount,
		&inv.IsPaid,
		&inv.IssuedAt,
		&inv.DueDate,
		&inv.PaidAt,
		&inv.PaymentRef,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns)
	return scanInvoice(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetByApplicationID(ctx context.Context, applicationID int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE application_id = $1`, invoiceColumns)
	return scanInvoice(r.pool.QueryRow(ctx, query, applicationID))
}

func (r *repository) MapByApplicationIDs(ctx context.Context, applicationIDs []int64) (map[int64]Invoice, error) {
	result := make(map[int64]Invoice, len(applicationIDs))
	if len(applicationIDs) == 0 {
		return result, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE application_id = ANY($1)`, invoiceColumns)
	rows, err := r.pool.Query(ctx, query, applicationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result[inv.ApplicationID] = *inv
	}
	return result, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.ApplicationID != nil {
		conditions = append(conditions, fmt.Sprintf("application_id = $%d", argPos))
		args = append(args, *req.ApplicationID)
		argPos++
	}
	if req.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("is_paid = $%d", argPos))
		args = append(args, *req.Paid)
		argPos++
	}
	if req.IssuedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("issued_at >= $%d", argPos))
		args = append(args, *req.IssuedFrom)
		argPos++
	}
	if req.IssuedTo != nil {
		conditions = append(conditions, fmt.Sprintf("issued_at <= $%d", argPos))
		args = append(args, *req.IssuedTo)
		argPos++
	}
	if req.PaidFrom != nil {
		conditions = append(conditions, fmt.Sprintf("paid_at >= $%d", argPos))
		args = append(args, *req.PaidFrom)
		argPos++
	}
	if req.PaidTo != nil {
		conditions = append(conditions, fmt.Sprintf("paid_at <= $%d", argPos))
		args = append(args, *req.PaidTo)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices%s ORDER BY issued_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *inv)
	}
	return result, total, rows.Err()
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE is_paid = false AND due_date IS NOT NULL AND due_date < $1 ORDER BY due_date`, invoiceColumns)
	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}
	return result, rows.Err()
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	const query = `
		INSERT INTO invoices (application_id, invoice_number, amount, is_paid, issued_at, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, false, $4, $5, NOW(), NOW())
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, inv.ApplicationID, inv.InvoiceNumber, inv.Amount, inv.IssuedAt, inv.DueDate).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "invoice_number") {
				return 0, ErrNumberTaken
			}
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) MarkPaid(ctx context.Context, id int64, paidAt time.Time, paymentRef string) error {
	const query = `
		UPDATE invoices
		SET is_paid = true, paid_at = $2, payment_ref = $3, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, paidAt, paymentRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GenerateNumber(ctx context.Context, issuedAt time.Time) (string, error) {
	const query = `SELECT COUNT(*) + 1 FROM invoices WHERE date_trunc('month', issued_at) = date_trunc('month', $1::timestamptz)`
	var seq int64
	if err := r.pool.QueryRow(ctx, query, issuedAt).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s-%04d", issuedAt.Format("200601"), seq), nil
}
