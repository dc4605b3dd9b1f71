package permits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("application not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*Application, error)
	List(ctx context.Context, req ListApplicationsRequest) ([]Application, int, error)
	Create(ctx context.Context, app Application) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string, reviewedBy int64, note *string) error
	MarkApplicationFeePaid(ctx context.Context, id int64, amount *float64) error
	SetPermitFeeStatus(ctx context.Context, id int64, status string) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const applicationColumns = `id, reference, status, is_paid, application_fee, permit_fee, permit_fee_payment_status,
	event_date, event_title, event_description, park_id, location_id,
	reviewed_by, reviewed_at, review_note, created_by, created_at, updated_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var (
		app       Application
		appFee    *float64
		permitFee *float64
	)
	err := row.Scan(
		&app.ID,
		&app.Reference,
		&app.Status,
		&app.IsPaid,
		&appFee,
		&permitFee,
		&app.PermitFeePaymentStatus,
		&app.EventDate,
		&app.EventTitle,
		&app.EventDescription,
		&app.ParkID,
		&app.LocationID,
		&app.ReviewedBy,
		&app.ReviewedAt,
		&app.ReviewNote,
		&app.CreatedBy,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if appFee != nil {
		app.ApplicationFee = FeeOf(*appFee)
	}
	if permitFee != nil {
		app.PermitFee = FeeOf(*permitFee)
	}
	return &app, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	return scanApplication(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) List(ctx context.Context, req ListApplicationsRequest) ([]Application, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("LOWER(status) = $%d", argPos))
		args = append(args, NormalizeStatus(*req.Status))
		argPos++
	}
	if req.ParkID != nil {
		conditions = append(conditions, fmt.Sprintf("park_id = $%d", argPos))
		args = append(args, *req.ParkID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("event_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("event_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM applications"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM applications%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		applicationColumns, where, argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *app)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, app Application) (int64, error) {
	const query = `
		INSERT INTO applications
			(reference, status, is_paid, application_fee, permit_fee, event_date, event_title, event_description,
			 park_id, location_id, created_by, created_at, updated_at)
		VALUES ($1, $2, false, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		app.Reference,
		app.Status,
		feeParam(app.ApplicationFee),
		feeParam(app.PermitFee),
		app.EventDate,
		app.EventTitle,
		app.EventDescription,
		app.ParkID,
		app.LocationID,
		app.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status string, reviewedBy int64, note *string) error {
	const query = `
		UPDATE applications
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status, reviewedBy, time.Now(), note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkApplicationFeePaid(ctx context.Context, id int64, amount *float64) error {
	const query = `
		UPDATE applications
		SET is_paid = true, application_fee = COALESCE($2, application_fee), updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetPermitFeeStatus(ctx context.Context, id int64, status string) error {
	const query = `
		UPDATE applications
		SET permit_fee_payment_status = $2, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func feeParam(fee Fee) *float64 {
	if !fee.Valid {
		return nil
	}
	amount := fee.Amount
	return &amount
}
