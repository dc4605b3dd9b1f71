package parks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("park not found")

type Repository interface {
	ListParks(ctx context.Context) ([]Park, error)
	GetPark(ctx context.Context, id int64) (*Park, error)
	// ListLocations returns the park's locations with their blackout rules
	// attached, ready for conflict scans.
	ListLocations(ctx context.Context, parkID int64) ([]Location, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListParks(ctx context.Context) ([]Park, error) {
	const query = `SELECT id, name, region FROM parks ORDER BY name, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parks []Park
	for rows.Next() {
		var p Park
		if err := rows.Scan(&p.ID, &p.Name, &p.Region); err != nil {
			return nil, err
		}
		parks = append(parks, p)
	}
	return parks, rows.Err()
}

func (r *repository) GetPark(ctx context.Context, id int64) (*Park, error) {
	const query = `SELECT id, name, region FROM parks WHERE id = $1`
	var p Park
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Region); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	locations, err := r.ListLocations(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Locations = locations
	return &p, nil
}

func (r *repository) ListLocations(ctx context.Context, parkID int64) ([]Location, error) {
	const locationQuery = `
		SELECT l.id, l.park_id, p.name, l.name
		FROM park_locations l
		JOIN parks p ON p.id = l.park_id
		WHERE l.park_id = $1
		ORDER BY l.name, l.id`
	rows, err := r.pool.Query(ctx, locationQuery, parkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	index := make(map[int64]int)
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.ParkID, &loc.ParkName, &loc.Name); err != nil {
			return nil, err
		}
		index[loc.ID] = len(locations)
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, nil
	}

	const blackoutQuery = `
		SELECT b.id, b.location_id, b.start_date, b.end_date, b.reason
		FROM blackout_rules b
		JOIN park_locations l ON l.id = b.location_id
		WHERE l.park_id = $1
		ORDER BY b.start_date, b.id`
	ruleRows, err := r.pool.Query(ctx, blackoutQuery, parkID)
	if err != nil {
		return nil, err
	}
	defer ruleRows.Close()

	for ruleRows.Next() {
		var rule BlackoutRule
		if err := ruleRows.Scan(&rule.ID, &rule.LocationID, &rule.StartDate, &rule.EndDate, &rule.Reason); err != nil {
			return nil, err
		}
		if i, ok := index[rule.LocationID]; ok {
			locations[i].Blackouts = append(locations[i].Blackouts, rule)
		}
	}
	return locations, ruleRows.Err()
}
