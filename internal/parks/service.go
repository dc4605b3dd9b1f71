package parks

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

type Service struct {
	repo  Repository
	cache *Cache

	calendarGroup singleflight.Group
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) ListParks(ctx context.Context) ([]Park, error) {
	key, err := s.cache.BuildKey(ctx, keyParkList()...)
	if err != nil {
		return nil, err
	}
	var parks []Park
	err = s.cache.FetchJSON(ctx, key, &parks, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListParks(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list parks: %w", err)
	}
	return parks, nil
}

func (s *Service) GetPark(ctx context.Context, id int64) (*Park, error) {
	return s.repo.GetPark(ctx, id)
}

// DateConflicts checks one candidate date against every blackout rule of the
// park's locations. This is the approval-time availability check; it reads
// the repository directly so a just-added blackout is never missed behind a
// cached calendar.
func (s *Service) DateConflicts(ctx context.Context, parkID int64, date time.Time) ([]Conflict, error) {
	locations, err := s.repo.ListLocations(ctx, parkID)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	result, err := FindConflicts(date, locations)
	if err != nil {
		return nil, err
	}
	return result.Conflicts, nil
}

// CheckDate returns the full per-date verdict, conflicts and all.
func (s *Service) CheckDate(ctx context.Context, parkID int64, date time.Time) (*ConflictResult, error) {
	conflicts, err := s.DateConflicts(ctx, parkID, date)
	if err != nil {
		return nil, err
	}
	return &ConflictResult{Date: Day(date), Conflicts: conflicts}, nil
}

// MonthCalendar returns one ConflictResult per day of the given month.
// Results are cached under a versioned key and concurrent builds of the same
// month are collapsed with singleflight.
func (s *Service) MonthCalendar(ctx context.Context, parkID int64, year int, month time.Month) ([]ConflictResult, error) {
	monthToken := fmt.Sprintf("%04d-%02d", year, month)
	key, err := s.cache.BuildKey(ctx, keyCalendar(parkID, monthToken)...)
	if err != nil {
		return nil, err
	}

	value, err, _ := s.singleflightCalendar(ctx, key, func(ctx context.Context) (interface{}, error) {
		var results []ConflictResult
		err := s.cache.FetchJSON(ctx, key, &results, func(ctx context.Context) (interface{}, error) {
			return s.buildCalendar(ctx, parkID, year, month)
		})
		return results, err
	})
	if err != nil {
		return nil, fmt.Errorf("month calendar: %w", err)
	}
	return value.([]ConflictResult), nil
}

func (s *Service) singleflightCalendar(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := s.calendarGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

func (s *Service) buildCalendar(ctx context.Context, parkID int64, year int, month time.Month) ([]ConflictResult, error) {
	locations, err := s.repo.ListLocations(ctx, parkID)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)
	return FindConflictsForRange(first, last, locations)
}

// WarmupCalendars precomputes the calendars covering the next horizon days
// for every park. Run from the background worker so the first morning
// request does not pay the build cost.
func (s *Service) WarmupCalendars(ctx context.Context, horizonDays int) (int, error) {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	parks, err := s.repo.ListParks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list parks: %w", err)
	}

	months := monthsCovering(time.Now(), horizonDays)
	warmed := 0
	for _, p := range parks {
		for _, m := range months {
			if _, err := s.MonthCalendar(ctx, p.ID, m.Year(), m.Month()); err != nil {
				return warmed, fmt.Errorf("warm park %d month %s: %w", p.ID, m.Format("2006-01"), err)
			}
			warmed++
		}
	}
	return warmed, nil
}

// InvalidateCalendars drops all cached calendars after a blackout change.
func (s *Service) InvalidateCalendars(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func monthsCovering(from time.Time, days int) []time.Time {
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.Local)
	end := from.AddDate(0, 0, days)
	var months []time.Time
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}
