package parks

import (
	"errors"
	"time"
)

// ErrInvalidDate flags a zero or unparsable candidate date. Unlike malformed
// blackout data, which degrades silently, a bad candidate date is a contract
// violation by the caller and fails fast.
var ErrInvalidDate = errors.New("parks: invalid candidate date")

// ErrInvalidRange flags a range scan whose end precedes its start.
var ErrInvalidRange = errors.New("parks: range end precedes start")

// Day truncates a timestamp to midnight UTC, keeping only its calendar-day
// components. Rules scanned from the database and candidate dates built on
// the server can arrive in different locations; all blackout comparisons
// happen on the calendar day, never on the instant.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// window returns the inclusive [start, end] day window covered by a rule.
// A missing end date means a single-day rule; an end date before the start
// date is bad reference data and falls back to a single-day rule rather than
// failing the scan.
func (r BlackoutRule) window() (time.Time, time.Time) {
	start := Day(r.StartDate)
	if r.EndDate == nil {
		return start, start
	}
	end := Day(*r.EndDate)
	if end.Before(start) {
		return start, start
	}
	return start, end
}

// Covers reports whether the rule blacks out the given day.
func (r BlackoutRule) Covers(day time.Time) bool {
	start, end := r.window()
	day = Day(day)
	return !day.Before(start) && !day.After(end)
}

// FindConflicts checks one candidate date against every blackout rule of
// every supplied location. All matching rules are reported, not just the
// first: a date can be blacked out for several reasons at once.
func FindConflicts(candidate time.Time, locations []Location) (ConflictResult, error) {
	if candidate.IsZero() {
		return ConflictResult{}, ErrInvalidDate
	}
	day := Day(candidate)
	result := ConflictResult{Date: day}
	for _, loc := range locations {
		for _, rule := range loc.Blackouts {
			if !rule.Covers(day) {
				continue
			}
			start, end := rule.window()
			result.Conflicts = append(result.Conflicts, Conflict{
				ParkName:     loc.ParkName,
				LocationName: loc.Name,
				Reason:       rule.Reason,
				StartDate:    start,
				EndDate:      end,
			})
		}
	}
	return result, nil
}

// FindConflictsForRange evaluates every day in the inclusive [start, end]
// interval with its own FindConflicts call. Calendar cells are rendered per
// day with independent reasons, so no coalesced range-intersection shortcut
// is taken.
func FindConflictsForRange(start, end time.Time, locations []Location) ([]ConflictResult, error) {
	if start.IsZero() || end.IsZero() {
		return nil, ErrInvalidDate
	}
	first := Day(start)
	last := Day(end)
	if last.Before(first) {
		return nil, ErrInvalidRange
	}

	var results []ConflictResult
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		res, err := FindConflicts(day, locations)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
