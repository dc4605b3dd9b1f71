package parks

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func datePtr(t time.Time) *time.Time { return &t }

func testLocations(rules ...BlackoutRule) []Location {
	return []Location{
		{ID: 1, ParkID: 1, ParkName: "Riverbend Park", Name: "North Meadow", Blackouts: rules},
	}
}

func TestFindConflictsInclusiveWindow(t *testing.T) {
	rule := BlackoutRule{
		StartDate: date(2024, time.July, 1),
		EndDate:   datePtr(date(2024, time.July, 3)),
		Reason:    "Turf restoration",
	}
	locations := testLocations(rule)

	cases := []struct {
		candidate time.Time
		conflicts int
	}{
		{date(2024, time.June, 30), 0},
		{date(2024, time.July, 1), 1},
		{date(2024, time.July, 2), 1},
		{date(2024, time.July, 3), 1},
		{date(2024, time.July, 4), 0},
	}
	for _, tc := range cases {
		result, err := FindConflicts(tc.candidate, locations)
		if err != nil {
			t.Fatalf("FindConflicts(%s): %v", tc.candidate.Format("2006-01-02"), err)
		}
		if len(result.Conflicts) != tc.conflicts {
			t.Fatalf("FindConflicts(%s) = %d conflicts, want %d",
				tc.candidate.Format("2006-01-02"), len(result.Conflicts), tc.conflicts)
		}
	}
}

func TestFindConflictsSingleDayRule(t *testing.T) {
	rule := BlackoutRule{StartDate: date(2024, time.July, 1), Reason: "Holiday closure"}
	locations := testLocations(rule)

	hit, err := FindConflicts(date(2024, time.July, 1), locations)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if hit.Clear() {
		t.Fatal("expected conflict on the rule's start date")
	}

	for _, candidate := range []time.Time{date(2024, time.June, 30), date(2024, time.July, 2)} {
		miss, err := FindConflicts(candidate, locations)
		if err != nil {
			t.Fatalf("FindConflicts: %v", err)
		}
		if !miss.Clear() {
			t.Fatalf("expected %s to be clear", candidate.Format("2006-01-02"))
		}
	}
}

func TestFindConflictsIgnoresTimeOfDay(t *testing.T) {
	rule := BlackoutRule{
		StartDate: time.Date(2024, time.July, 1, 14, 30, 0, 0, time.Local),
		Reason:    "Maintenance",
	}
	locations := testLocations(rule)

	candidate := time.Date(2024, time.July, 1, 8, 0, 0, 0, time.Local)
	result, err := FindConflicts(candidate, locations)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if result.Clear() {
		t.Fatal("expected conflict regardless of time-of-day components")
	}
	if !result.Date.Equal(Day(date(2024, time.July, 1))) {
		t.Fatalf("result date not normalized to midnight: %s", result.Date)
	}
}

func TestFindConflictsAcrossTimeZones(t *testing.T) {
	// Blackout dates scanned from the database come back as UTC midnights
	// while candidate dates carry the server's location. The same calendar
	// day must match no matter which location either side is in.
	sydney := time.FixedZone("AEST", 10*60*60)
	locations := testLocations(BlackoutRule{
		StartDate: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		Reason:    "Dredging",
	})

	// 08:00 AEST on July 1 is still June 30 as a UTC instant.
	hit, err := FindConflicts(time.Date(2024, time.July, 1, 8, 0, 0, 0, sydney), locations)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if hit.Clear() {
		t.Fatal("July 1 candidate in AEST not covered by July 1 UTC rule")
	}

	miss, err := FindConflicts(time.Date(2024, time.July, 2, 8, 0, 0, 0, sydney), locations)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if !miss.Clear() {
		t.Fatal("July 2 candidate in AEST must stay clear")
	}

	// Reverse direction: a rule recorded in a local zone against a UTC
	// candidate.
	reversed := testLocations(BlackoutRule{
		StartDate: time.Date(2024, time.July, 1, 23, 0, 0, 0, sydney),
		Reason:    "Dredging",
	})
	hit, err = FindConflicts(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), reversed)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if hit.Clear() {
		t.Fatal("July 1 UTC candidate not covered by July 1 AEST rule")
	}
}

func TestFindConflictsReportsAllOverlappingRules(t *testing.T) {
	locations := testLocations(
		BlackoutRule{StartDate: date(2024, time.July, 1), EndDate: datePtr(date(2024, time.July, 5)), Reason: "Turf restoration"},
		BlackoutRule{StartDate: date(2024, time.July, 3), Reason: "Staff event"},
	)

	result, err := FindConflicts(date(2024, time.July, 3), locations)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if len(result.Conflicts) != 2 {
		t.Fatalf("expected both overlapping rules reported, got %d", len(result.Conflicts))
	}
	reasons := map[string]bool{}
	for _, c := range result.Conflicts {
		reasons[c.Reason] = true
		if c.ParkName != "Riverbend Park" || c.LocationName != "North Meadow" {
			t.Fatalf("conflict missing owner names: %+v", c)
		}
	}
	if !reasons["Turf restoration"] || !reasons["Staff event"] {
		t.Fatalf("unexpected reasons: %v", reasons)
	}
}

func TestFindConflictsInvertedRuleFallsBackToSingleDay(t *testing.T) {
	// endDate < startDate is bad reference data; the rule degrades to a
	// single-day rule at startDate instead of failing the scan.
	rule := BlackoutRule{
		StartDate: date(2024, time.July, 10),
		EndDate:   datePtr(date(2024, time.July, 5)),
		Reason:    "Data entry error",
	}
	locations := testLocations(rule)

	hit, err := FindConflicts(date(2024, time.July, 10), locations)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if hit.Clear() {
		t.Fatal("expected conflict on start date")
	}

	miss, err := FindConflicts(date(2024, time.July, 7), locations)
	if err != nil {
		t.Fatalf("FindConflicts: %v", err)
	}
	if !miss.Clear() {
		t.Fatal("inverted window must not cover days between end and start")
	}
}

func TestFindConflictsZeroDateFailsFast(t *testing.T) {
	if _, err := FindConflicts(time.Time{}, testLocations()); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestFindConflictsForRangeEvaluatesEveryDay(t *testing.T) {
	locations := testLocations(
		BlackoutRule{StartDate: date(2024, time.July, 2), EndDate: datePtr(date(2024, time.July, 3)), Reason: "Turf restoration"},
	)

	results, err := FindConflictsForRange(date(2024, time.July, 1), date(2024, time.July, 4), locations)
	if err != nil {
		t.Fatalf("FindConflictsForRange: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 daily results, got %d", len(results))
	}
	wantClear := []bool{true, false, false, true}
	for i, res := range results {
		if res.Clear() != wantClear[i] {
			t.Fatalf("day %s: clear=%v, want %v", res.Date.Format("2006-01-02"), res.Clear(), wantClear[i])
		}
	}
}

func TestFindConflictsForRangeSingleDay(t *testing.T) {
	results, err := FindConflictsForRange(date(2024, time.July, 1), date(2024, time.July, 1), testLocations())
	if err != nil {
		t.Fatalf("FindConflictsForRange: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestFindConflictsForRangeInvertedRange(t *testing.T) {
	_, err := FindConflictsForRange(date(2024, time.July, 2), date(2024, time.July, 1), testLocations())
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
