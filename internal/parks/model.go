package parks

import "time"

// Park is reference data owned by the parks registry; the availability
// checker only reads it.
type Park struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Region    string     `json:"region" db:"region"`
	Locations []Location `json:"locations,omitempty" db:"-"`
}

// Location is a named, bookable spot inside a park.
type Location struct {
	ID        int64          `json:"id" db:"id"`
	ParkID    int64          `json:"park_id" db:"park_id"`
	ParkName  string         `json:"park_name" db:"park_name"`
	Name      string         `json:"name" db:"name"`
	Blackouts []BlackoutRule `json:"blackouts,omitempty" db:"-"`
}

// BlackoutRule blocks a location for an inclusive date window. A rule without
// an end date covers only its start date.
type BlackoutRule struct {
	ID         int64      `json:"id" db:"id"`
	LocationID int64      `json:"location_id" db:"location_id"`
	StartDate  time.Time  `json:"start_date" db:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty" db:"end_date"`
	Reason     string     `json:"reason" db:"reason"`
}

// Conflict pairs a matched blackout reason with the owning park and location
// for display.
type Conflict struct {
	ParkName     string    `json:"park_name"`
	LocationName string    `json:"location_name"`
	Reason       string    `json:"reason"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// ConflictResult is the verdict for one candidate date: clear, or every
// blackout reason that covers it.
type ConflictResult struct {
	Date      time.Time  `json:"date"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Clear reports whether the date has no blackout conflicts.
func (r ConflictResult) Clear() bool {
	return len(r.Conflicts) == 0
}
