package reports

import "time"

// DashboardView is the admin landing page payload.
type DashboardView struct {
	StatusBreakdown []Bucket        `json:"status_breakdown"`
	AwaitingReview  int             `json:"awaiting_review"`
	UpcomingEvents  []UpcomingEvent `json:"upcoming_events"`
	TotalCollected  float64         `json:"total_collected"`
}

// UpcomingEvent is one approved application in the near future.
type UpcomingEvent struct {
	ApplicationID int64     `json:"application_id"`
	Reference     string    `json:"reference"`
	EventTitle    string    `json:"event_title"`
	EventDate     time.Time `json:"event_date"`
	StatusLabel   string    `json:"status_label"`
}
