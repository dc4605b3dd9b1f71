package permits

import "time"

type CreateApplicationRequest struct {
	EventTitle       string     `json:"event_title" validate:"required,max=200"`
	EventDescription string     `json:"event_description,omitempty" validate:"max=2000"`
	EventDate        *time.Time `json:"event_date,omitempty"`
	ParkID           *int64     `json:"park_id,omitempty" validate:"omitempty,gt=0"`
	LocationID       *int64     `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	ApplicationFee   *float64   `json:"application_fee,omitempty" validate:"omitempty,gte=0"`
	PermitFee        *float64   `json:"permit_fee,omitempty" validate:"omitempty,gte=0"`
}

type DisapproveApplicationRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RecordApplicationFeeRequest struct {
	ReceiptID string   `json:"receipt_id" validate:"required,uuid4"`
	Amount    *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

type ListApplicationsRequest struct {
	Status        *string        `json:"status,omitempty"`
	DerivedStatus *DerivedStatus `json:"derived_status,omitempty"`
	ParkID        *int64         `json:"park_id,omitempty"`
	DateFrom      *time.Time     `json:"date_from,omitempty"`
	DateTo        *time.Time     `json:"date_to,omitempty"`
	Page          int            `json:"page" validate:"gte=0"`
	PerPage       int            `json:"per_page" validate:"gte=0,lte=1000"`
}
