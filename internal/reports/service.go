package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/parkdesk/parkdesk/internal/invoices"
	"github.com/parkdesk/parkdesk/internal/parks"
	"github.com/parkdesk/parkdesk/internal/permits"
)

const (
	scanLimit     = 1000
	upcomingLimit = 5
)

// ApplicationSource is the slice of the permits repository reporting reads.
type ApplicationSource interface {
	List(ctx context.Context, req permits.ListApplicationsRequest) ([]permits.Application, int, error)
}

// InvoiceSource is the slice of the invoices repository reporting reads.
type InvoiceSource interface {
	MapByApplicationIDs(ctx context.Context, ids []int64) (map[int64]invoices.Invoice, error)
	List(ctx context.Context, req invoices.ListInvoicesRequest) ([]invoices.Invoice, int, error)
}

// ParkSource resolves park ids to display names.
type ParkSource interface {
	ListParks(ctx context.Context) ([]parks.Park, error)
}

type Service struct {
	applications ApplicationSource
	invoiceRepo  InvoiceSource
	parkRepo     ParkSource
	now          func() time.Time
}

func NewService(applications ApplicationSource, invoiceRepo InvoiceSource, parkRepo ParkSource) *Service {
	return &Service{
		applications: applications,
		invoiceRepo:  invoiceRepo,
		parkRepo:     parkRepo,
		now:          time.Now,
	}
}

// Dashboard builds the landing-page summary: a status breakdown over the
// derived status of every application, the awaiting-review card count, the
// next few approved events, and total fees collected.
func (s *Service) Dashboard(ctx context.Context) (*DashboardView, error) {
	views, err := s.loadViews(ctx)
	if err != nil {
		return nil, err
	}

	breakdown := GroupBy(views, func(v permits.ApplicationView) string {
		return v.StatusLabel
	})

	awaiting := 0
	var collected float64
	var upcoming []UpcomingEvent
	today := parks.Day(s.now())
	for _, v := range views {
		if v.DerivedStatus == permits.StatusAwaitingReview {
			awaiting++
		}
		collected += v.PaidAmount
		if permits.NormalizeStatus(v.Status) != permits.ReviewApproved {
			continue
		}
		if v.EventDate == nil || parks.Day(*v.EventDate).Before(today) {
			continue
		}
		upcoming = append(upcoming, UpcomingEvent{
			ApplicationID: v.ID,
			Reference:     v.Reference,
			EventTitle:    v.EventTitle,
			EventDate:     *v.EventDate,
			StatusLabel:   v.DerivedStatus.CardLabel(),
		})
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].EventDate.Before(upcoming[j].EventDate)
	})
	if len(upcoming) > upcomingLimit {
		upcoming = upcoming[:upcomingLimit]
	}

	return &DashboardView{
		StatusBreakdown: breakdown,
		AwaitingReview:  awaiting,
		UpcomingEvents:  upcoming,
		TotalCollected:  collected,
	}, nil
}

// Revenue buckets collected invoice amounts by the month they were paid,
// for one calendar year, sorted chronologically. Filter and bucket both use
// the payment date, so an invoice issued in one year and paid in the next
// counts once, in the year the money arrived.
func (s *Service) Revenue(ctx context.Context, year int) ([]Bucket, error) {
	paid := true
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.Local)
	rows, _, err := s.invoiceRepo.List(ctx, invoices.ListInvoicesRequest{
		Paid:     &paid,
		PaidFrom: &from,
		PaidTo:   &to,
		Limit:    scanLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list paid invoices: %w", err)
	}

	buckets := SumBy(rows,
		func(inv invoices.Invoice) string {
			if inv.PaidAt != nil {
				return MonthKey(*inv.PaidAt)
			}
			return MonthKey(inv.IssuedAt)
		},
		func(inv invoices.Invoice) float64 { return inv.Amount })
	SortMonthBuckets(buckets)
	return buckets, nil
}

// ParkBreakdown counts applications per park, first-seen order.
func (s *Service) ParkBreakdown(ctx context.Context) ([]Bucket, error) {
	apps, _, err := s.applications.List(ctx, permits.ListApplicationsRequest{Page: 1, PerPage: scanLimit})
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	allParks, err := s.parkRepo.ListParks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list parks: %w", err)
	}
	names := make(map[int64]string, len(allParks))
	for _, p := range allParks {
		names[p.ID] = p.Name
	}

	return GroupBy(apps, func(app permits.Application) string {
		if app.ParkID == nil {
			return "Unassigned"
		}
		if name, ok := names[*app.ParkID]; ok {
			return name
		}
		return fmt.Sprintf("Park %d", *app.ParkID)
	}), nil
}

func (s *Service) loadViews(ctx context.Context) ([]permits.ApplicationView, error) {
	apps, _, err := s.applications.List(ctx, permits.ListApplicationsRequest{Page: 1, PerPage: scanLimit})
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	ids := make([]int64, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	invMap, err := s.invoiceRepo.MapByApplicationIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("join invoices: %w", err)
	}

	views := make([]permits.ApplicationView, 0, len(apps))
	for _, app := range apps {
		var inv *invoices.Invoice
		if found, ok := invMap[app.ID]; ok {
			invCopy := found
			inv = &invCopy
		}
		views = append(views, permits.NewView(app, inv))
	}
	return views, nil
}
