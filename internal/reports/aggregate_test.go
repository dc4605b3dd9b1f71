package reports

import (
	"testing"
	"time"
)

func TestGroupByPreservesInsertionOrder(t *testing.T) {
	items := []struct{ status string }{
		{"approved"}, {"pending"}, {"approved"},
	}
	buckets := GroupBy(items, func(i struct{ status string }) string { return i.status })

	want := []Bucket{
		{Name: "approved", Value: 2},
		{Name: "pending", Value: 1},
	}
	if len(buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(buckets), len(want))
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d = %+v, want %+v", i, buckets[i], want[i])
		}
	}
}

func TestSumBy(t *testing.T) {
	type row struct {
		park   string
		amount float64
	}
	items := []row{
		{"Riverbend", 10},
		{"Lakeside", 5},
		{"Riverbend", 2.5},
	}
	buckets := SumBy(items,
		func(r row) string { return r.park },
		func(r row) float64 { return r.amount })

	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Name != "Riverbend" || buckets[0].Value != 12.5 {
		t.Fatalf("first bucket = %+v", buckets[0])
	}
	if buckets[1].Name != "Lakeside" || buckets[1].Value != 5 {
		t.Fatalf("second bucket = %+v", buckets[1])
	}
}

func TestMonthKey(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), "1/2024"},
		{time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), "12/2023"},
	}
	for _, tc := range cases {
		if got := MonthKey(tc.date); got != tc.want {
			t.Fatalf("MonthKey(%s) = %q, want %q", tc.date, got, tc.want)
		}
	}
}

func TestSortMonthBucketsAcrossYears(t *testing.T) {
	buckets := []Bucket{
		{Name: "1/2024", Value: 3},
		{Name: "12/2023", Value: 1},
		{Name: "2/2024", Value: 2},
	}
	SortMonthBuckets(buckets)

	wantOrder := []string{"12/2023", "1/2024", "2/2024"}
	for i, name := range wantOrder {
		if buckets[i].Name != name {
			t.Fatalf("position %d = %q, want %q", i, buckets[i].Name, name)
		}
	}
}
