package reports

import (
	"fmt"
	"sort"
	"time"
)

// Bucket is one chart segment: a key and its count or sum.
type Bucket struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// GroupBy counts items per key. Buckets come back in first-seen insertion
// order, not sorted; chart legends rely on that order being stable.
func GroupBy[T any](items []T, keyFn func(T) string) []Bucket {
	var buckets []Bucket
	index := make(map[string]int)
	for _, item := range items {
		key := keyFn(item)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Name: key})
		}
		buckets[i].Value++
	}
	return buckets
}

// SumBy sums amounts per key with the same first-seen ordering as GroupBy.
func SumBy[T any](items []T, keyFn func(T) string, amountFn func(T) float64) []Bucket {
	var buckets []Bucket
	index := make(map[string]int)
	for _, item := range items {
		key := keyFn(item)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Name: key})
		}
		buckets[i].Value += amountFn(item)
	}
	return buckets
}

// MonthKey renders the month bucket key, no leading zero on the month.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Year())
}

// SortMonthBuckets orders "M/YYYY" buckets chronologically by (year, month).
// Month buckets are the one aggregation where insertion order is wrong for
// display: invoices arrive out of order across year boundaries.
func SortMonthBuckets(buckets []Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		yi, mi := parseMonthKey(buckets[i].Name)
		yj, mj := parseMonthKey(buckets[j].Name)
		if yi != yj {
			return yi < yj
		}
		return mi < mj
	})
}

func parseMonthKey(key string) (year, month int) {
	if _, err := fmt.Sscanf(key, "%d/%d", &month, &year); err != nil {
		return 0, 0
	}
	return year, month
}
