// Package analytics provides the pure aggregation helpers behind the admin
// dashboard rollups: dense monthly trends, label distributions, percentage
// rates, and duration averages.
package analytics

import (
	"math"
	"time"
)

// TrendBucket is one calendar month in a trend series.
type TrendBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LabelCount is one entry of a distribution, ordered by first encounter.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Span is a start/end timestamp pair, e.g. submission to review decision.
type Span struct {
	Start time.Time
	End   time.Time
}

const trendLabelFormat = "Jan 2006"

// MonthlyTrend buckets rows into windowMonths consecutive calendar months
// ending at now's month. Output is dense: months without rows appear with a
// zero count so charts render a continuous axis. Rows outside the window are
// excluded.
func MonthlyTrend[T any](rows []T, dateFn func(T) time.Time, windowMonths int, now time.Time) []TrendBucket {
	if windowMonths <= 0 {
		return nil
	}

	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	buckets := make([]TrendBucket, windowMonths)
	index := make(map[string]int, windowMonths)
	for i := 0; i < windowMonths; i++ {
		month := currentMonth.AddDate(0, i-windowMonths+1, 0)
		key := month.Format("2006-01")
		buckets[i] = TrendBucket{Label: month.Format(trendLabelFormat)}
		index[key] = i
	}

	for _, row := range rows {
		ts := dateFn(row)
		if ts.IsZero() {
			continue
		}
		if i, ok := index[ts.Format("2006-01")]; ok {
			buckets[i].Count++
		}
	}

	return buckets
}

// DistributionBy groups rows by key and counts them. Ordering is stable:
// labels appear in first-encountered row order, so top-N slices break ties
// deterministically.
func DistributionBy[T any](rows []T, keyFn func(T) string) []LabelCount {
	counts := make(map[string]int, len(rows))
	order := make([]string, 0, len(rows))

	for _, row := range rows {
		key := keyFn(row)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	out := make([]LabelCount, 0, len(order))
	for _, label := range order {
		out = append(out, LabelCount{Label: label, Count: counts[label]})
	}
	return out
}

// TopN returns the n largest entries of a distribution. Equal counts keep
// their first-encountered order.
func TopN(dist []LabelCount, n int) []LabelCount {
	if n <= 0 {
		return nil
	}

	// Stable selection over a copy; inputs are small (role/action labels).
	sorted := make([]LabelCount, len(dist))
	copy(sorted, dist)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Count > sorted[j-1].Count; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Rate returns the integer percentage numerator/denominator, rounded to the
// nearest whole percent. A zero denominator yields 0, never a division error.
func Rate(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(float64(numerator) / float64(denominator) * 100))
}

// AverageDurationHours averages end-start across the given spans, in hours.
// Spans with end at or before start are data errors and are skipped rather
// than clamped; including them would corrupt the average. An empty or
// fully-skipped input returns 0.
func AverageDurationHours(spans []Span) float64 {
	var total time.Duration
	var counted int

	for _, span := range spans {
		if !span.End.After(span.Start) {
			continue
		}
		total += span.End.Sub(span.Start)
		counted++
	}

	if counted == 0 {
		return 0
	}
	return total.Hours() / float64(counted)
}
