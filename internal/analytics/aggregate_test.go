package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stamped struct {
	at time.Time
}

func TestMonthlyTrendEmptyInputIsDense(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	trend := MonthlyTrend(nil, func(s stamped) time.Time { return s.at }, 6, now)

	require.Len(t, trend, 6)
	wantLabels := []string{"Mar 2026", "Apr 2026", "May 2026", "Jun 2026", "Jul 2026", "Aug 2026"}
	for i, bucket := range trend {
		require.Equal(t, wantLabels[i], bucket.Label)
		require.Zero(t, bucket.Count)
	}
}

func TestMonthlyTrendBucketsAndExcludesOutOfWindow(t *testing.T) {
	now := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	rows := []stamped{
		{at: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{at: time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC)},
		{at: time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)},
		{at: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)},  // before window
		{at: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)}, // after window
		{},
	}

	trend := MonthlyTrend(rows, func(s stamped) time.Time { return s.at }, 6, now)

	byLabel := map[string]int{}
	total := 0
	for _, bucket := range trend {
		byLabel[bucket.Label] = bucket.Count
		total += bucket.Count
	}

	require.Equal(t, 2, byLabel["Aug 2026"])
	require.Equal(t, 1, byLabel["Jun 2026"])
	require.Equal(t, 0, byLabel["Mar 2026"])
	require.Equal(t, 3, total, "out-of-window and zero-time rows must be excluded")
}

func TestDistributionByStableOrder(t *testing.T) {
	rows := []string{"student", "software_house", "student", "admin", "software_house", "student"}

	dist := DistributionBy(rows, func(s string) string { return s })

	require.Equal(t, []LabelCount{
		{Label: "student", Count: 3},
		{Label: "software_house", Count: 2},
		{Label: "admin", Count: 1},
	}, dist)
}

func TestTopNBreaksTiesByFirstEncounter(t *testing.T) {
	dist := []LabelCount{
		{Label: "login", Count: 2},
		{Label: "apply", Count: 5},
		{Label: "update_profile", Count: 2},
		{Label: "post_internship", Count: 1},
	}

	top := TopN(dist, 3)

	require.Equal(t, []LabelCount{
		{Label: "apply", Count: 5},
		{Label: "login", Count: 2},
		{Label: "update_profile", Count: 2},
	}, top)

	require.Nil(t, TopN(dist, 0))
	require.Len(t, TopN(dist, 10), 4)
}

func TestRate(t *testing.T) {
	require.Equal(t, 0, Rate(0, 0))
	require.Equal(t, 0, Rate(5, 0))
	require.Equal(t, 50, Rate(1, 2))
	require.Equal(t, 33, Rate(1, 3))
	require.Equal(t, 67, Rate(2, 3))
	require.Equal(t, 100, Rate(7, 7))
}

func TestAverageDurationHoursSkipsNonPositiveSpans(t *testing.T) {
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	require.Zero(t, AverageDurationHours(nil))
	require.Zero(t, AverageDurationHours([]Span{{Start: t0, End: t0}}))
	require.Zero(t, AverageDurationHours([]Span{{Start: t0.Add(time.Hour), End: t0}}))

	avg := AverageDurationHours([]Span{
		{Start: t0, End: t0.Add(2 * time.Hour)},
		{Start: t0, End: t0.Add(4 * time.Hour)},
		{Start: t0, End: t0}, // skipped, not averaged as zero
	})
	require.InDelta(t, 3.0, avg, 1e-9)
}
