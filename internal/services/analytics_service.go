package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/analytics"
	"github.com/internhq/internhub/internal/models"
)

const defaultTrendMonths = 6

// AnalyticsOverview bundles the headline counters for the admin dashboard.
type AnalyticsOverview struct {
	TotalStudents      int64 `json:"total_students"`
	TotalCompanies     int64 `json:"total_companies"`
	TotalInternships   int64 `json:"total_internships"`
	TotalApplications  int64 `json:"total_applications"`
	PendingUsers       int64 `json:"pending_users"`
	PendingInternships int64 `json:"pending_internships"`
}

// AnalyticsReport is the full admin rollup: counters, distributions, trends,
// and review throughput in a single payload.
type AnalyticsReport struct {
	Overview             AnalyticsOverview       `json:"overview"`
	RoleDistribution     []analytics.LabelCount  `json:"role_distribution"`
	ApplicationsByStatus []analytics.LabelCount  `json:"applications_by_status"`
	TopFields            []analytics.LabelCount  `json:"top_fields"`
	SignupTrend          []analytics.TrendBucket `json:"signup_trend"`
	ApplicationTrend     []analytics.TrendBucket `json:"application_trend"`
	ApprovalRatePercent  int                     `json:"approval_rate_percent"`
	AverageReviewHours   float64                 `json:"average_review_hours"`
}

// AnalyticsService computes admin dashboard rollups. Queries pull the raw
// rows; all bucketing and rate math lives in the analytics package so it can
// be tested without a database.
type AnalyticsService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService using the provided database handle.
func NewAnalyticsService(db *gorm.DB) (*AnalyticsService, error) {
	if db == nil {
		return nil, errors.New("analytics service: db is required")
	}
	return &AnalyticsService{db: db, now: time.Now}, nil
}

// Report assembles the complete dashboard payload.
func (s *AnalyticsService) Report(ctx context.Context, trendMonths int) (*AnalyticsReport, error) {
	ctx = ensureContext(ctx)

	if trendMonths <= 0 {
		trendMonths = defaultTrendMonths
	}

	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}

	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("analytics service: load profiles: %w", err)
	}

	var internships []models.Internship
	if err := s.db.WithContext(ctx).Find(&internships).Error; err != nil {
		return nil, fmt.Errorf("analytics service: load internships: %w", err)
	}

	var applications []models.Application
	if err := s.db.WithContext(ctx).Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("analytics service: load applications: %w", err)
	}

	now := s.now()

	report := &AnalyticsReport{
		Overview: *overview,
		RoleDistribution: analytics.DistributionBy(profiles, func(p models.Profile) string {
			return p.Role
		}),
		ApplicationsByStatus: analytics.DistributionBy(applications, func(a models.Application) string {
			return a.Status
		}),
		TopFields: analytics.TopN(analytics.DistributionBy(internships, func(i models.Internship) string {
			return i.Field
		}), 5),
		SignupTrend: analytics.MonthlyTrend(profiles, func(p models.Profile) time.Time {
			return p.CreatedAt
		}, trendMonths, now),
		ApplicationTrend: analytics.MonthlyTrend(applications, func(a models.Application) time.Time {
			return a.CreatedAt
		}, trendMonths, now),
	}

	report.ApprovalRatePercent = approvalRate(internships)
	report.AverageReviewHours = averageReviewHours(internships)

	return report, nil
}

// Overview returns the headline counters without the heavier trend queries.
func (s *AnalyticsService) Overview(ctx context.Context) (*AnalyticsOverview, error) {
	ctx = ensureContext(ctx)

	overview := &AnalyticsOverview{}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&overview.TotalStudents, s.db.WithContext(ctx).Model(&models.Profile{}).Where("role = ?", models.RoleStudent)},
		{&overview.TotalCompanies, s.db.WithContext(ctx).Model(&models.Profile{}).Where("role = ?", models.RoleSoftwareHouse)},
		{&overview.TotalInternships, s.db.WithContext(ctx).Model(&models.Internship{})},
		{&overview.TotalApplications, s.db.WithContext(ctx).Model(&models.Application{})},
		{&overview.PendingUsers, s.db.WithContext(ctx).Model(&models.Profile{}).Where("status = ?", models.StatusPending)},
		{&overview.PendingInternships, s.db.WithContext(ctx).Model(&models.Internship{}).Where("status = ?", models.StatusPending)},
	}

	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("analytics service: count rows: %w", err)
		}
	}

	return overview, nil
}

// approvalRate is the share of reviewed internships that were approved.
// Unreviewed postings do not count against either side.
func approvalRate(internships []models.Internship) int {
	approved := 0
	reviewed := 0
	for _, i := range internships {
		switch i.Status {
		case models.StatusApproved:
			approved++
			reviewed++
		case models.StatusRejected:
			reviewed++
		}
	}
	return analytics.Rate(approved, reviewed)
}

// averageReviewHours measures submission-to-decision latency over the
// internships that have been reviewed.
func averageReviewHours(internships []models.Internship) float64 {
	spans := make([]analytics.Span, 0, len(internships))
	for _, i := range internships {
		if i.ReviewedAt == nil {
			continue
		}
		spans = append(spans, analytics.Span{Start: i.CreatedAt, End: *i.ReviewedAt})
	}
	return analytics.AverageDurationHours(spans)
}
