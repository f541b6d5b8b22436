package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/models"
)

// ActivityEntry captures a single user action to persist.
type ActivityEntry struct {
	UserID   *string
	Action   string
	Resource string
	Metadata map[string]any
}

// AdminEntry captures a privileged review decision to persist.
type AdminEntry struct {
	AdminID    string
	Action     string
	TargetType string
	TargetID   string
	Details    map[string]any
}

// ActivityFilters encapsulates optional filters when querying activity logs.
type ActivityFilters struct {
	UserID   string
	Action   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// ActivityListOptions controls pagination and filtering for activity queries.
type ActivityListOptions struct {
	Page     int
	PageSize int
	Filters  ActivityFilters
}

// ActivityService persists and retrieves activity and admin log entries. Both
// tables are append-only; the analytics rollups read from them.
type ActivityService struct {
	db *gorm.DB
}

// NewActivityService constructs an ActivityService using the provided database handle.
func NewActivityService(db *gorm.DB) (*ActivityService, error) {
	if db == nil {
		return nil, errors.New("activity service: db is required")
	}
	return &ActivityService{db: db}, nil
}

// Record stores an activity entry, marshalling metadata into JSON form.
func (s *ActivityService) Record(ctx context.Context, entry ActivityEntry) error {
	ctx = ensureContext(ctx)

	if trimmed(entry.Action) == "" {
		return errors.New("activity service: action is required")
	}

	payload := ""
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("activity service: marshal metadata: %w", err)
		}
		payload = string(encoded)
	}

	log := models.ActivityLog{
		Action:   trimmed(entry.Action),
		Resource: trimmed(entry.Resource),
		Metadata: payload,
	}

	if entry.UserID != nil && trimmed(*entry.UserID) != "" {
		id := trimmed(*entry.UserID)
		log.UserID = &id
	}

	return s.db.WithContext(ctx).Create(&log).Error
}

// RecordAdmin stores an admin log entry for a review decision.
func (s *ActivityService) RecordAdmin(ctx context.Context, entry AdminEntry) error {
	ctx = ensureContext(ctx)

	if trimmed(entry.AdminID) == "" {
		return errors.New("activity service: admin id is required")
	}
	if trimmed(entry.Action) == "" {
		return errors.New("activity service: action is required")
	}

	details := ""
	if entry.Details != nil {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("activity service: marshal details: %w", err)
		}
		details = string(encoded)
	}

	log := models.AdminLog{
		AdminID:    trimmed(entry.AdminID),
		Action:     trimmed(entry.Action),
		TargetType: trimmed(entry.TargetType),
		TargetID:   trimmed(entry.TargetID),
		Details:    details,
	}

	return s.db.WithContext(ctx).Create(&log).Error
}

// List returns paginated activity logs ordered by creation time descending.
func (s *ActivityService) List(ctx context.Context, opts ActivityListOptions) ([]models.ActivityLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.ActivityLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	query = applyActivityFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("activity service: count logs: %w", err)
	}

	if err := query.
		Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("activity service: list logs: %w", err)
	}

	return results, total, nil
}

// ListAdmin returns admin logs ordered by creation time descending.
func (s *ActivityService) ListAdmin(ctx context.Context, limit int) ([]models.AdminLog, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []models.AdminLog
	if err := s.db.WithContext(ctx).
		Preload("Admin").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("activity service: list admin logs: %w", err)
	}

	return logs, nil
}

// CleanupOlderThan removes activity logs older than the supplied retention window (in days).
func (s *ActivityService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("activity service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("activity service: cleanup logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func applyActivityFilters(query *gorm.DB, filters ActivityFilters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Resource != "" {
		query = query.Where("resource = ?", filters.Resource)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
