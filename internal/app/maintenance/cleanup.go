package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/models"
	"github.com/internhq/internhub/internal/services"
	"github.com/internhq/internhub/pkg/logger"
)

const (
	defaultNotificationRetentionDays = 90
	defaultActivityRetentionDays     = 180
	defaultSchedule                  = "@daily"
)

// Cleaner coordinates background maintenance: pruning aged read notifications
// and enforcing the activity log retention window.
type Cleaner struct {
	db       *gorm.DB
	activity *services.ActivityService
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger

	schedule              string
	notificationRetention int
	activityRetention     int
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron expression for the cleanup run.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are kept.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.notificationRetention = days
		}
	}
}

// WithActivityRetentionDays adjusts how long activity logs are kept.
func WithActivityRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.activityRetention = days
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil activity
// service skips the activity retention job.
func NewCleaner(db *gorm.DB, activity *services.ActivityService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                    db,
		activity:              activity,
		now:                   time.Now,
		schedule:              defaultSchedule,
		notificationRetention: defaultNotificationRetentionDays,
		activityRetention:     defaultActivityRetentionDays,
		log:                   logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.db != nil && c.notificationRetention > 0 {
		if _, err := CleanupReadNotifications(ctx, c.db, c.now(), c.notificationRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.activity != nil && c.activityRetention > 0 {
		if _, err := c.activity.CleanupOlderThan(ctx, c.activityRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupReadNotifications removes notifications that were read more than
// retentionDays ago. Unread rows are never touched.
func CleanupReadNotifications(ctx context.Context, db *gorm.DB, now time.Time, retentionDays int) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup notifications: db is required")
	}
	if retentionDays <= 0 {
		return 0, errors.New("cleanup notifications: retentionDays must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := now.AddDate(0, 0, -retentionDays)

	result := db.WithContext(ctx).
		Where("is_read = ? AND read_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup notifications: %w", result.Error)
	}

	return result.RowsAffected, nil
}
