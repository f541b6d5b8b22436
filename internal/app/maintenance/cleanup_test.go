package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/internhq/internhub/internal/database/testutil"
	"github.com/internhq/internhub/internal/models"
	"github.com/internhq/internhub/internal/services"
)

func TestCleanupReadNotifications(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	staleRead := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	freshRead := now.Add(-24 * time.Hour)

	rows := []models.Notification{
		{UserID: "u1", Type: models.NotificationApplicationStatus, IsRead: true, ReadAt: &staleRead},
		{UserID: "u1", Type: models.NotificationApplicationStatus, IsRead: true, ReadAt: &freshRead},
		{UserID: "u1", Type: models.NotificationApplicationStatus, IsRead: false},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	removed, err := CleanupReadNotifications(context.Background(), db, now, 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&remaining).Error)
	require.EqualValues(t, 2, remaining, "fresh reads and unread rows survive")

	_, err = CleanupReadNotifications(context.Background(), db, now, 0)
	require.Error(t, err)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	activity, err := services.NewActivityService(db)
	require.NoError(t, err)

	stale := models.ActivityLog{Action: "old.action"}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&models.ActivityLog{}).
		Where("id = ?", stale.ID).
		Update("created_at", now.AddDate(0, 0, -400)).Error)

	staleRead := now.AddDate(0, 0, -120)
	require.NoError(t, db.Create(&models.Notification{
		UserID: "u1", Type: models.NotificationApplicationStatus,
		IsRead: true, ReadAt: &staleRead,
	}).Error)

	cleaner := NewCleaner(db, activity,
		WithNow(func() time.Time { return now }),
		WithNotificationRetentionDays(90),
		WithActivityRetentionDays(180),
	)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var notifications, activities int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	require.NoError(t, db.Model(&models.ActivityLog{}).Count(&activities).Error)
	require.Zero(t, notifications)
	require.Zero(t, activities)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	activity, err := services.NewActivityService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(db, activity, WithSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}
