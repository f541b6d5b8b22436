package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/database/testutil"
	"github.com/internhq/internhub/internal/models"
	apperrors "github.com/internhq/internhub/pkg/errors"
)

func newInternshipFixture(t *testing.T) (*InternshipService, *NotificationService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	notifications, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	activity, err := NewActivityService(db)
	require.NoError(t, err)
	svc, err := NewInternshipService(db, notifications, activity)
	require.NoError(t, err)
	return svc, notifications, db
}

func TestCreateInternshipQueuesAdminReview(t *testing.T) {
	svc, notifications, db := newInternshipFixture(t)
	ctx := context.Background()

	admin := seedProfile(t, db, "admin@example.com", models.RoleAdmin)
	company := seedProfile(t, db, "company@example.com", models.RoleSoftwareHouse)

	internship, err := svc.Create(ctx, Actor{ID: company.ID, Role: models.RoleSoftwareHouse}, CreateInternshipInput{
		Title: "Backend Intern",
		Field: "backend",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, internship.Status)
	require.Equal(t, 1, internship.Slots, "zero slots defaults to one")

	feed, err := notifications.VisibleForActor(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, models.NotificationInternshipApproval, feed[0].Type)
	require.Equal(t, models.StatusPending, feed[0].Metadata[models.MetadataStatusKey])
}

func TestCreateInternshipRequiresSoftwareHouse(t *testing.T) {
	svc, _, db := newInternshipFixture(t)
	ctx := context.Background()

	student := seedProfile(t, db, "student@example.com", models.RoleStudent)

	_, err := svc.Create(ctx, Actor{ID: student.ID, Role: models.RoleStudent}, CreateInternshipInput{
		Title: "Nope", Field: "backend",
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Create(ctx, Actor{}, CreateInternshipInput{Title: "Nope", Field: "backend"})
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestReviewNotifiesOwnerWithResolvedStatus(t *testing.T) {
	svc, notifications, db := newInternshipFixture(t)
	ctx := context.Background()

	admin := seedProfile(t, db, "admin@example.com", models.RoleAdmin)
	company := seedProfile(t, db, "company@example.com", models.RoleSoftwareHouse)

	internship, err := svc.Create(ctx, Actor{ID: company.ID, Role: models.RoleSoftwareHouse}, CreateInternshipInput{
		Title: "Design Intern", Field: "design",
	})
	require.NoError(t, err)

	reviewed, err := svc.Review(ctx, admin.ID, internship.ID, true)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedAt)
	require.Equal(t, admin.ID, *reviewed.ReviewedBy)

	feed, err := notifications.VisibleForActor(ctx, Actor{ID: company.ID, Role: models.RoleSoftwareHouse}, ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, models.StatusApproved, feed[0].Metadata[models.MetadataStatusKey])

	adminFeed, err := notifications.VisibleForActor(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, ListNotificationsInput{})
	require.NoError(t, err)
	require.Empty(t, adminFeed, "the pending review notice is cleared once the review is decided")

	_, err = svc.Review(ctx, admin.ID, internship.ID, false)
	require.Error(t, err, "a reviewed posting cannot be re-reviewed")
}

func TestListHidesUnapprovedPostingsFromOutsiders(t *testing.T) {
	svc, _, db := newInternshipFixture(t)
	ctx := context.Background()

	admin := seedProfile(t, db, "admin@example.com", models.RoleAdmin)
	company := seedProfile(t, db, "company@example.com", models.RoleSoftwareHouse)
	student := seedProfile(t, db, "student@example.com", models.RoleStudent)
	companyActor := Actor{ID: company.ID, Role: models.RoleSoftwareHouse}

	pending, err := svc.Create(ctx, companyActor, CreateInternshipInput{Title: "Pending", Field: "backend"})
	require.NoError(t, err)
	approved, err := svc.Create(ctx, companyActor, CreateInternshipInput{Title: "Approved", Field: "backend"})
	require.NoError(t, err)
	_, err = svc.Review(ctx, admin.ID, approved.ID, true)
	require.NoError(t, err)

	visible, err := svc.List(ctx, Actor{ID: student.ID, Role: models.RoleStudent}, ListInternshipsInput{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, "Approved", visible[0].Title)

	own, err := svc.List(ctx, companyActor, ListInternshipsInput{})
	require.NoError(t, err)
	require.Len(t, own, 2, "owners see their own pending postings")

	all, err := svc.List(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, ListInternshipsInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = svc.Get(ctx, Actor{ID: student.ID, Role: models.RoleStudent}, pending.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound, "pending postings are invisible to students")

	got, err := svc.Get(ctx, companyActor, pending.ID)
	require.NoError(t, err)
	require.Equal(t, pending.ID, got.ID)
}
