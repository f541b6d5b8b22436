package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/database/testutil"
	"github.com/internhq/internhub/internal/livesync"
	"github.com/internhq/internhub/internal/models"
	apperrors "github.com/internhq/internhub/pkg/errors"
)

func newNotificationFixture(t *testing.T) (*NotificationService, *livesync.Broker, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	broker := livesync.NewBroker()
	svc, err := NewNotificationService(db, broker)
	require.NoError(t, err)
	return svc, broker, db
}

func mustCreate(t *testing.T, svc *NotificationService, input CreateNotificationInput) *NotificationDTO {
	t.Helper()

	dto, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return dto
}

func TestNotificationOperationsRequireActor(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()

	_, err := svc.ListForActor(ctx, Actor{}, ListNotificationsInput{})
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.UnreadCount(ctx, Actor{Role: models.RoleStudent})
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	require.ErrorIs(t, svc.MarkAllRead(ctx, Actor{}), apperrors.ErrUnauthenticated)
	require.ErrorIs(t, svc.Delete(ctx, Actor{}, "any"), apperrors.ErrUnauthenticated)
	require.ErrorIs(t, svc.DeleteAll(ctx, Actor{}), apperrors.ErrUnauthenticated)
}

func TestListForActorScopesToOwner(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()

	mustCreate(t, svc, CreateNotificationInput{
		UserID:  "student-1",
		Type:    models.NotificationApplicationStatus,
		Title:   "Application accepted",
		Message: "Your application moved forward",
	})
	mustCreate(t, svc, CreateNotificationInput{
		UserID: "student-2",
		Type:   models.NotificationApplicationStatus,
		Title:  "Someone else's update",
	})

	items, err := svc.ListForActor(ctx, Actor{ID: "student-1", Role: models.RoleStudent}, ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "student-1", items[0].UserID)
	require.Equal(t, "Application accepted", items[0].Title)
}

func TestDropForeignRowsDefenseInDepth(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)

	fabricated := []models.Notification{
		{BaseModel: models.BaseModel{ID: "n1"}, UserID: "student-1", Type: models.NotificationApplicationStatus},
		{BaseModel: models.BaseModel{ID: "n2"}, UserID: "intruder", Type: models.NotificationApplicationStatus},
		{BaseModel: models.BaseModel{ID: "n3"}, UserID: "student-1", Type: models.NotificationApplicationStatus},
	}

	kept := svc.dropForeignRows("student-1", fabricated)
	require.Len(t, kept, 2)
	for _, row := range kept {
		require.Equal(t, "student-1", row.UserID)
	}
}

func TestStudentSeesOnlyApplicationStatus(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "student-1", Role: models.RoleStudent}

	mustCreate(t, svc, CreateNotificationInput{UserID: actor.ID, Type: models.NotificationApplicationStatus, Title: "status"})
	mustCreate(t, svc, CreateNotificationInput{UserID: actor.ID, Type: models.NotificationNewApplication, Title: "new app"})
	mustCreate(t, svc, CreateNotificationInput{UserID: actor.ID, Type: models.NotificationUserApproval, Title: "approval"})

	visible, err := svc.VisibleForActor(ctx, actor, ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, models.NotificationApplicationStatus, visible[0].Type)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "student-1", Role: models.RoleStudent}

	dto := mustCreate(t, svc, CreateNotificationInput{
		UserID: actor.ID,
		Type:   models.NotificationApplicationStatus,
		Title:  "status change",
	})

	first, err := svc.MarkRead(ctx, actor, dto.ID)
	require.NoError(t, err)
	require.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	second, err := svc.MarkRead(ctx, actor, dto.ID)
	require.NoError(t, err, "second mark-read must succeed")
	require.True(t, second.IsRead)
}

func TestMarkReadRejectsForeignAndInvisible(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()

	dto := mustCreate(t, svc, CreateNotificationInput{
		UserID: "student-1",
		Type:   models.NotificationApplicationStatus,
		Title:  "status",
	})

	_, err := svc.MarkRead(ctx, Actor{ID: "student-2", Role: models.RoleStudent}, dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotAccessible)

	// Owned but not visible to the role: a software house cannot read a
	// student-facing application_status row even if it somehow owns one.
	foreign := mustCreate(t, svc, CreateNotificationInput{
		UserID: "company-1",
		Type:   models.NotificationApplicationStatus,
		Title:  "misrouted",
	})
	_, err = svc.MarkRead(ctx, Actor{ID: "company-1", Role: models.RoleSoftwareHouse}, foreign.ID)
	require.ErrorIs(t, err, apperrors.ErrNotAccessible)
}

func TestMarkAllReadOnlyTouchesVisibleRows(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "company-1", Role: models.RoleSoftwareHouse}

	visible := mustCreate(t, svc, CreateNotificationInput{
		UserID:   actor.ID,
		Type:     models.NotificationInternshipApproval,
		Title:    "approved",
		Metadata: map[string]any{models.MetadataStatusKey: models.StatusApproved},
	})
	hidden := mustCreate(t, svc, CreateNotificationInput{
		UserID:   actor.ID,
		Type:     models.NotificationInternshipApproval,
		Title:    "still pending",
		Metadata: map[string]any{models.MetadataStatusKey: models.StatusPending},
	})

	require.NoError(t, svc.MarkAllRead(ctx, actor))

	all, err := svc.ListForActor(ctx, actor, ListNotificationsInput{})
	require.NoError(t, err)

	byID := map[string]NotificationDTO{}
	for _, item := range all {
		byID[item.ID] = item
	}
	require.True(t, byID[visible.ID].IsRead)
	require.False(t, byID[hidden.ID].IsRead, "invisible rows stay unread")
}

func TestDeleteIsIdempotentAndOwnerScoped(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "student-1", Role: models.RoleStudent}

	dto := mustCreate(t, svc, CreateNotificationInput{
		UserID: actor.ID,
		Type:   models.NotificationApplicationStatus,
		Title:  "to delete",
	})

	require.NoError(t, svc.Delete(ctx, actor, dto.ID))
	require.NoError(t, svc.Delete(ctx, actor, dto.ID), "deleting a missing id is success")

	other := mustCreate(t, svc, CreateNotificationInput{
		UserID: "student-2",
		Type:   models.NotificationApplicationStatus,
		Title:  "not yours",
	})
	require.ErrorIs(t, svc.Delete(ctx, actor, other.ID), apperrors.ErrNotAccessible)
}

func TestDeleteAllIgnoresVisibility(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "student-1", Role: models.RoleStudent}

	mustCreate(t, svc, CreateNotificationInput{UserID: actor.ID, Type: models.NotificationApplicationStatus, Title: "a"})
	mustCreate(t, svc, CreateNotificationInput{UserID: actor.ID, Type: models.NotificationUserApproval, Title: "b"})
	mustCreate(t, svc, CreateNotificationInput{UserID: "student-2", Type: models.NotificationApplicationStatus, Title: "c"})

	require.NoError(t, svc.DeleteAll(ctx, actor))

	mine, err := svc.ListForActor(ctx, actor, ListNotificationsInput{})
	require.NoError(t, err)
	require.Empty(t, mine)

	theirs, err := svc.ListForActor(ctx, Actor{ID: "student-2", Role: models.RoleStudent}, ListNotificationsInput{})
	require.NoError(t, err)
	require.Len(t, theirs, 1)
}

func TestUnreadCountFastAndFallbackAgree(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)
	ctx := context.Background()

	seed := func(userID, typ string, metadata map[string]any, read bool) {
		dto := mustCreate(t, svc, CreateNotificationInput{
			UserID:   userID,
			Type:     typ,
			Title:    typ,
			Metadata: metadata,
		})
		if read {
			role := models.RoleStudent
			switch typ {
			case models.NotificationUserApproval:
				role = models.RoleAdmin
			case models.NotificationNewApplication:
				role = models.RoleSoftwareHouse
			}
			_, err := svc.MarkRead(ctx, Actor{ID: userID, Role: role}, dto.ID)
			require.NoError(t, err)
		}
	}

	pending := map[string]any{models.MetadataStatusKey: models.StatusPending}
	approved := map[string]any{models.MetadataStatusKey: models.StatusApproved}
	rejected := map[string]any{models.MetadataStatusKey: models.StatusRejected}

	seed("admin-1", models.NotificationUserApproval, nil, false)
	seed("admin-1", models.NotificationUserApproval, nil, true)
	seed("admin-1", models.NotificationInternshipApproval, pending, false)
	seed("admin-1", models.NotificationInternshipApproval, approved, false) // invisible to admin
	seed("company-1", models.NotificationInternshipApproval, approved, false)
	seed("company-1", models.NotificationInternshipApproval, rejected, false)
	seed("company-1", models.NotificationInternshipApproval, pending, false) // invisible to company
	seed("company-1", models.NotificationNewApplication, nil, false)
	seed("student-1", models.NotificationApplicationStatus, nil, false)
	seed("student-1", models.NotificationNewApplication, nil, false) // invisible to student

	actors := []struct {
		actor Actor
		want  int64
	}{
		{Actor{ID: "admin-1", Role: models.RoleAdmin}, 2},
		{Actor{ID: "company-1", Role: models.RoleSoftwareHouse}, 3},
		{Actor{ID: "student-1", Role: models.RoleStudent}, 1},
		{Actor{ID: "student-1", Role: "unknown"}, 0},
	}

	for _, tc := range actors {
		fast, err := svc.unreadCountFast(ctx, tc.actor)
		require.NoError(t, err, "fast path for %s", tc.actor.Role)

		slow, err := svc.unreadCountSlow(ctx, tc.actor)
		require.NoError(t, err, "fallback path for %s", tc.actor.Role)

		require.Equal(t, tc.want, fast, "fast path for %s", tc.actor.Role)
		require.Equal(t, fast, slow, "paths must agree for %s", tc.actor.Role)

		count, err := svc.UnreadCount(ctx, tc.actor)
		require.NoError(t, err)
		require.Equal(t, tc.want, count)
	}
}

func TestUnreadOperationsCoverMoreThanOnePage(t *testing.T) {
	svc, _, db := newNotificationFixture(t)
	ctx := context.Background()

	actor := Actor{ID: "student-1", Role: models.RoleStudent}
	total := defaultNotificationPageSize + 50
	for i := 0; i < total; i++ {
		mustCreate(t, svc, CreateNotificationInput{
			UserID:  actor.ID,
			Type:    models.NotificationApplicationStatus,
			Title:   "Application update",
			Message: fmt.Sprintf("update %d", i),
		})
	}

	fast, err := svc.unreadCountFast(ctx, actor)
	require.NoError(t, err)
	slow, err := svc.unreadCountSlow(ctx, actor)
	require.NoError(t, err)
	require.EqualValues(t, total, fast)
	require.EqualValues(t, total, slow)

	require.NoError(t, svc.MarkAllRead(ctx, actor))

	var remaining int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.ID, false).
		Count(&remaining).Error)
	require.Zero(t, remaining, "every unread row is marked, not just the newest page")
}

func TestCreatePublishesChangeEvent(t *testing.T) {
	svc, broker, _ := newNotificationFixture(t)

	events := make(chan livesync.Event, 4)
	sub, err := broker.Subscribe(livesync.TableNotifications, "student-1", func(e livesync.Event) {
		events <- e
	})
	require.NoError(t, err)
	defer sub.Cancel()

	mustCreate(t, svc, CreateNotificationInput{
		UserID: "student-1",
		Type:   models.NotificationApplicationStatus,
		Title:  "status",
	})

	select {
	case e := <-events:
		require.Equal(t, livesync.OpInsert, e.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change event after create")
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)

	_, err := svc.Create(context.Background(), CreateNotificationInput{
		UserID: "student-1",
		Type:   "marketing_blast",
	})
	require.Error(t, err)
}
