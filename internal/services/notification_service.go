package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/livesync"
	"github.com/internhq/internhub/internal/models"
	"github.com/internhq/internhub/internal/notifications"
	apperrors "github.com/internhq/internhub/pkg/errors"
	"github.com/internhq/internhub/pkg/logger"
	"github.com/internhq/internhub/pkg/metrics"
)

const defaultNotificationPageSize = 100

// Actor identifies the authenticated account a repository call acts for.
// Every operation is scoped to it; there is no ambient identity.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) valid() bool {
	return trimmed(a.ID) != ""
}

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

// CreateNotificationInput defines attributes required to persist a notification.
// Creation is reserved for server-side actions (account review, internship
// review, application flow); end users never call it directly.
type CreateNotificationInput struct {
	UserID   string
	Type     string
	Title    string
	Message  string
	Metadata map[string]any
}

// ListNotificationsInput defines filters for querying an actor's notifications.
type ListNotificationsInput struct {
	Type   string
	IsRead *bool
	Limit  int
}

// NotificationService owns all reads and mutations of the notifications
// table. Every query carries an explicit owner filter, and fetched rows are
// re-validated against the actor before they are surfaced.
type NotificationService struct {
	db     *gorm.DB
	broker *livesync.Broker
	log    *zap.Logger
}

// NewNotificationService constructs a NotificationService. The broker may be
// nil in contexts without live sync (one-shot admin tooling, some tests).
func NewNotificationService(db *gorm.DB, broker *livesync.Broker) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{
		db:     db,
		broker: broker,
		log:    logger.WithModule("notifications"),
	}, nil
}

// ListForActor returns the actor's notifications, newest first. The owner
// filter is always part of the query; on top of that, every returned row is
// re-checked against the actor and silently dropped on mismatch so a
// misconfigured store policy can never leak another account's rows.
func (s *NotificationService) ListForActor(ctx context.Context, actor Actor, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	rows, err := s.ownedRows(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	return mapNotificationRows(rows), nil
}

// VisibleForActor lists the actor's notifications and applies the role
// visibility policy, which is what dashboards render.
func (s *NotificationService) VisibleForActor(ctx context.Context, actor Actor, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	rows, err := s.ownedRows(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	return mapNotificationRows(notifications.FilterVisible(rows, actor.Role)), nil
}

// UnreadCount returns the number of unread, role-visible notifications.
// The fast path is a single server-side COUNT with the role's type set and
// the JSON status refinement pushed into SQL. Any fast-path failure falls
// back to fetch + policy filter + count; the fallback is the source of truth
// and the two paths agree on the same data.
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return 0, apperrors.ErrUnauthenticated
	}

	count, err := s.unreadCountFast(ctx, actor)
	if err == nil {
		return count, nil
	}
	s.log.Warn("unread count primitive failed, falling back to fetch-and-filter",
		zap.String("user_id", actor.ID), zap.Error(err))

	return s.unreadCountSlow(ctx, actor)
}

func (s *NotificationService) unreadCountFast(ctx context.Context, actor Actor) (int64, error) {
	allowed := notifications.AllowedTypes(actor.Role)
	if len(allowed) == 0 {
		return 0, nil
	}

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.ID, false).
		Where("type IN ?", allowed)

	switch actor.Role {
	case models.RoleAdmin:
		query = query.Where(
			s.db.Where("type <> ?", models.NotificationInternshipApproval).
				Or(datatypes.JSONQuery("metadata").Equals(models.StatusPending, models.MetadataStatusKey)),
		)
	case models.RoleSoftwareHouse:
		query = query.Where(
			s.db.Where("type <> ?", models.NotificationInternshipApproval).
				Or(datatypes.JSONQuery("metadata").Equals(models.StatusApproved, models.MetadataStatusKey)).
				Or(datatypes.JSONQuery("metadata").Equals(models.StatusRejected, models.MetadataStatusKey)),
		)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}
	return count, nil
}

func (s *NotificationService) unreadCountSlow(ctx context.Context, actor Actor) (int64, error) {
	rows, err := s.allUnreadRows(ctx, actor)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, row := range rows {
		if notifications.IsVisible(row, actor.Role) {
			count++
		}
	}
	return count, nil
}

// MarkRead flags one of the actor's notifications as read. Marking an
// already-read notification succeeds without error; the read flag only ever
// moves false to true. Targets outside the actor's ownership or visibility
// fail with ErrNotAccessible.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, actor.ID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotAccessible
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	if !notifications.IsVisible(notification, actor.Role) {
		return nil, apperrors.ErrNotAccessible
	}

	if !notification.IsRead {
		now := time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(&notification).
			Updates(map[string]any{
				"is_read": true,
				"read_at": now,
			}).Error; err != nil {
			return nil, fmt.Errorf("notification service: mark read: %w", err)
		}
		notification.IsRead = true
		notification.ReadAt = &now

		s.publish(actor.ID, livesync.OpUpdate)
	}

	dto := mapNotification(notification)
	return &dto, nil
}

// MarkAllRead marks every currently-unread, currently-visible notification
// as read. Each row is attempted independently; one failure does not abort
// the rest, and failures are aggregated into a single returned error.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) error {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return apperrors.ErrUnauthenticated
	}

	rows, err := s.allUnreadRows(ctx, actor)
	if err != nil {
		return err
	}

	var errs error
	for _, row := range rows {
		if !notifications.IsVisible(row, actor.Role) {
			continue
		}
		if _, err := s.MarkRead(ctx, actor, row.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark read %s: %w", row.ID, err))
		}
	}
	return errs
}

// Delete removes one of the actor's notifications. Deleting an id that no
// longer exists is success, not an error: the end state is identical. A row
// owned by another account fails with ErrNotAccessible.
func (s *NotificationService) Delete(ctx context.Context, actor Actor, notificationID string) error {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return apperrors.ErrUnauthenticated
	}

	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ?", notificationID).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("notification service: load notification: %w", err)
	}

	if notification.UserID != actor.ID {
		return apperrors.ErrNotAccessible
	}

	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, actor.ID).
		Delete(&models.Notification{}).Error; err != nil {
		return fmt.Errorf("notification service: delete notification: %w", err)
	}

	s.publish(actor.ID, livesync.OpDelete)
	return nil
}

// DeleteAll wipes every notification the actor owns, visible or not.
func (s *NotificationService) DeleteAll(ctx context.Context, actor Actor) error {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return apperrors.ErrUnauthenticated
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ?", actor.ID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete all: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.publish(actor.ID, livesync.OpDelete)
	}
	return nil
}

// ClearReviewQueue removes the pending review notices fanned out to admins
// for an internship once its review is decided, so finished work does not
// linger in admin feeds.
func (s *NotificationService) ClearReviewQueue(ctx context.Context, internshipID string) error {
	ctx = ensureContext(ctx)
	if trimmed(internshipID) == "" {
		return errors.New("notification service: internship id is required")
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("type = ?", models.NotificationInternshipApproval).
		Where(datatypes.JSONQuery("metadata").Equals(internshipID, "internship_id")).
		Where(datatypes.JSONQuery("metadata").Equals(models.StatusPending, models.MetadataStatusKey)).
		Find(&rows).Error; err != nil {
		return fmt.Errorf("notification service: load review queue: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Notification{}).Error; err != nil {
		return fmt.Errorf("notification service: clear review queue: %w", err)
	}

	for _, row := range rows {
		s.publish(row.UserID, livesync.OpDelete)
	}
	return nil
}

// Create persists a notification for the given owner and publishes a change
// event. Only trusted server-side flows call this.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	userID := trimmed(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}
	if !models.KnownNotificationType(input.Type) {
		return nil, fmt.Errorf("notification service: unknown type %q", input.Type)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    input.Type,
		Title:   trimmed(input.Title),
		Message: trimmed(input.Message),
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	metrics.NotificationsDelivered.WithLabelValues(notification.Type).Inc()
	s.publish(userID, livesync.OpInsert)

	dto := mapNotification(notification)
	return &dto, nil
}

// ownedRows fetches and owner-revalidates the actor's raw rows.
func (s *NotificationService) ownedRows(ctx context.Context, actor Actor, input ListNotificationsInput) ([]models.Notification, error) {
	limit := input.Limit
	if limit <= 0 || limit > defaultNotificationPageSize {
		limit = defaultNotificationPageSize
	}

	query := s.db.WithContext(ctx).
		Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Limit(limit)

	if t := trimmed(input.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if input.IsRead != nil {
		query = query.Where("is_read = ?", *input.IsRead)
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	return s.dropForeignRows(actor.ID, rows), nil
}

// allUnreadRows fetches every unread row the actor owns. Unlike ownedRows
// this applies no page cap: the unread count and MarkAllRead must cover the
// whole unread set, not just the newest page.
func (s *NotificationService) allUnreadRows(ctx context.Context, actor Actor) ([]models.Notification, error) {
	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", actor.ID, false).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list unread notifications: %w", err)
	}
	return s.dropForeignRows(actor.ID, rows), nil
}

// dropForeignRows discards rows whose owner does not match the actor. The
// query already filters on user_id, so a hit here means the store returned
// rows it should not have; the row is dropped with a diagnostic and never
// surfaced to the caller.
func (s *NotificationService) dropForeignRows(actorID string, rows []models.Notification) []models.Notification {
	kept := rows[:0]
	for _, row := range rows {
		if row.UserID != actorID {
			metrics.InconsistentRowsDropped.Inc()
			s.log.Warn("dropping notification with mismatched owner",
				zap.String("notification_id", row.ID),
				zap.String("row_owner", row.UserID),
				zap.String("actor_id", actorID))
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

func (s *NotificationService) publish(userID, op string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(livesync.Event{
		Table:  livesync.TableNotifications,
		UserID: userID,
		Op:     op,
	})
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		Metadata:  decodeJSON(row.Metadata),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
