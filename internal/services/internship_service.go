package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/models"
	apperrors "github.com/internhq/internhub/pkg/errors"
	"github.com/internhq/internhub/pkg/logger"
)

// CreateInternshipInput defines attributes required to post an internship.
type CreateInternshipInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Field       string `json:"field" validate:"required"`
	Location    string `json:"location"`
	Paid        bool   `json:"paid"`
	Slots       int    `json:"slots" validate:"gte=0"`
}

// ListInternshipsInput defines filters for browsing postings.
type ListInternshipsInput struct {
	Field     string
	Status    string
	CompanyID string
	Limit     int
}

// InternshipService manages internship postings and their review lifecycle.
// A new posting starts pending and is invisible to students until an admin
// approves it; both sides of the review are notified through the
// notification repository.
type InternshipService struct {
	db            *gorm.DB
	notifications *NotificationService
	activity      *ActivityService
	log           *zap.Logger
}

// NewInternshipService constructs an InternshipService.
func NewInternshipService(db *gorm.DB, notifications *NotificationService, activity *ActivityService) (*InternshipService, error) {
	if db == nil {
		return nil, errors.New("internship service: db is required")
	}
	if notifications == nil {
		return nil, errors.New("internship service: notification service is required")
	}
	if activity == nil {
		return nil, errors.New("internship service: activity service is required")
	}
	return &InternshipService{
		db:            db,
		notifications: notifications,
		activity:      activity,
		log:           logger.WithModule("internships"),
	}, nil
}

// Create posts a new internship on behalf of the acting software house and
// queues it for admin review.
func (s *InternshipService) Create(ctx context.Context, actor Actor, input CreateInternshipInput) (*models.Internship, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}
	if actor.Role != models.RoleSoftwareHouse {
		return nil, apperrors.ErrForbidden
	}
	if trimmed(input.Title) == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	slots := input.Slots
	if slots <= 0 {
		slots = 1
	}

	internship := models.Internship{
		CompanyID:   actor.ID,
		Title:       trimmed(input.Title),
		Description: trimmed(input.Description),
		Field:       trimmed(input.Field),
		Location:    trimmed(input.Location),
		Paid:        input.Paid,
		Slots:       slots,
		Status:      models.StatusPending,
	}

	if err := s.db.WithContext(ctx).Create(&internship).Error; err != nil {
		return nil, fmt.Errorf("internship service: create internship: %w", err)
	}

	s.notifyAdminsOfPending(ctx, internship)

	if err := s.activity.Record(ctx, ActivityEntry{
		UserID:   &internship.CompanyID,
		Action:   "internship.posted",
		Resource: "internship",
		Metadata: map[string]any{"internship_id": internship.ID, "field": internship.Field},
	}); err != nil {
		s.log.Warn("failed to record posting activity", zap.Error(err))
	}

	return &internship, nil
}

// Get returns a single posting. Pending and rejected postings are only
// visible to their owner and to admins.
func (s *InternshipService) Get(ctx context.Context, actor Actor, id string) (*models.Internship, error) {
	ctx = ensureContext(ctx)

	var internship models.Internship
	if err := s.db.WithContext(ctx).
		Preload("Company").
		Where("id = ?", id).
		First(&internship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("internship service: load internship: %w", err)
	}

	if internship.Status != models.StatusApproved &&
		actor.Role != models.RoleAdmin &&
		actor.ID != internship.CompanyID {
		return nil, apperrors.ErrNotFound
	}

	return &internship, nil
}

// List returns postings matching the filters. Non-admin callers browsing
// other companies' postings only ever see approved ones; owners see their
// own regardless of status.
func (s *InternshipService) List(ctx context.Context, actor Actor, input ListInternshipsInput) ([]models.Internship, error) {
	ctx = ensureContext(ctx)

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.WithContext(ctx).
		Preload("Company").
		Order("created_at DESC").
		Limit(limit)

	if f := trimmed(input.Field); f != "" {
		query = query.Where("field = ?", f)
	}
	if c := trimmed(input.CompanyID); c != "" {
		query = query.Where("company_id = ?", c)
	}

	switch {
	case actor.Role == models.RoleAdmin:
		if st := trimmed(input.Status); st != "" {
			query = query.Where("status = ?", st)
		}
	case actor.valid():
		query = query.Where("status = ? OR company_id = ?", models.StatusApproved, actor.ID)
	default:
		query = query.Where("status = ?", models.StatusApproved)
	}

	var internships []models.Internship
	if err := query.Find(&internships).Error; err != nil {
		return nil, fmt.Errorf("internship service: list internships: %w", err)
	}
	return internships, nil
}

// ListPending returns postings awaiting review, oldest first.
func (s *InternshipService) ListPending(ctx context.Context) ([]models.Internship, error) {
	ctx = ensureContext(ctx)

	var internships []models.Internship
	if err := s.db.WithContext(ctx).
		Preload("Company").
		Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Find(&internships).Error; err != nil {
		return nil, fmt.Errorf("internship service: list pending: %w", err)
	}
	return internships, nil
}

// Review records an admin decision on a pending posting and notifies the
// owning software house. The notification carries the resolved status in its
// metadata so the owner's feed can surface the outcome.
func (s *InternshipService) Review(ctx context.Context, adminID, internshipID string, approve bool) (*models.Internship, error) {
	ctx = ensureContext(ctx)

	var internship models.Internship
	if err := s.db.WithContext(ctx).Where("id = ?", internshipID).First(&internship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("internship service: load internship: %w", err)
	}
	if internship.Status != models.StatusPending {
		return nil, apperrors.NewBadRequest("internship has already been reviewed")
	}

	status := models.StatusRejected
	if approve {
		status = models.StatusApproved
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&internship).Updates(map[string]any{
		"status":      status,
		"reviewed_at": now,
		"reviewed_by": adminID,
	}).Error; err != nil {
		return nil, fmt.Errorf("internship service: review internship: %w", err)
	}
	internship.Status = status
	internship.ReviewedAt = &now
	internship.ReviewedBy = &adminID

	if err := s.notifications.ClearReviewQueue(ctx, internship.ID); err != nil {
		s.log.Warn("failed to clear admin review queue",
			zap.String("internship_id", internship.ID), zap.Error(err))
	}

	if _, err := s.notifications.Create(ctx, CreateNotificationInput{
		UserID:  internship.CompanyID,
		Type:    models.NotificationInternshipApproval,
		Title:   "Internship review complete",
		Message: fmt.Sprintf("%q was %s", internship.Title, status),
		Metadata: map[string]any{
			models.MetadataStatusKey: status,
			"internship_id":          internship.ID,
		},
	}); err != nil {
		s.log.Warn("failed to notify company of review outcome",
			zap.String("internship_id", internship.ID), zap.Error(err))
	}

	if err := s.activity.RecordAdmin(ctx, AdminEntry{
		AdminID:    adminID,
		Action:     "internship." + status,
		TargetType: "internship",
		TargetID:   internship.ID,
		Details:    map[string]any{"company_id": internship.CompanyID},
	}); err != nil {
		s.log.Warn("failed to record admin decision", zap.Error(err))
	}

	return &internship, nil
}

// notifyAdminsOfPending tells every admin that a posting awaits review. The
// pending status in the metadata is what scopes these rows to admin feeds.
func (s *InternshipService) notifyAdminsOfPending(ctx context.Context, internship models.Internship) {
	var admins []models.Profile
	if err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleAdmin).
		Find(&admins).Error; err != nil {
		s.log.Warn("failed to load admins for review notification", zap.Error(err))
		return
	}

	for _, admin := range admins {
		_, err := s.notifications.Create(ctx, CreateNotificationInput{
			UserID:  admin.ID,
			Type:    models.NotificationInternshipApproval,
			Title:   "Internship awaiting review",
			Message: fmt.Sprintf("%q needs approval", internship.Title),
			Metadata: map[string]any{
				models.MetadataStatusKey: models.StatusPending,
				"internship_id":          internship.ID,
			},
		})
		if err != nil {
			s.log.Warn("failed to notify admin of pending internship",
				zap.String("admin_id", admin.ID), zap.Error(err))
		}
	}
}
