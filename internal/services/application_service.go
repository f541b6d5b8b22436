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

// ApplyInput defines attributes required to apply to an internship.
type ApplyInput struct {
	InternshipID string `json:"internship_id" validate:"required,uuid4"`
	CoverLetter  string `json:"cover_letter"`
	CVURL        string `json:"cv_url"`
}

// ApplicationService manages the application flow between students and
// software houses. Every state change is mirrored into the notification
// repository so both sides see it in their feeds.
type ApplicationService struct {
	db            *gorm.DB
	notifications *NotificationService
	activity      *ActivityService
	log           *zap.Logger
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(db *gorm.DB, notifications *NotificationService, activity *ActivityService) (*ApplicationService, error) {
	if db == nil {
		return nil, errors.New("application service: db is required")
	}
	if notifications == nil {
		return nil, errors.New("application service: notification service is required")
	}
	if activity == nil {
		return nil, errors.New("application service: activity service is required")
	}
	return &ApplicationService{
		db:            db,
		notifications: notifications,
		activity:      activity,
		log:           logger.WithModule("applications"),
	}, nil
}

// Apply submits an application to an approved posting and notifies the
// owning software house. A student can only hold one live application per
// posting; a withdrawn one does not block reapplying.
func (s *ApplicationService) Apply(ctx context.Context, actor Actor, input ApplyInput) (*models.Application, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}
	if actor.Role != models.RoleStudent {
		return nil, apperrors.ErrForbidden
	}

	var internship models.Internship
	if err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", trimmed(input.InternshipID), models.StatusApproved).
		First(&internship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("application service: load internship: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("internship_id = ? AND student_id = ? AND status <> ?",
			internship.ID, actor.ID, models.ApplicationWithdrawn).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("application service: check duplicates: %w", err)
	}
	if count > 0 {
		return nil, apperrors.NewBadRequest("you have already applied to this internship")
	}

	application := models.Application{
		InternshipID: internship.ID,
		StudentID:    actor.ID,
		CoverLetter:  trimmed(input.CoverLetter),
		CVURL:        trimmed(input.CVURL),
		Status:       models.ApplicationPending,
	}

	if err := s.db.WithContext(ctx).Create(&application).Error; err != nil {
		return nil, fmt.Errorf("application service: create application: %w", err)
	}

	if _, err := s.notifications.Create(ctx, CreateNotificationInput{
		UserID:  internship.CompanyID,
		Type:    models.NotificationNewApplication,
		Title:   "New application received",
		Message: fmt.Sprintf("A student applied to %q", internship.Title),
		Metadata: map[string]any{
			"application_id": application.ID,
			"internship_id":  internship.ID,
		},
	}); err != nil {
		s.log.Warn("failed to notify company of new application",
			zap.String("application_id", application.ID), zap.Error(err))
	}

	if err := s.activity.Record(ctx, ActivityEntry{
		UserID:   &application.StudentID,
		Action:   "application.submitted",
		Resource: "application",
		Metadata: map[string]any{"internship_id": internship.ID},
	}); err != nil {
		s.log.Warn("failed to record application activity", zap.Error(err))
	}

	return &application, nil
}

// Decide records the software house's accept/reject decision and notifies
// the student. Only the posting's owner may decide, and only once.
func (s *ApplicationService) Decide(ctx context.Context, actor Actor, applicationID string, accept bool) (*models.Application, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	application, internship, err := s.loadWithInternship(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if internship.CompanyID != actor.ID {
		return nil, apperrors.ErrNotAccessible
	}
	if application.Status != models.ApplicationPending {
		return nil, apperrors.NewBadRequest("application has already been decided")
	}

	status := models.ApplicationRejected
	if accept {
		status = models.ApplicationAccepted
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(application).Updates(map[string]any{
		"status":     status,
		"decided_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("application service: decide application: %w", err)
	}
	application.Status = status
	application.DecidedAt = &now

	if _, err := s.notifications.Create(ctx, CreateNotificationInput{
		UserID:  application.StudentID,
		Type:    models.NotificationApplicationStatus,
		Title:   "Application update",
		Message: fmt.Sprintf("Your application to %q was %s", internship.Title, status),
		Metadata: map[string]any{
			"application_id": application.ID,
			"internship_id":  internship.ID,
			"decision":       status,
		},
	}); err != nil {
		s.log.Warn("failed to notify student of decision",
			zap.String("application_id", application.ID), zap.Error(err))
	}

	return application, nil
}

// Withdraw lets the applying student retract a still-pending application.
func (s *ApplicationService) Withdraw(ctx context.Context, actor Actor, applicationID string) (*models.Application, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	application, _, err := s.loadWithInternship(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if application.StudentID != actor.ID {
		return nil, apperrors.ErrNotAccessible
	}
	if application.Status != models.ApplicationPending {
		return nil, apperrors.NewBadRequest("only pending applications can be withdrawn")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(application).Updates(map[string]any{
		"status":     models.ApplicationWithdrawn,
		"decided_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("application service: withdraw application: %w", err)
	}
	application.Status = models.ApplicationWithdrawn
	application.DecidedAt = &now

	return application, nil
}

// ListForStudent returns the actor's own applications, newest first.
func (s *ApplicationService) ListForStudent(ctx context.Context, actor Actor) ([]models.Application, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	var applications []models.Application
	if err := s.db.WithContext(ctx).
		Preload("Internship").
		Where("student_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("application service: list applications: %w", err)
	}
	return applications, nil
}

// ListForInternship returns applications for one of the actor's postings.
func (s *ApplicationService) ListForInternship(ctx context.Context, actor Actor, internshipID string) ([]models.Application, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	var internship models.Internship
	if err := s.db.WithContext(ctx).Where("id = ?", internshipID).First(&internship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("application service: load internship: %w", err)
	}
	if internship.CompanyID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, apperrors.ErrNotAccessible
	}

	var applications []models.Application
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Where("internship_id = ?", internshipID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("application service: list applications: %w", err)
	}
	return applications, nil
}

func (s *ApplicationService) loadWithInternship(ctx context.Context, applicationID string) (*models.Application, *models.Internship, error) {
	var application models.Application
	if err := s.db.WithContext(ctx).Where("id = ?", applicationID).First(&application).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("application service: load application: %w", err)
	}

	var internship models.Internship
	if err := s.db.WithContext(ctx).Where("id = ?", application.InternshipID).First(&internship).Error; err != nil {
		return nil, nil, fmt.Errorf("application service: load internship: %w", err)
	}

	return &application, &internship, nil
}
