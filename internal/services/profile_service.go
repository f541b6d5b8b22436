package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/models"
	apperrors "github.com/internhq/internhub/pkg/errors"
	"github.com/internhq/internhub/pkg/logger"
)

// RegisterInput defines attributes required to create an account.
type RegisterInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"full_name" validate:"required"`
	Role         string `json:"role" validate:"required"`
	Organization string `json:"organization"`
}

// UpdateProfileInput defines the self-service editable fields.
type UpdateProfileInput struct {
	FullName     *string `json:"full_name"`
	Organization *string `json:"organization"`
}

// ProfileService manages account lifecycle: registration, authentication,
// and the admin review queue. New accounts start pending and every admin is
// notified so one of them can pick up the review.
type ProfileService struct {
	db            *gorm.DB
	notifications *NotificationService
	activity      *ActivityService
	log           *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB, notifications *NotificationService, activity *ActivityService) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	if notifications == nil {
		return nil, errors.New("profile service: notification service is required")
	}
	if activity == nil {
		return nil, errors.New("profile service: activity service is required")
	}
	return &ProfileService{
		db:            db,
		notifications: notifications,
		activity:      activity,
		log:           logger.WithModule("profiles"),
	}, nil
}

// Register creates a pending account and notifies every admin that a review
// is waiting. Admin accounts cannot self-register.
func (s *ProfileService) Register(ctx context.Context, input RegisterInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(trimmed(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	role := trimmed(input.Role)
	if !models.KnownRole(role) || role == models.RoleAdmin {
		return nil, apperrors.NewBadRequest("invalid account role")
	}

	var existing models.Profile
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperrors.NewBadRequest("email is already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile service: check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("profile service: hash password: %w", err)
	}

	profile := models.Profile{
		Email:        email,
		Password:     string(hash),
		FullName:     trimmed(input.FullName),
		Role:         role,
		Status:       models.StatusPending,
		Organization: trimmed(input.Organization),
	}

	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("profile service: create profile: %w", err)
	}

	s.notifyAdmins(ctx, profile)

	if err := s.activity.Record(ctx, ActivityEntry{
		UserID:   &profile.ID,
		Action:   "profile.registered",
		Resource: "profile",
		Metadata: map[string]any{"role": profile.Role},
	}); err != nil {
		s.log.Warn("failed to record registration activity", zap.Error(err))
	}

	return &profile, nil
}

// Authenticate verifies credentials and returns the matching profile.
// Accounts that have not passed review cannot sign in.
func (s *ProfileService) Authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(trimmed(email))

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("profile service: load profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if profile.Status != models.StatusApproved {
		return nil, apperrors.ErrForbidden
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&profile).Update("last_login_at", now).Error; err != nil {
		s.log.Warn("failed to stamp last login", zap.String("user_id", profile.ID), zap.Error(err))
	}
	profile.LastLoginAt = &now

	return &profile, nil
}

// Get returns a profile by id.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("profile service: load profile: %w", err)
	}
	return &profile, nil
}

// Update applies the self-service editable fields.
func (s *ProfileService) Update(ctx context.Context, id string, input UpdateProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FullName != nil {
		updates["full_name"] = trimmed(*input.FullName)
	}
	if input.Organization != nil {
		updates["organization"] = trimmed(*input.Organization)
	}
	if len(updates) == 0 {
		return profile, nil
	}

	if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("profile service: update profile: %w", err)
	}
	return s.Get(ctx, id)
}

// ListPending returns accounts awaiting review, oldest first.
func (s *ProfileService) ListPending(ctx context.Context) ([]models.Profile, error) {
	ctx = ensureContext(ctx)

	var profiles []models.Profile
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("profile service: list pending: %w", err)
	}
	return profiles, nil
}

// Review records an admin decision on a pending account. Decisions are
// final: re-reviewing an already decided account is rejected.
func (s *ProfileService) Review(ctx context.Context, adminID, profileID string, approve bool) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	profile, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile.Status != models.StatusPending {
		return nil, apperrors.NewBadRequest("account has already been reviewed")
	}

	status := models.StatusRejected
	if approve {
		status = models.StatusApproved
	}

	if err := s.db.WithContext(ctx).Model(profile).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("profile service: review profile: %w", err)
	}
	profile.Status = status

	if err := s.activity.RecordAdmin(ctx, AdminEntry{
		AdminID:    adminID,
		Action:     "profile." + status,
		TargetType: "profile",
		TargetID:   profile.ID,
		Details:    map[string]any{"role": profile.Role},
	}); err != nil {
		s.log.Warn("failed to record admin decision", zap.Error(err))
	}

	return profile, nil
}

// notifyAdmins fans a user_approval notification out to every admin account.
// Notification failures are logged, not surfaced: registration already
// succeeded and the review queue endpoint still lists the account.
func (s *ProfileService) notifyAdmins(ctx context.Context, profile models.Profile) {
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
			Type:    models.NotificationUserApproval,
			Title:   "Account awaiting review",
			Message: fmt.Sprintf("%s registered as %s and needs approval", profile.FullName, profile.Role),
			Metadata: map[string]any{
				"profile_id": profile.ID,
				"role":       profile.Role,
			},
		})
		if err != nil {
			s.log.Warn("failed to notify admin of pending account",
				zap.String("admin_id", admin.ID), zap.Error(err))
		}
	}
}
