package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/internhq/internhub/internal/models"
	apperrors "github.com/internhq/internhub/pkg/errors"
)

// SaveCVFormInput is the structured CV payload a student saves.
type SaveCVFormInput struct {
	Summary    string `json:"summary"`
	Education  []any  `json:"education"`
	Experience []any  `json:"experience"`
	Skills     []any  `json:"skills"`
}

// CVFormService stores the structured CV each student builds in the
// dashboard. One row per student, replaced wholesale on save.
type CVFormService struct {
	db *gorm.DB
}

// NewCVFormService constructs a CVFormService.
func NewCVFormService(db *gorm.DB) (*CVFormService, error) {
	if db == nil {
		return nil, errors.New("cv form service: db is required")
	}
	return &CVFormService{db: db}, nil
}

// Save upserts the actor's CV form.
func (s *CVFormService) Save(ctx context.Context, actor Actor, input SaveCVFormInput) (*models.CVForm, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}
	if actor.Role != models.RoleStudent {
		return nil, apperrors.ErrForbidden
	}

	education, err := encodeJSONList(input.Education)
	if err != nil {
		return nil, fmt.Errorf("cv form service: marshal education: %w", err)
	}
	experience, err := encodeJSONList(input.Experience)
	if err != nil {
		return nil, fmt.Errorf("cv form service: marshal experience: %w", err)
	}
	skills, err := encodeJSONList(input.Skills)
	if err != nil {
		return nil, fmt.Errorf("cv form service: marshal skills: %w", err)
	}

	var form models.CVForm
	err = s.db.WithContext(ctx).Where("student_id = ?", actor.ID).First(&form).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		form = models.CVForm{
			StudentID:  actor.ID,
			Summary:    trimmed(input.Summary),
			Education:  education,
			Experience: experience,
			Skills:     skills,
		}
		if err := s.db.WithContext(ctx).Create(&form).Error; err != nil {
			return nil, fmt.Errorf("cv form service: create form: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("cv form service: load form: %w", err)
	default:
		if err := s.db.WithContext(ctx).Model(&form).Updates(map[string]any{
			"summary":    trimmed(input.Summary),
			"education":  education,
			"experience": experience,
			"skills":     skills,
		}).Error; err != nil {
			return nil, fmt.Errorf("cv form service: update form: %w", err)
		}
		form.Summary = trimmed(input.Summary)
		form.Education = education
		form.Experience = experience
		form.Skills = skills
	}

	return &form, nil
}

// Get returns the actor's CV form, or ErrNotFound when nothing was saved yet.
func (s *CVFormService) Get(ctx context.Context, actor Actor) (*models.CVForm, error) {
	ctx = ensureContext(ctx)
	if !actor.valid() {
		return nil, apperrors.ErrUnauthenticated
	}

	var form models.CVForm
	if err := s.db.WithContext(ctx).Where("student_id = ?", actor.ID).First(&form).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("cv form service: load form: %w", err)
	}
	return &form, nil
}

func encodeJSONList(items []any) (datatypes.JSON, error) {
	if items == nil {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
