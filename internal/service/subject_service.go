package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saral-edu/institute-api/internal/grading"
	"github.com/saral-edu/institute-api/internal/models"
	appErrors "github.com/saral-edu/institute-api/pkg/errors"
)

type subjectRepo interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// CreateSubjectRequest declares a new catalog subject. Threshold fields are
// pointers so missing values default to zero, matching the marks policy.
type CreateSubjectRequest struct {
	CourseID       string   `json:"course_id" validate:"required"`
	Name           string   `json:"name" validate:"required"`
	MaxMarks       *float64 `json:"max_marks"`
	MinMarks       *float64 `json:"min_marks"`
	PracticalMarks *float64 `json:"practical_marks"`
	Active         *bool    `json:"active"`
}

// UpdateSubjectRequest modifies a catalog subject.
type UpdateSubjectRequest struct {
	Name           *string  `json:"name"`
	MaxMarks       *float64 `json:"max_marks"`
	MinMarks       *float64 `json:"min_marks"`
	PracticalMarks *float64 `json:"practical_marks"`
	Active         *bool    `json:"active"`
}

// SubjectService manages the subject catalog. Edits here never touch
// already-computed results; those carry their own threshold snapshots.
type SubjectService struct {
	subjects  subjectRepo
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(subjects subjectRepo, courses courseReader, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{subjects: subjects, courses: courses, validator: validate, logger: logger}
}

// List returns catalog subjects.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create validates the course reference and persists a new subject.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject name is required")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	subject := &models.Subject{
		CourseID:       req.CourseID,
		Name:           name,
		MaxMarks:       grading.ToNonNegative(req.MaxMarks),
		MinMarks:       grading.ToNonNegative(req.MinMarks),
		PracticalMarks: grading.ToNonNegative(req.PracticalMarks),
		Active:         true,
	}
	if req.Active != nil {
		subject.Active = *req.Active
	}

	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update modifies a catalog subject.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject name is required")
		}
		subject.Name = name
	}
	if req.MaxMarks != nil {
		subject.MaxMarks = grading.ToNonNegative(req.MaxMarks)
	}
	if req.MinMarks != nil {
		subject.MinMarks = grading.ToNonNegative(req.MinMarks)
	}
	if req.PracticalMarks != nil {
		subject.PracticalMarks = grading.ToNonNegative(req.PracticalMarks)
	}
	if req.Active != nil {
		subject.Active = *req.Active
	}

	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject from the catalog. Existing results keep their
// snapshotted copy of it.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.subjects.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if err := s.subjects.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
