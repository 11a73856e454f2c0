package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saral-edu/institute-api/internal/grading"
	"github.com/saral-edu/institute-api/internal/models"
	appErrors "github.com/saral-edu/institute-api/pkg/errors"
)

type resultRepo interface {
	Create(ctx context.Context, result *models.Result) error
	FindByID(ctx context.Context, id string) (*models.Result, error)
	Update(ctx context.Context, result *models.Result) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, error)
	ListByRollNumber(ctx context.Context, rollNumber string) ([]models.ResultDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type cacheInvalidator interface {
	Delete(ctx context.Context, keys ...string)
}

// SubjectEntryRequest is one subject's raw marks within a result payload.
// Mark fields are pointers so absent values coerce to zero instead of
// rejecting the entry.
type SubjectEntryRequest struct {
	SubjectID      string   `json:"subject_id" validate:"required"`
	MarksObtained  *float64 `json:"marks_obtained"`
	PracticalMarks *float64 `json:"practical_marks"`
}

// CreateResultRequest declares a new exam sitting.
type CreateResultRequest struct {
	StudentID   string                `json:"student_id" validate:"required"`
	RollNumber  string                `json:"roll_number" validate:"required"`
	CourseID    string                `json:"course_id" validate:"required"`
	Subjects    []SubjectEntryRequest `json:"subjects" validate:"required,min=1,dive"`
	ExamSession string                `json:"exam_session"`
	ExamDate    *time.Time            `json:"exam_date"`
	Remarks     string                `json:"remarks"`
}

// UpdateResultRequest modifies an existing result. Supplying subjects
// replaces the stored list wholesale and recomputes every aggregate;
// omitting them changes metadata only.
type UpdateResultRequest struct {
	Subjects    []SubjectEntryRequest `json:"subjects" validate:"omitempty,dive"`
	ExamSession *string               `json:"exam_session"`
	ExamDate    *time.Time            `json:"exam_date"`
	Remarks     *string               `json:"remarks"`
}

// ResultService orchestrates result computation and lifecycle. Every write
// that touches the subject list recomputes all aggregates from scratch, so
// repeating an update with the same entries is idempotent.
type ResultService struct {
	results      resultRepo
	students     studentReader
	courses      courseReader
	subjects     subjectReader
	cache        cacheInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
	roundingMode func(float64) float64
}

// NewResultService constructs ResultService.
func NewResultService(results resultRepo, students studentReader, courses courseReader, subjects subjectReader, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:      results,
		students:     students,
		courses:      courses,
		subjects:     subjects,
		cache:        cache,
		validator:    validate,
		logger:       logger,
		roundingMode: func(v float64) float64 { return math.RoundToEven(v*100) / 100 },
	}
}

// verificationCacheKey addresses cached public verification payloads.
func verificationCacheKey(rollNumber string) string {
	return "verify:results:" + strings.ToLower(strings.TrimSpace(rollNumber))
}

// Create evaluates the supplied subject entries and persists a new result.
// Thresholds come from the subject catalog at evaluation time; the first
// unresolvable subject aborts the whole create.
func (s *ResultService) Create(ctx context.Context, req CreateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	subjects := make(models.SubjectResultList, 0, len(req.Subjects))
	for _, entry := range req.Subjects {
		subject, err := s.subjects.FindByID(ctx, entry.SubjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %s not found", entry.SubjectID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		subjects = append(subjects, grading.Evaluate(*subject, grading.RawMarks{
			MarksObtained:  entry.MarksObtained,
			PracticalMarks: entry.PracticalMarks,
		}))
	}

	summary := grading.Summarize(subjects, s.roundingMode)
	result := &models.Result{
		StudentID:     req.StudentID,
		RollNumber:    strings.TrimSpace(req.RollNumber),
		CourseID:      req.CourseID,
		Subjects:      subjects,
		TotalMarks:    summary.TotalMarks,
		TotalObtained: summary.TotalObtained,
		Percentage:    summary.Percentage,
		OverallGrade:  summary.OverallGrade,
		ResultStatus:  summary.ResultStatus,
		ExamSession:   req.ExamSession,
		ExamDate:      req.ExamDate,
		Remarks:       req.Remarks,
	}

	if err := s.results.Create(ctx, result); err != nil {
		s.logger.Error("persist result failed", zap.String("roll_number", result.RollNumber), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist result")
	}

	if s.cache != nil {
		s.cache.Delete(ctx, verificationCacheKey(result.RollNumber))
	}

	s.logger.Info("result created",
		zap.String("result_id", result.ID),
		zap.String("roll_number", result.RollNumber),
		zap.String("status", string(result.ResultStatus)),
	)
	return result, nil
}

// Update applies a full-recompute update. A non-empty subject list replaces
// the stored one and rebuilds every aggregate from it; subjects that no
// longer resolve in the catalog are skipped with a warning rather than
// failing the call.
func (s *ResultService) Update(ctx context.Context, id string, req UpdateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}

	if len(req.Subjects) > 0 {
		subjects := make(models.SubjectResultList, 0, len(req.Subjects))
		for _, entry := range req.Subjects {
			subject, err := s.subjects.FindByID(ctx, entry.SubjectID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					s.logger.Warn("skipping unresolved subject on update",
						zap.String("result_id", id),
						zap.String("subject_id", entry.SubjectID),
					)
					continue
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
			}
			subjects = append(subjects, grading.Evaluate(*subject, grading.RawMarks{
				MarksObtained:  entry.MarksObtained,
				PracticalMarks: entry.PracticalMarks,
			}))
		}

		summary := grading.Summarize(subjects, s.roundingMode)
		result.Subjects = subjects
		result.TotalMarks = summary.TotalMarks
		result.TotalObtained = summary.TotalObtained
		result.Percentage = summary.Percentage
		result.OverallGrade = summary.OverallGrade
		result.ResultStatus = summary.ResultStatus
	}

	if req.ExamSession != nil {
		result.ExamSession = *req.ExamSession
	}
	if req.ExamDate != nil {
		result.ExamDate = req.ExamDate
	}
	if req.Remarks != nil {
		result.Remarks = *req.Remarks
	}

	if err := s.results.Update(ctx, result); err != nil {
		s.logger.Error("persist result failed", zap.String("result_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist result")
	}

	if s.cache != nil {
		s.cache.Delete(ctx, verificationCacheKey(result.RollNumber))
	}

	return result, nil
}

// Get returns a single result by id.
func (s *ResultService) Get(ctx context.Context, id string) (*models.Result, error) {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	return result, nil
}

// Query lists results newest first. Display fields for deleted students or
// courses come back nil instead of failing the listing.
func (s *ResultService) Query(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, error) {
	results, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return results, nil
}

// QueryByRoll returns every result for a roll number across courses and
// sessions.
func (s *ResultService) QueryByRoll(ctx context.Context, rollNumber string) ([]models.ResultDetail, error) {
	rollNumber = strings.TrimSpace(rollNumber)
	if rollNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roll number is required")
	}
	results, err := s.results.ListByRollNumber(ctx, rollNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	if len(results) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no results found for roll number")
	}
	return results, nil
}

// Delete removes a result. Catalog records are untouched.
func (s *ResultService) Delete(ctx context.Context, id string) error {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if err := s.results.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete result")
	}
	if s.cache != nil {
		s.cache.Delete(ctx, verificationCacheKey(result.RollNumber))
	}
	return nil
}
