package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saral-edu/institute-api/internal/models"
	appErrors "github.com/saral-edu/institute-api/pkg/errors"
)

type studentRepo interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest registers a new student.
type CreateStudentRequest struct {
	EnrollmentNo string     `json:"enrollment_no" validate:"required"`
	RollNumber   string     `json:"roll_number" validate:"required"`
	FullName     string     `json:"full_name" validate:"required"`
	BirthDate    *time.Time `json:"birth_date"`
	CourseID     *string    `json:"course_id"`
	Phone        string     `json:"phone"`
}

// UpdateStudentRequest modifies an existing student.
type UpdateStudentRequest struct {
	EnrollmentNo *string    `json:"enrollment_no"`
	RollNumber   *string    `json:"roll_number"`
	FullName     *string    `json:"full_name"`
	BirthDate    *time.Time `json:"birth_date"`
	CourseID     *string    `json:"course_id"`
	Phone        *string    `json:"phone"`
	Active       *bool      `json:"active"`
}

// StudentService manages student records.
type StudentService struct {
	students  studentRepo
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentRepo, courses courseReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, courses: courses, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student, validating the optional course reference.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if req.CourseID != nil && *req.CourseID != "" {
		if _, err := s.courses.FindByID(ctx, *req.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	}

	student := &models.Student{
		EnrollmentNo: strings.TrimSpace(req.EnrollmentNo),
		RollNumber:   strings.TrimSpace(req.RollNumber),
		FullName:     strings.TrimSpace(req.FullName),
		BirthDate:    req.BirthDate,
		CourseID:     req.CourseID,
		Phone:        req.Phone,
		Active:       true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.EnrollmentNo != nil {
		student.EnrollmentNo = strings.TrimSpace(*req.EnrollmentNo)
	}
	if req.RollNumber != nil {
		student.RollNumber = strings.TrimSpace(*req.RollNumber)
	}
	if req.FullName != nil {
		student.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.BirthDate != nil {
		student.BirthDate = req.BirthDate
	}
	if req.CourseID != nil {
		student.CourseID = req.CourseID
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student record. Results referencing the student stay in
// place and list with the student fields unresolved.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.students.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
