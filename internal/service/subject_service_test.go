package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saral-edu/institute-api/internal/models"
	appErrors "github.com/saral-edu/institute-api/pkg/errors"
)

type mockSubjectRepo struct {
	subjects map[string]*models.Subject
	nextID   int
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*models.Subject)}
}

func (m *mockSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	var list []models.Subject
	for _, s := range m.subjects {
		if filter.CourseID != "" && filter.CourseID != s.CourseID {
			continue
		}
		list = append(list, *s)
	}
	return list, nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		m.nextID++
		subject.ID = fmt.Sprintf("sub-%d", m.nextID)
	}
	m.subjects[subject.ID] = subject
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	m.subjects[subject.ID] = subject
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.subjects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.subjects, id)
	return nil
}

func newTestSubjectService() (*SubjectService, *mockSubjectRepo) {
	repo := newMockSubjectRepo()
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Name: "Diploma in Computer Applications"},
	}}
	return NewSubjectService(repo, courses, nil, zap.NewNop()), repo
}

func TestSubjectServiceCreateCoercesThresholds(t *testing.T) {
	svc, _ := newTestSubjectService()

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{
		CourseID: "course-1",
		Name:     "  Computer Fundamentals  ",
		MaxMarks: ptrFloat(-100),
		MinMarks: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "Computer Fundamentals", subject.Name)
	assert.Equal(t, float64(0), subject.MaxMarks)
	assert.Equal(t, float64(0), subject.MinMarks)
	assert.True(t, subject.Active)
}

func TestSubjectServiceCreateUnknownCourse(t *testing.T) {
	svc, _ := newTestSubjectService()

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		CourseID: "course-missing",
		Name:     "Tally",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceUpdateBlankName(t *testing.T) {
	svc, repo := newTestSubjectService()
	repo.subjects["sub-1"] = &models.Subject{ID: "sub-1", CourseID: "course-1", Name: "Tally", MaxMarks: 100}

	_, err := svc.Update(context.Background(), "sub-1", UpdateSubjectRequest{Name: ptrString("   ")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceDeleteNotFound(t *testing.T) {
	svc, _ := newTestSubjectService()

	err := svc.Delete(context.Background(), "sub-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
