package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saral-edu/institute-api/internal/models"
	appErrors "github.com/saral-edu/institute-api/pkg/errors"
)

func ptrFloat(v float64) *float64 { return &v }

func ptrString(v string) *string { return &v }

type mockResultRepo struct {
	results map[string]models.Result
	nextID  int
}

func newMockResultRepo() *mockResultRepo {
	return &mockResultRepo{results: make(map[string]models.Result)}
}

func (m *mockResultRepo) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		m.nextID++
		result.ID = fmt.Sprintf("res-%d", m.nextID)
	}
	m.results[result.ID] = *result
	return nil
}

func (m *mockResultRepo) FindByID(ctx context.Context, id string) (*models.Result, error) {
	if r, ok := m.results[id]; ok {
		copied := r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultRepo) Update(ctx context.Context, result *models.Result) error {
	m.results[result.ID] = *result
	return nil
}

func (m *mockResultRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.results[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.results, id)
	return nil
}

func (m *mockResultRepo) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, error) {
	var list []models.ResultDetail
	for _, r := range m.results {
		if filter.StudentID != "" && filter.StudentID != r.StudentID {
			continue
		}
		if filter.CourseID != "" && filter.CourseID != r.CourseID {
			continue
		}
		if filter.RollNumber != "" && filter.RollNumber != r.RollNumber {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(r.RollNumber), strings.ToLower(filter.Search)) {
			continue
		}
		list = append(list, models.ResultDetail{Result: r})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *mockResultRepo) ListByRollNumber(ctx context.Context, rollNumber string) ([]models.ResultDetail, error) {
	var list []models.ResultDetail
	for _, r := range m.results {
		if strings.EqualFold(r.RollNumber, rollNumber) {
			list = append(list, models.ResultDetail{Result: r})
		}
	}
	return list, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockSubjectReader struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCacheInvalidator struct {
	deleted []string
}

func (m *mockCacheInvalidator) Delete(ctx context.Context, keys ...string) {
	m.deleted = append(m.deleted, keys...)
}

func newTestResultService() (*ResultService, *mockResultRepo, *mockSubjectReader, *mockCacheInvalidator) {
	results := newMockResultRepo()
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", RollNumber: "R-1001", FullName: "Asha Verma"},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Name: "Diploma in Computer Applications"},
	}}
	subjects := &mockSubjectReader{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", Name: "Computer Fundamentals", MaxMarks: 100, MinMarks: 40},
		"sub-2": {ID: "sub-2", Name: "Office Automation", MaxMarks: 100, MinMarks: 40, PracticalMarks: 50},
	}}
	cache := &mockCacheInvalidator{}
	svc := NewResultService(results, students, courses, subjects, cache, validator.New(), zap.NewNop())
	return svc, results, subjects, cache
}

func baseCreateRequest() CreateResultRequest {
	return CreateResultRequest{
		StudentID:  "stu-1",
		RollNumber: "R-1001",
		CourseID:   "course-1",
		Subjects: []SubjectEntryRequest{
			{SubjectID: "sub-1", MarksObtained: ptrFloat(80)},
			{SubjectID: "sub-2", MarksObtained: ptrFloat(70), PracticalMarks: ptrFloat(40)},
		},
		ExamSession: "2024-25",
	}
}

func TestResultServiceCreateEndToEnd(t *testing.T) {
	svc, _, _, cache := newTestResultService()

	result, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	require.Len(t, result.Subjects, 2)
	assert.Equal(t, "sub-1", result.Subjects[0].SubjectID)
	assert.Equal(t, float64(80), result.Subjects[0].ObtainedTotal)
	assert.Equal(t, models.GradeA, result.Subjects[0].Grade)
	assert.Equal(t, models.SubjectStatusPass, result.Subjects[0].Status)
	assert.Equal(t, float64(110), result.Subjects[1].ObtainedTotal)
	assert.Equal(t, models.GradeBPlus, result.Subjects[1].Grade)

	assert.Equal(t, float64(250), result.TotalMarks)
	assert.Equal(t, float64(190), result.TotalObtained)
	assert.Equal(t, float64(76), result.Percentage)
	assert.Equal(t, models.GradeBPlus, result.OverallGrade)
	assert.Equal(t, models.ResultStatusPass, result.ResultStatus)
	assert.Contains(t, cache.deleted, "verify:results:r-1001")
}

func TestResultServiceCreateSnapshotsThresholds(t *testing.T) {
	svc, repo, subjects, _ := newTestResultService()

	result, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	// catalog edits after evaluation must not change the stored snapshot
	subjects.subjects["sub-1"].MaxMarks = 10
	subjects.subjects["sub-1"].Name = "Renamed"

	stored, err := repo.FindByID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), stored.Subjects[0].MaxMarks)
	assert.Equal(t, "Computer Fundamentals", stored.Subjects[0].SubjectName)
}

func TestResultServiceCreateEmptySubjects(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	req := baseCreateRequest()
	req.Subjects = nil
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResultServiceCreateUnknownSubject(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	req := baseCreateRequest()
	req.Subjects = append(req.Subjects, SubjectEntryRequest{SubjectID: "sub-missing"})
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "sub-missing")
}

func TestResultServiceCreateUnknownStudent(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	req := baseCreateRequest()
	req.StudentID = "stu-missing"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceCreateFailPropagation(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	req := baseCreateRequest()
	req.Subjects = []SubjectEntryRequest{
		{SubjectID: "sub-1", MarksObtained: ptrFloat(95)},
		{SubjectID: "sub-2", MarksObtained: ptrFloat(10)},
	}
	result, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusFail, result.ResultStatus)
	assert.Equal(t, models.SubjectStatusPass, result.Subjects[0].Status)
	assert.Equal(t, models.SubjectStatusFail, result.Subjects[1].Status)
}

func TestResultServiceCreateCoercesAbsentMarks(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	req := baseCreateRequest()
	req.Subjects = []SubjectEntryRequest{{SubjectID: "sub-1"}}
	result, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, float64(0), result.Subjects[0].ObtainedTotal)
	assert.Equal(t, models.ResultStatusFail, result.ResultStatus)
}

func TestResultServiceUpdateIdempotent(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	created, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateResultRequest{
		Subjects: baseCreateRequest().Subjects,
	})
	require.NoError(t, err)

	assert.Equal(t, created.TotalMarks, updated.TotalMarks)
	assert.Equal(t, created.TotalObtained, updated.TotalObtained)
	assert.Equal(t, created.Percentage, updated.Percentage)
	assert.Equal(t, created.OverallGrade, updated.OverallGrade)
	assert.Equal(t, created.ResultStatus, updated.ResultStatus)
	assert.Equal(t, created.Subjects, updated.Subjects)
}

func TestResultServiceUpdateReplacesSubjectList(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	created, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateResultRequest{
		Subjects: []SubjectEntryRequest{{SubjectID: "sub-1", MarksObtained: ptrFloat(50)}},
	})
	require.NoError(t, err)

	// full overwrite, not a merge with the previous list
	require.Len(t, updated.Subjects, 1)
	assert.Equal(t, float64(100), updated.TotalMarks)
	assert.Equal(t, float64(50), updated.TotalObtained)
	assert.Equal(t, float64(50), updated.Percentage)
	assert.Equal(t, models.GradeC, updated.OverallGrade)
}

func TestResultServiceUpdateMetadataOnly(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	created, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateResultRequest{
		ExamSession: ptrString("2025-26"),
		Remarks:     ptrString("re-verified"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-26", updated.ExamSession)
	assert.Equal(t, "re-verified", updated.Remarks)
	assert.Equal(t, created.TotalMarks, updated.TotalMarks)
	assert.Equal(t, created.Percentage, updated.Percentage)
	assert.Equal(t, created.Subjects, updated.Subjects)
}

func TestResultServiceUpdateSkipsUnknownSubjects(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	created, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateResultRequest{
		Subjects: []SubjectEntryRequest{
			{SubjectID: "sub-1", MarksObtained: ptrFloat(60)},
			{SubjectID: "sub-gone", MarksObtained: ptrFloat(90)},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Subjects, 1)
	assert.Equal(t, "sub-1", updated.Subjects[0].SubjectID)
	assert.Equal(t, float64(100), updated.TotalMarks)
	assert.Equal(t, float64(60), updated.TotalObtained)
}

func TestResultServiceUpdateNotFound(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	_, err := svc.Update(context.Background(), "missing", UpdateResultRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceAggregateInvariantAfterWrites(t *testing.T) {
	svc, repo, _, _ := newTestResultService()

	created, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, UpdateResultRequest{
		Subjects: []SubjectEntryRequest{
			{SubjectID: "sub-2", MarksObtained: ptrFloat(55), PracticalMarks: ptrFloat(30)},
		},
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	var wantMax, wantObtained float64
	for _, s := range stored.Subjects {
		wantMax += s.SubjectMax
		wantObtained += s.ObtainedTotal
	}
	assert.Equal(t, wantMax, stored.TotalMarks)
	assert.Equal(t, wantObtained, stored.TotalObtained)
}

func TestResultServiceDelete(t *testing.T) {
	svc, repo, _, cache := newTestResultService()

	created, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	_, err = repo.FindByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Contains(t, cache.deleted, "verify:results:r-1001")

	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceQueryByRoll(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	_, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	results, err := svc.QueryByRoll(context.Background(), "R-1001")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.QueryByRoll(context.Background(), "R-9999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceQueryBySearch(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	_, err := svc.Create(context.Background(), baseCreateRequest())
	require.NoError(t, err)

	results, err := svc.Query(context.Background(), models.ResultFilter{Search: "r-10"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
