package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/saral-edu/institute-api/internal/models"
)

func newResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var resultColumns = []string{
	"id", "student_id", "roll_number", "course_id", "subjects",
	"total_marks", "total_obtained", "percentage", "overall_grade", "result_status",
	"exam_session", "exam_date", "remarks", "created_at", "updated_at",
}

const subjectsJSON = `[{"subject_id":"sub-1","subject_name":"Computer Fundamentals","max_marks":100,"min_marks":40,"max_practical_marks":0,"marks_obtained":80,"practical_marks":0,"obtained_total":80,"subject_max":100,"subject_percentage":80,"grade":"A","status":"pass"}]`

func TestResultRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.Result{
		StudentID:  "stu-1",
		RollNumber: "R-1001",
		CourseID:   "course-1",
		Subjects: models.SubjectResultList{{
			SubjectID:         "sub-1",
			SubjectName:       "Computer Fundamentals",
			MaxMarks:          100,
			MinMarks:          40,
			MarksObtained:     80,
			ObtainedTotal:     80,
			SubjectMax:        100,
			SubjectPercentage: 80,
			Grade:             models.GradeA,
			Status:            models.SubjectStatusPass,
		}},
		TotalMarks:    100,
		TotalObtained: 80,
		Percentage:    80,
		OverallGrade:  models.GradeA,
		ResultStatus:  models.ResultStatusPass,
		ExamSession:   "2024-25",
	}
	require.NoError(t, repo.Create(context.Background(), result))
	require.NotEmpty(t, result.ID)
	require.False(t, result.UpdatedAt.IsZero())

	rows := sqlmock.NewRows(resultColumns).
		AddRow(result.ID, "stu-1", "R-1001", "course-1", []byte(subjectsJSON),
			100.0, 80.0, 80.0, "A", "pass",
			"2024-25", nil, "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, roll_number, course_id, subjects")).
		WithArgs(result.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), result.ID)
	require.NoError(t, err)
	require.Equal(t, result.ID, found.ID)
	require.Len(t, found.Subjects, 1)
	require.Equal(t, models.GradeA, found.Subjects[0].Grade)
	require.Equal(t, float64(80), found.Subjects[0].ObtainedTotal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := &models.Result{
		ID:           "res-1",
		StudentID:    "stu-1",
		RollNumber:   "R-1001",
		CourseID:     "course-1",
		Subjects:     models.SubjectResultList{},
		ResultStatus: models.ResultStatusPending,
	}
	require.NoError(t, repo.Update(context.Background(), result))
	require.False(t, result.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM results WHERE id = $1")).
		WithArgs("res-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "res-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM results WHERE id = $1")).
		WithArgs("res-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Delete(context.Background(), "res-missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	columns := append(append([]string{}, resultColumns...), "student_name", "course_name")
	rows := sqlmock.NewRows(columns).
		AddRow("res-1", "stu-1", "R-1001", "course-1", []byte(subjectsJSON),
			100.0, 80.0, 80.0, "A", "pass",
			"2024-25", nil, "", time.Now(), time.Now(),
			"Asha Verma", "Diploma in Computer Applications")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN courses c ON c.id = r.course_id")).
		WithArgs("stu-1", "%r-10%").
		WillReturnRows(rows)

	results, err := repo.List(context.Background(), models.ResultFilter{
		StudentID: "stu-1",
		Search:    "R-10",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].StudentName)
	require.Equal(t, "Asha Verma", *results[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListByRollNumberDeletedRefs(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	columns := append(append([]string{}, resultColumns...), "student_name", "course_name")
	rows := sqlmock.NewRows(columns).
		AddRow("res-1", "stu-gone", "R-1001", "course-gone", []byte(subjectsJSON),
			100.0, 80.0, 80.0, "A", "pass",
			"2024-25", nil, "", time.Now(), time.Now(),
			nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(r.roll_number) = LOWER($1)")).
		WithArgs("r-1001").
		WillReturnRows(rows)

	results, err := repo.ListByRollNumber(context.Background(), "r-1001")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Nil(t, results[0].StudentName)
	require.Nil(t, results[0].CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}
