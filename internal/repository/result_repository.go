package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saral-edu/institute-api/internal/models"
)

// ResultRepository handles persistence for result aggregates.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new repository instance.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultSelect = `SELECT r.id, r.student_id, r.roll_number, r.course_id, r.subjects,
        r.total_marks, r.total_obtained, r.percentage, r.overall_grade, r.result_status,
        r.exam_session, r.exam_date, r.remarks, r.created_at, r.updated_at,
        s.full_name AS student_name, c.name AS course_name
        FROM results r
        LEFT JOIN students s ON s.id = r.student_id
        LEFT JOIN courses c ON c.id = r.course_id`

// Create persists a new result.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	const query = `INSERT INTO results (id, student_id, roll_number, course_id, subjects,
        total_marks, total_obtained, percentage, overall_grade, result_status,
        exam_session, exam_date, remarks, created_at, updated_at)
        VALUES (:id, :student_id, :roll_number, :course_id, :subjects,
        :total_marks, :total_obtained, :percentage, :overall_grade, :result_status,
        :exam_session, :exam_date, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// FindByID returns a result by id.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	const query = `SELECT id, student_id, roll_number, course_id, subjects,
        total_marks, total_obtained, percentage, overall_grade, result_status,
        exam_session, exam_date, remarks, created_at, updated_at
        FROM results WHERE id = $1`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update overwrites the full result document. Aggregates are never patched
// individually; the caller supplies a fully recomputed record and the last
// completed write wins in full.
func (r *ResultRepository) Update(ctx context.Context, result *models.Result) error {
	result.UpdatedAt = time.Now().UTC()
	const query = `UPDATE results SET student_id = :student_id, roll_number = :roll_number,
        course_id = :course_id, subjects = :subjects, total_marks = :total_marks,
        total_obtained = :total_obtained, percentage = :percentage,
        overall_grade = :overall_grade, result_status = :result_status,
        exam_session = :exam_session, exam_date = :exam_date, remarks = :remarks,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}

// Delete removes a result record.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns results matching the filter, newest first, with student and
// course display fields resolved where the referenced records still exist.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, error) {
	query := resultSelect + " WHERE 1=1"
	var args []interface{}

	if filter.RollNumber != "" {
		query += fmt.Sprintf(" AND r.roll_number = $%d", len(args)+1)
		args = append(args, filter.RollNumber)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND r.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		query += fmt.Sprintf(" AND r.course_id = $%d", len(args)+1)
		args = append(args, filter.CourseID)
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND LOWER(r.roll_number) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query += " ORDER BY r.created_at DESC"

	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// ListByRollNumber returns every result recorded for a roll number across
// courses and sessions, newest first.
func (r *ResultRepository) ListByRollNumber(ctx context.Context, rollNumber string) ([]models.ResultDetail, error) {
	query := resultSelect + " WHERE LOWER(r.roll_number) = LOWER($1) ORDER BY r.created_at DESC"
	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, rollNumber); err != nil {
		return nil, fmt.Errorf("list results by roll number: %w", err)
	}
	return results, nil
}
