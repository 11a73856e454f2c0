package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Grade is a letter grade tier derived from a percentage.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// SubjectStatus is the per-subject pass/fail outcome.
type SubjectStatus string

const (
	SubjectStatusPass SubjectStatus = "pass"
	SubjectStatusFail SubjectStatus = "fail"
)

// ResultStatus is the overall verdict for an exam sitting.
type ResultStatus string

const (
	ResultStatusPending ResultStatus = "pending"
	ResultStatusPass    ResultStatus = "pass"
	ResultStatusFail    ResultStatus = "fail"
)

// SubjectResult is the computed outcome for one subject, snapshotted at
// evaluation time so historical results survive later catalog edits.
type SubjectResult struct {
	SubjectID         string        `json:"subject_id"`
	SubjectName       string        `json:"subject_name"`
	MaxMarks          float64       `json:"max_marks"`
	MinMarks          float64       `json:"min_marks"`
	MaxPracticalMarks float64       `json:"max_practical_marks"`
	MarksObtained     float64       `json:"marks_obtained"`
	PracticalMarks    float64       `json:"practical_marks"`
	ObtainedTotal     float64       `json:"obtained_total"`
	SubjectMax        float64       `json:"subject_max"`
	SubjectPercentage float64       `json:"subject_percentage"`
	Grade             Grade         `json:"grade"`
	Status            SubjectStatus `json:"status"`
}

// SubjectResultList stores the evaluated subjects as a JSONB column.
type SubjectResultList []SubjectResult

// Value marshals the subject list to JSON for persistence.
func (l SubjectResultList) Value() (driver.Value, error) {
	if l == nil {
		l = SubjectResultList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal subject results: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the subject list.
func (l *SubjectResultList) Scan(value interface{}) error {
	if value == nil {
		*l = SubjectResultList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for SubjectResultList", value)
	}
	if len(data) == 0 {
		*l = SubjectResultList{}
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal subject results: %w", err)
	}
	return nil
}

// Result is the aggregate record for one (student, course, exam session).
// Aggregate fields are always recomputed in full from Subjects; they are
// never patched individually.
type Result struct {
	ID            string            `db:"id" json:"id"`
	StudentID     string            `db:"student_id" json:"student_id"`
	RollNumber    string            `db:"roll_number" json:"roll_number"`
	CourseID      string            `db:"course_id" json:"course_id"`
	Subjects      SubjectResultList `db:"subjects" json:"subjects"`
	TotalMarks    float64           `db:"total_marks" json:"total_marks"`
	TotalObtained float64           `db:"total_obtained" json:"total_obtained"`
	Percentage    float64           `db:"percentage" json:"percentage"`
	OverallGrade  Grade             `db:"overall_grade" json:"overall_grade"`
	ResultStatus  ResultStatus      `db:"result_status" json:"result_status"`
	ExamSession   string            `db:"exam_session" json:"exam_session"`
	ExamDate      *time.Time        `db:"exam_date" json:"exam_date,omitempty"`
	Remarks       string            `db:"remarks" json:"remarks"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ResultDetail carries a result with display fields resolved from the
// student and course catalogs. The pointers stay nil when a referenced
// record has been deleted; listings degrade instead of failing.
type ResultDetail struct {
	Result
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
	CourseName  *string `db:"course_name" json:"course_name,omitempty"`
}

// ResultFilter captures supported filters for listing results.
type ResultFilter struct {
	RollNumber string
	StudentID  string
	CourseID   string
	Search     string
}
