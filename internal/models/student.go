package models

import "time"

// Student represents a learner registered with the institute.
type Student struct {
	ID           string     `db:"id" json:"id"`
	EnrollmentNo string     `db:"enrollment_no" json:"enrollment_no"`
	RollNumber   string     `db:"roll_number" json:"roll_number"`
	FullName     string     `db:"full_name" json:"full_name"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	CourseID     *string    `db:"course_id" json:"course_id,omitempty"`
	Phone        string     `db:"phone" json:"phone"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	CourseID string
	Active   *bool
	Page     int
	PageSize int
}
