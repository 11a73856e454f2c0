package models

import "time"

// Subject is a catalog entry carrying the grading thresholds for one
// subject within a course. The result engine reads it, never mutates it.
type Subject struct {
	ID             string    `db:"id" json:"id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	Name           string    `db:"name" json:"name"`
	MaxMarks       float64   `db:"max_marks" json:"max_marks"`
	MinMarks       float64   `db:"min_marks" json:"min_marks"`
	PracticalMarks float64   `db:"practical_marks" json:"practical_marks"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	CourseID string
	Search   string
	Active   *bool
}
