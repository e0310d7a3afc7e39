package models

import "time"

// Offering records that a subject is taught in a course section. The
// (subject_code, course_id) pair is unique among live records.
type Offering struct {
	ID          string    `db:"id" json:"id"`
	SubjectCode string    `db:"subject_code" json:"subject_code"`
	CourseID    int64     `db:"course_id" json:"course_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
