package models

import "time"

// TeachingAssignment links a teacher to a subject they teach. The
// (subject_code, teacher_ci) pair is unique among live records.
type TeachingAssignment struct {
	ID          string    `db:"id" json:"id"`
	SubjectCode string    `db:"subject_code" json:"subject_code"`
	TeacherCI   string    `db:"teacher_ci" json:"teacher_ci"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
