package models

import "time"

// Enrollment records a student taking a subject starting on a given date.
// The (student_ci, subject_code, enrolled_on) triple is unique; repeated
// enrollments of the same pair are additionally subject to the cooldown
// rule enforced by the admission service.
type Enrollment struct {
	ID          string    `db:"id" json:"id"`
	StudentCI   string    `db:"student_ci" json:"student_ci"`
	SubjectCode string    `db:"subject_code" json:"subject_code"`
	EnrolledOn  time.Time `db:"enrolled_on" json:"enrolled_on"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches an enrollment with descriptive fields.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}
