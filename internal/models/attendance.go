package models

import "time"

// Attendance records whether a student was present in a course section on
// a given date. The (student_ci, course_id, date) triple is unique.
type Attendance struct {
	ID        string    `db:"id" json:"id"`
	StudentCI string    `db:"student_ci" json:"student_ci"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
