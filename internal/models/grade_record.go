package models

import "time"

// GradeRecord stores the score a student earned on one evaluation of a
// course. The (student_ci, course_id, evaluation) triple is unique, with
// the evaluation name compared case-insensitively.
type GradeRecord struct {
	ID         string    `db:"id" json:"id"`
	StudentCI  string    `db:"student_ci" json:"student_ci"`
	CourseID   int64     `db:"course_id" json:"course_id"`
	Evaluation string    `db:"evaluation" json:"evaluation"`
	Score      float64   `db:"score" json:"score"`
	RecordedOn time.Time `db:"recorded_on" json:"recorded_on"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
