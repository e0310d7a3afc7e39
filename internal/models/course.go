package models

import "time"

// Course is a scheduled section: a weekday/time slot within an academic
// term and year. Unlike the other primary entities it carries no natural
// key, only the surrogate integer id.
type Course struct {
	ID        int64     `db:"id" json:"id"`
	Weekday   string    `db:"weekday" json:"weekday"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Term      string    `db:"term" json:"term"`
	Year      int       `db:"year" json:"year"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
