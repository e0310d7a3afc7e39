package models

import "time"

// Prerequisite records that one subject must be passed before another may
// be taken. The (subject_code, prerequisite_code) pair is unique and a
// subject may never reference itself.
type Prerequisite struct {
	ID               string    `db:"id" json:"id"`
	SubjectCode      string    `db:"subject_code" json:"subject_code"`
	PrerequisiteCode string    `db:"prerequisite_code" json:"prerequisite_code"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
