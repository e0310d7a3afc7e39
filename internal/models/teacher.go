package models

import "time"

// Teacher represents a member of the teaching staff, keyed by national
// identity number (CI).
type Teacher struct {
	CI          string    `db:"ci" json:"ci"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	Department  string    `db:"department" json:"department"`
	EmployeeNum string    `db:"employee_num" json:"employee_num"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
