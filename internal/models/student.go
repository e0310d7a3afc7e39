package models

import "time"

// Student represents a learner registered at the university. The national
// identity number (CI) is the natural key used for lookups and references.
type Student struct {
	CI              string    `db:"ci" json:"ci"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Email           string    `db:"email" json:"email"`
	BirthDate       time.Time `db:"birth_date" json:"birth_date"`
	RegistrationNum string    `db:"registration_num" json:"registration_num"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
