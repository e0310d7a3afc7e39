package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres class 23 code raised when a unique
// constraint rejects a write.
const uniqueViolation = pq.ErrorCode("23505")

// IsUniqueViolation reports whether err is a storage-level unique constraint
// rejection. Services use this to translate races that slip past the
// application-level uniqueness pre-check into the same domain error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
