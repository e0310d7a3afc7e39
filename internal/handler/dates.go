package handler

import (
	"time"

	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// parseDate parses a calendar date from the wire format. Field names the
// offending field in the error message.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, field+" must be a date in YYYY-MM-DD format")
	}
	return t, nil
}
