package validators

import (
	"fmt"
	"time"

	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// maxValidUntil is the protocol sentinel for an unbounded consent validity.
var maxValidUntil = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// ParseDateField parses an ISO yyyy-MM-dd field, producing a FORMAT_ERROR
// naming the field on malformed input.
func ParseDateField(fieldName, value string) (time.Time, *errors.Error) {
	date, err := utils.ParseISODate(value)
	if err != nil {
		return time.Time{}, errors.FormatError(
			fmt.Sprintf("Invalid date format for %s. Needs to be in ISO date format yyyy-MM-dd", fieldName))
	}
	return date, nil
}

// ValidateFutureDateField parses a date field and rejects dates before today
// UTC with TIMESTAMP_INVALID.
func ValidateFutureDateField(fieldName, value string) (time.Time, *errors.Error) {
	date, err := ParseDateField(fieldName, value)
	if err != nil {
		return time.Time{}, err
	}
	if utils.IsPastDate(date) {
		return time.Time{}, errors.TimestampInvalid(
			fmt.Sprintf("%s must not be a past date", fieldName))
	}
	return date, nil
}

// GetValidatedValidUntil normalizes a consent's requested validUntil date.
// Past dates are rejected; when the date cap is enabled a date beyond
// today+capDays is clamped down to that bound; otherwise a date beyond the
// protocol sentinel 9999-12-31 is clamped to the sentinel. Re-validating an
// already-normalized date returns the same date.
func GetValidatedValidUntil(requested string, capEnabled bool, capDays int) (time.Time, *errors.Error) {
	date, err := ValidateFutureDateField("validUntil", requested)
	if err != nil {
		return time.Time{}, err
	}

	if capEnabled {
		capDate := utils.DaysFromToday(capDays)
		if date.After(capDate) {
			return capDate, nil
		}
		return date, nil
	}

	if date.After(maxValidUntil) {
		return maxValidUntil, nil
	}
	return date, nil
}
