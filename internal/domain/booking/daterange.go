package booking

import (
	"time"

	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
)

var ErrCheckInInPast = fault.New("booking", "check-in date is in the past", fault.ErrInvalidInput)

// ValidateStay rejects direct stays starting before today.
func ValidateStay(r daterange.Range, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Start.Before(daterange.Day(now)) {
		return ErrCheckInInPast
	}
	return nil
}
