package booking

import (
	"time"

	"booking-portal/internal/models"
)

// Eligible reports whether feedback may be given for b at now: the session
// must have ended and an attendee must be present. A booking that has not
// loaded yet is never eligible.
//
// Status is not consulted: a cancelled booking with an attendee becomes
// eligible once its end time has passed.
func Eligible(now time.Time, b *models.SessionBooking) bool {
	if b == nil || (b.Attendee == nil && b.AttendeeID == nil) {
		return false
	}
	return now.After(b.EndDateTime)
}
