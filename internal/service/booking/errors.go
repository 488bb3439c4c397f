package booking

import "errors"

// RejectionCode classifies why a booking operation was refused. Codes are
// stable API values; reasons are the human-readable detail shown to the
// caller.
type RejectionCode string

const (
	CodeRuleViolation        RejectionCode = "rule_violation"
	CodeSlotLocked           RejectionCode = "slot_locked"
	CodeLockInvalid          RejectionCode = "lock_invalid_or_expired"
	CodeSlotTaken            RejectionCode = "slot_already_booked"
	CodeRescheduleNotAllowed RejectionCode = "reschedule_not_allowed"
	CodePermissionDenied     RejectionCode = "permission_denied"
)

// Rejection is a business refusal, distinct from infrastructure errors. The
// HTTP layer maps it to 409/422 depending on the code.
type Rejection struct {
	Code   RejectionCode
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func reject(code RejectionCode, reason string) error {
	return &Rejection{Code: code, Reason: reason}
}

// AsRejection unwraps err into a Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
