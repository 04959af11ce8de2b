package leave

import (
	"fmt"
	"time"

	"kiwipay/internal/platform/apperror"
	"kiwipay/internal/platform/policy"
)

// Submit moves a new request to pending when it passes validation.
func Submit(req Request, v Validation) (Request, error) {
	if req.Status != "" && req.Status != StatusPending {
		return req, transitionError(req.Status, StatusPending)
	}
	if err := v.Err(); err != nil {
		return req, err
	}
	req.Status = StatusPending
	return req, nil
}

// Approve requires a fresh validation so balance and notice are rechecked at
// approval time.
func Approve(req Request, v Validation) (Request, error) {
	if req.Status != StatusPending {
		return req, transitionError(req.Status, StatusApproved)
	}
	if err := v.Err(); err != nil {
		return req, err
	}
	req.Status = StatusApproved
	return req, nil
}

func Reject(req Request) (Request, error) {
	if req.Status != StatusPending {
		return req, transitionError(req.Status, StatusRejected)
	}
	req.Status = StatusRejected
	return req, nil
}

// Cancel withdraws approved leave, which is only allowed with the
// cancellation notice the rules require before the leave starts.
func Cancel(req Request, rules policy.Leave, today time.Time) (Request, error) {
	if req.Status != StatusApproved {
		return req, transitionError(req.Status, StatusCancelled)
	}
	if given := daysBetween(today, req.StartDate); given < rules.CancellationNoticeDays {
		return req, fmt.Errorf("cancellation needs %d days notice, %d given: %w",
			rules.CancellationNoticeDays, max(given, 0), apperror.ErrNoticePeriodNotMet)
	}
	req.Status = StatusCancelled
	return req, nil
}

func transitionError(from, to Status) error {
	if from == "" {
		from = "new"
	}
	return fmt.Errorf("%s to %s: %w", from, to, apperror.ErrInvalidTransition)
}
