package leave

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwipay/internal/platform/apperror"
)

func TestRequestLifecycle(t *testing.T) {
	req := annual(date(2024, time.June, 10), date(2024, time.June, 14))
	v := ValidateRequest(req, longServing, eightyHours, testRules())

	pending, err := Submit(req, v)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pending.Status)

	approved, err := Approve(pending, v)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	_, err = Approve(approved, v)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	_, err = Reject(approved)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	cancelled, err := Cancel(approved, testRulesLeave, today)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = Submit(cancelled, v)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	req := annual(today.AddDate(0, 0, 5), today.AddDate(0, 0, 6))
	v := ValidateRequest(req, longServing, eightyHours, testRules())

	out, err := Submit(req, v)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, FieldNotice)
	assert.Empty(t, out.Status)
}

func TestRejectPending(t *testing.T) {
	rejected, err := Reject(Request{Type: TypeSick, Status: StatusPending})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	_, err = Cancel(rejected, testRulesLeave, today)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestCancelNeedsNotice(t *testing.T) {
	approved := Request{Type: TypeAnnual, Status: StatusApproved, StartDate: today.AddDate(0, 0, 5), EndDate: today.AddDate(0, 0, 6)}

	out, err := Cancel(approved, testRulesLeave, today)
	assert.ErrorIs(t, err, apperror.ErrNoticePeriodNotMet)
	assert.Equal(t, StatusApproved, out.Status)

	_, err = Cancel(Request{Status: StatusPending}, testRulesLeave, today)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}
