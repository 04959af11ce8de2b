package leave

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwipay/internal/platform/apperror"
	"kiwipay/internal/platform/policy/policytest"
)

var (
	today          = date(2024, time.May, 6)
	longServing    = date(2020, time.January, 1)
	eightyHours    = decimal.NewFromInt(80)
	testRulesLeave = policytest.Table().Leave
	allLeaveTypes  = []Type{TypeAnnual, TypeSick, TypeBereavement, TypeFamilyViolence, TypeParental}
)

func testRules() Rules {
	return Rules{Leave: testRulesLeave, Calendar: NewCalendar(nil), Today: today}
}

func annual(start, end time.Time) Request {
	return Request{Type: TypeAnnual, StartDate: start, EndDate: end}
}

func TestValidateRequestAcceptsValidAnnualLeave(t *testing.T) {
	v := ValidateRequest(annual(date(2024, time.June, 10), date(2024, time.June, 14)), longServing, eightyHours, testRules())
	assert.True(t, v.Valid, "%v", v.Errors)
	assert.Empty(t, v.Errors)
	assert.Equal(t, 5, v.WorkDays)
	assert.NoError(t, v.Err())
}

func TestValidateRequestShortNotice(t *testing.T) {
	v := ValidateRequest(annual(today.AddDate(0, 0, 10), today.AddDate(0, 0, 11)), longServing, eightyHours, testRules())
	assert.False(t, v.Valid)
	require.Contains(t, v.Errors, FieldNotice)
	assert.Equal(t, "annual leave needs 14 days notice, 10 given", v.Errors[FieldNotice])
	assert.ErrorIs(t, v.Err(), apperror.ErrNoticePeriodNotMet)
}

func TestValidateRequestNoticeFromRequestedOn(t *testing.T) {
	req := annual(today.AddDate(0, 0, 10), today.AddDate(0, 0, 11))
	req.RequestedOn = today.AddDate(0, 0, -7)
	v := ValidateRequest(req, longServing, eightyHours, testRules())
	assert.True(t, v.Valid, "%v", v.Errors)
}

func TestValidateRequestEndBeforeStart(t *testing.T) {
	for _, lt := range allLeaveTypes {
		req := Request{Type: lt, StartDate: date(2024, time.July, 10), EndDate: date(2024, time.July, 9)}
		v := ValidateRequest(req, longServing, eightyHours, testRules())
		assert.False(t, v.Valid, lt)
		assert.NotEmpty(t, v.Errors, lt)
		assert.Contains(t, v.Errors, FieldEndDate, lt)
		assert.ErrorIs(t, v.Err(), apperror.ErrInvalidDateRange)
	}
}

func TestValidateRequestAccumulatesViolations(t *testing.T) {
	req := annual(today.AddDate(0, 0, 3), today.AddDate(0, 0, 4))
	v := ValidateRequest(req, date(2024, time.March, 1), decimal.Zero, testRules())

	assert.False(t, v.Valid)
	assert.Contains(t, v.Errors, FieldQualifying)
	assert.Contains(t, v.Errors, FieldNotice)
	assert.Contains(t, v.Errors, FieldBalance)
	assert.Len(t, v.Errors, 3)

	err := v.Err()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, v.Errors, verr.Fields)
	assert.ErrorIs(t, err, apperror.ErrQualifyingPeriodNotMet)
	assert.ErrorIs(t, err, apperror.ErrNoticePeriodNotMet)
	assert.ErrorIs(t, err, apperror.ErrInsufficientBalance)
	assert.NotErrorIs(t, err, apperror.ErrInvalidDateRange)
}

func TestValidateRequestBalance(t *testing.T) {
	req := annual(date(2024, time.July, 8), date(2024, time.July, 19))

	v := ValidateRequest(req, longServing, decimal.RequireFromString("79.5"), testRules())
	assert.Equal(t, 10, v.WorkDays)
	assert.Equal(t, "request needs 80 hours, balance is 79.50", v.Errors[FieldBalance])

	v = ValidateRequest(req, longServing, eightyHours, testRules())
	assert.True(t, v.Valid, "%v", v.Errors)
}

func TestValidateRequestHolidaysReduceBalanceNeeded(t *testing.T) {
	req := annual(date(2024, time.December, 23), date(2025, time.January, 3))
	v := ValidateRequest(req, longServing, decimal.NewFromInt(48), testRules())
	assert.True(t, v.Valid, "%v", v.Errors)
	assert.Equal(t, 6, v.WorkDays)
}

func TestValidateRequestQualifyingPeriods(t *testing.T) {
	sick := Request{Type: TypeSick, StartDate: today, EndDate: today}

	v := ValidateRequest(sick, date(2024, time.January, 1), decimal.Zero, testRules())
	assert.Contains(t, v.Errors, FieldQualifying)

	v = ValidateRequest(sick, date(2023, time.November, 6), decimal.Zero, testRules())
	assert.True(t, v.Valid, "%v", v.Errors)
}

func TestValidateRequestBereavementCap(t *testing.T) {
	start := date(2024, time.May, 7)
	other := Request{Type: TypeBereavement, StartDate: start, EndDate: start.AddDate(0, 0, 1)}

	v := ValidateRequest(other, longServing, decimal.Zero, testRules())
	assert.Equal(t, "bereavement leave is limited to 1 days", v.Errors[FieldDuration])

	immediate := other
	immediate.ImmediateFamily = true
	immediate.EndDate = start.AddDate(0, 0, 2)
	v = ValidateRequest(immediate, longServing, decimal.Zero, testRules())
	assert.True(t, v.Valid, "%v", v.Errors)
}

func TestValidateRequestBookingWindow(t *testing.T) {
	req := annual(date(2025, time.June, 2), date(2025, time.June, 3))
	v := ValidateRequest(req, longServing, eightyHours, testRules())
	assert.Contains(t, v.Errors, FieldBookingWindow)
	assert.Len(t, v.Errors, 1)
}

func TestValidateRequestMissingFields(t *testing.T) {
	v := ValidateRequest(Request{Type: "gardening"}, longServing, eightyHours, testRules())
	assert.Contains(t, v.Errors, FieldLeaveType)
	assert.Contains(t, v.Errors, FieldStartDate)
	assert.Contains(t, v.Errors, FieldEndDate)
	assert.Equal(t, "end date is required", v.Errors[FieldEndDate])

	noStart := Request{Type: TypeSick, EndDate: date(2024, time.May, 14)}
	v = ValidateRequest(noStart, longServing, eightyHours, testRules())
	assert.Contains(t, v.Errors, FieldStartDate)
	assert.NotContains(t, v.Errors, FieldEndDate)

	weekend := Request{Type: TypeSick, StartDate: date(2024, time.May, 11), EndDate: date(2024, time.May, 12)}
	v = ValidateRequest(weekend, longServing, eightyHours, testRules())
	assert.Contains(t, v.Errors, FieldWorkDays)
}
