package leave

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/apperror"
	"kiwipay/internal/platform/policy"
)

// Error map keys.
const (
	FieldLeaveType     = "leave_type"
	FieldStartDate     = "start_date"
	FieldEndDate       = "end_date"
	FieldQualifying    = "qualifying_period"
	FieldNotice        = "notice"
	FieldBookingWindow = "booking_window"
	FieldWorkDays      = "work_days"
	FieldBalance       = "balance"
	FieldDuration      = "duration"
)

var fieldKinds = map[string]error{
	FieldLeaveType:     apperror.ErrInvalidInput,
	FieldStartDate:     apperror.ErrInvalidInput,
	FieldEndDate:       apperror.ErrInvalidDateRange,
	FieldQualifying:    apperror.ErrQualifyingPeriodNotMet,
	FieldNotice:        apperror.ErrNoticePeriodNotMet,
	FieldBookingWindow: apperror.ErrInvalidDateRange,
	FieldWorkDays:      apperror.ErrInvalidInput,
	FieldBalance:       apperror.ErrInsufficientBalance,
	FieldDuration:      apperror.ErrInvalidInput,
}

// Rules is everything validation needs besides the request itself.
type Rules struct {
	Leave    policy.Leave
	Calendar *Calendar
	Today    time.Time
}

// Validation is the outcome of ValidateRequest. Every violated rule has an
// entry in Errors.
type Validation struct {
	Valid    bool              `json:"valid"`
	Errors   map[string]string `json:"errors"`
	WorkDays int               `json:"workDays"`
}

// Err returns nil for a valid request, otherwise a *ValidationError.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return &ValidationError{Fields: v.Errors}
}

// ValidationError carries every violation. errors.Is matches each violated
// error kind.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := e.keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "leave request invalid: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	seen := make(map[error]bool)
	var out []error
	for _, k := range e.keys() {
		kind, ok := fieldKinds[k]
		if !ok || seen[kind] {
			continue
		}
		seen[kind] = true
		out = append(out, kind)
	}
	return out
}

func (e *ValidationError) keys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateRequest checks a request against the leave rules and reports all
// violations together. balanceHours is the employee's current annual leave
// balance and is only consulted for annual leave.
func ValidateRequest(req Request, employmentStart time.Time, balanceHours decimal.Decimal, rules Rules) Validation {
	errs := map[string]string{}
	today := day(rules.Today)
	if rules.Today.IsZero() {
		today = day(time.Now())
	}
	start, end := day(req.StartDate), day(req.EndDate)
	datesOK := true

	if !req.Type.Valid() {
		errs[FieldLeaveType] = fmt.Sprintf("unknown leave type %q", req.Type)
	}
	if req.StartDate.IsZero() {
		errs[FieldStartDate] = "start date is required"
		datesOK = false
	}
	if req.EndDate.IsZero() {
		errs[FieldEndDate] = "end date is required"
		datesOK = false
	}
	if datesOK && end.Before(start) {
		errs[FieldEndDate] = "end date must be on or after the start date"
		datesOK = false
	}

	if req.Type.Valid() {
		if required := QualifyingMonths(req.Type, rules.Leave); !Qualifies(req.Type, rules.Leave, employmentStart, today) {
			errs[FieldQualifying] = fmt.Sprintf("%s leave requires %d months of employment", req.Type, required)
		}
	}

	if req.Type == TypeAnnual && datesOK {
		noticeFrom := today
		if !req.RequestedOn.IsZero() {
			noticeFrom = day(req.RequestedOn)
		}
		if given := daysBetween(noticeFrom, start); given < rules.Leave.AnnualNoticeDays {
			errs[FieldNotice] = fmt.Sprintf("annual leave needs %d days notice, %d given", rules.Leave.AnnualNoticeDays, max(given, 0))
		}
	}

	if datesOK && rules.Leave.MaxAdvanceBookingDays > 0 {
		if ahead := daysBetween(today, start); ahead > rules.Leave.MaxAdvanceBookingDays {
			errs[FieldBookingWindow] = fmt.Sprintf("leave cannot be booked more than %d days ahead", rules.Leave.MaxAdvanceBookingDays)
		}
	}

	workDays := 0
	if datesOK {
		if rules.Calendar != nil {
			workDays, _ = rules.Calendar.WorkDays(start, end)
		} else {
			workDays, _ = WorkDays(start, end, nil)
		}
		if workDays == 0 && req.Type != TypeParental {
			errs[FieldWorkDays] = "request covers no working days"
		}
	}

	if req.Type == TypeAnnual && datesOK {
		needed := decimal.NewFromInt(int64(workDays * rules.Leave.HoursPerDay))
		if needed.GreaterThan(balanceHours) {
			errs[FieldBalance] = fmt.Sprintf("request needs %s hours, balance is %s", needed, balanceHours.StringFixed(2))
		}
	}

	if req.Type == TypeBereavement && datesOK {
		if limit := BereavementEntitlementDays(rules.Leave, req.ImmediateFamily); workDays > limit {
			errs[FieldDuration] = fmt.Sprintf("bereavement leave is limited to %d days", limit)
		}
	}

	return Validation{Valid: len(errs) == 0, Errors: errs, WorkDays: workDays}
}

func daysBetween(from, to time.Time) int {
	return int(day(to).Sub(day(from)).Hours() / 24)
}

// FieldErrors exposes the per-field messages for error responses.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}
