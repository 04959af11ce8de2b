package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds shared by the calculation core. Callers wrap them with %w and
// compare with errors.Is.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidTaxCode         = errors.New("invalid tax code")
	ErrInsufficientBalance    = errors.New("insufficient leave balance")
	ErrQualifyingPeriodNotMet = errors.New("qualifying period not met")
	ErrNoticePeriodNotMet     = errors.New("notice period not met")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrNoPolicyTable          = errors.New("no policy table for date")
	ErrInvalidTransition      = errors.New("invalid leave status transition")
	ErrNotFound               = errors.New("not found")
)

const (
	CodeInvalidInput           = "invalid_input"
	CodeInvalidTaxCode         = "invalid_tax_code"
	CodeInsufficientBalance    = "insufficient_balance"
	CodeQualifyingPeriodNotMet = "qualifying_period_not_met"
	CodeNoticePeriodNotMet     = "notice_period_not_met"
	CodeInvalidDateRange       = "invalid_date_range"
	CodeNoPolicyTable          = "no_policy_table"
	CodeInvalidTransition      = "invalid_transition"
	CodeNotFound               = "not_found"
	CodeInternalError          = "internal_error"
)

type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message != e.Err.Error() {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

var kinds = []struct {
	err    error
	code   string
	status int
}{
	{ErrInvalidTaxCode, CodeInvalidTaxCode, http.StatusUnprocessableEntity},
	{ErrInsufficientBalance, CodeInsufficientBalance, http.StatusUnprocessableEntity},
	{ErrQualifyingPeriodNotMet, CodeQualifyingPeriodNotMet, http.StatusUnprocessableEntity},
	{ErrNoticePeriodNotMet, CodeNoticePeriodNotMet, http.StatusUnprocessableEntity},
	{ErrInvalidDateRange, CodeInvalidDateRange, http.StatusBadRequest},
	{ErrInvalidTransition, CodeInvalidTransition, http.StatusConflict},
	{ErrNoPolicyTable, CodeNoPolicyTable, http.StatusUnprocessableEntity},
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest},
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
}

// From classifies err into an AppError. Unknown errors become internal errors
// with a generic message.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return Wrap(err, k.code, err.Error(), k.status)
		}
	}
	return Wrap(err, CodeInternalError, "an unexpected error occurred", http.StatusInternalServerError)
}
