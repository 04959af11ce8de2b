package leavehandler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v3"
	"github.com/shopspring/decimal"

	"kiwipay/internal/domain/leave"
	"kiwipay/internal/domain/payroll"
	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/apperror"
	"kiwipay/internal/transport/http/api"
	"kiwipay/internal/transport/http/middleware"
	"kiwipay/internal/transport/http/shared"
)

type Handler struct {
	Policies payroll.Policies
	Calendar *leave.Calendar
	now      func() time.Time
}

func NewHandler(policies payroll.Policies, calendar *leave.Calendar) *Handler {
	return &Handler{Policies: policies, Calendar: calendar, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Post("/validate", h.handleValidate)
		r.Post("/transition", h.handleTransition)
		r.Post("/payment-rates", h.handlePaymentRates)
		r.Post("/cost", h.handleCost)
		r.Get("/holidays/{year}", h.handleHolidays)
		r.Get("/entitlements", h.handleEntitlements)
	})
}

type requestPayload struct {
	ID              string      `json:"id"`
	EmployeeID      string      `json:"employeeId"`
	LeaveType       leave.Type  `json:"leaveType" validate:"required"`
	StartDate       shared.Date `json:"startDate" validate:"required"`
	EndDate         shared.Date `json:"endDate" validate:"required"`
	Status          string      `json:"status" validate:"omitempty,oneof=pending approved rejected cancelled"`
	ImmediateFamily bool        `json:"immediateFamily"`
	RequestedOn     shared.Date `json:"requestedOn"`
	Reason          string      `json:"reason"`
}

func (p requestPayload) request() leave.Request {
	return leave.Request{
		ID:              p.ID,
		EmployeeID:      p.EmployeeID,
		Type:            p.LeaveType,
		StartDate:       p.StartDate.Time,
		EndDate:         p.EndDate.Time,
		Status:          leave.Status(p.Status),
		ImmediateFamily: p.ImmediateFamily,
		RequestedOn:     p.RequestedOn.Time,
		Reason:          p.Reason,
	}
}

type validatePayload struct {
	Request         requestPayload  `json:"request"`
	EmploymentStart shared.Date     `json:"employmentStart" validate:"required"`
	BalanceHours    decimal.Decimal `json:"balanceHours" validate:"gte=0"`
	Today           shared.Date     `json:"today"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload validatePayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	rules, ok := h.rules(w, r, payload.Today)
	if !ok {
		return
	}
	api.Success(w, leave.ValidateRequest(payload.Request.request(), payload.EmploymentStart.Time, payload.BalanceHours, rules), reqID)
}

type transitionPayload struct {
	Action          string          `json:"action" validate:"required,oneof=submit approve reject cancel"`
	Request         requestPayload  `json:"request"`
	EmploymentStart shared.Date     `json:"employmentStart" validate:"required"`
	BalanceHours    decimal.Decimal `json:"balanceHours" validate:"gte=0"`
	Today           shared.Date     `json:"today"`
}

// handleTransition applies one workflow step to a request. Submit and
// approve revalidate against the current rules.
func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload transitionPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	rules, ok := h.rules(w, r, payload.Today)
	if !ok {
		return
	}
	req := payload.Request.request()

	var (
		next leave.Request
		err  error
	)
	switch payload.Action {
	case "submit":
		next, err = leave.Submit(req, leave.ValidateRequest(req, payload.EmploymentStart.Time, payload.BalanceHours, rules))
	case "approve":
		next, err = leave.Approve(req, leave.ValidateRequest(req, payload.EmploymentStart.Time, payload.BalanceHours, rules))
	case "reject":
		next, err = leave.Reject(req)
	case "cancel":
		next, err = leave.Cancel(req, rules.Leave, rules.Today)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, next, reqID)
}

type ratesPayload struct {
	HourlyRate      decimal.Decimal       `json:"hourlyRate" validate:"gt=0"`
	Entries         []shared.EntryPayload `json:"entries" validate:"dive"`
	IncludeOvertime bool                  `json:"includeOvertime"`
	AsOf            shared.Date           `json:"asOf"`
}

func (p ratesPayload) options() leave.Options {
	return leave.Options{IncludeOvertime: p.IncludeOvertime, AsOf: p.AsOf.Time}
}

func (h *Handler) handlePaymentRates(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload ratesPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	rates, err := leave.Rates(payload.HourlyRate, shared.Entries(payload.Entries), payload.options())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, rates, reqID)
}

type costPayload struct {
	HourlyRate      decimal.Decimal       `json:"hourlyRate" validate:"gt=0"`
	Entries         []shared.EntryPayload `json:"entries" validate:"dive"`
	IncludeOvertime bool                  `json:"includeOvertime"`
	AsOf            shared.Date           `json:"asOf"`
	StartDate       shared.Date           `json:"startDate"`
	EndDate         shared.Date           `json:"endDate"`
	WorkDays        *int                  `json:"workDays" validate:"omitempty,gte=0"`
}

type costResponse struct {
	WorkDays int             `json:"workDays"`
	Cost     decimal.Decimal `json:"cost"`
}

// handleCost prices leave either for an explicit number of work days or for
// the work days between startDate and endDate.
func (h *Handler) handleCost(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload costPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	var workDays int
	if payload.WorkDays != nil {
		workDays = *payload.WorkDays
	} else {
		v := shared.NewValidator()
		if payload.StartDate.IsZero() {
			v.Add("startDate", "is required when workDays is not given")
		}
		if payload.EndDate.IsZero() {
			v.Add("endDate", "is required when workDays is not given")
		}
		if v.Reject(w, reqID) {
			return
		}
		days, err := h.Calendar.WorkDays(payload.StartDate.Time, payload.EndDate.Time)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		workDays = days
	}
	opts := leave.Options{IncludeOvertime: payload.IncludeOvertime, AsOf: payload.AsOf.Time}
	cost, err := leave.Cost(payload.HourlyRate, shared.Entries(payload.Entries), workDays, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, costResponse{WorkDays: workDays, Cost: cost}, reqID)
}

func (h *Handler) handleHolidays(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 2199 {
		h.fail(w, r, fmt.Errorf("year %q: %w", chi.URLParam(r, "year"), apperror.ErrInvalidInput))
		return
	}
	api.Success(w, h.Calendar.PublicHolidays(year), reqID)
}

// handleEntitlements reads startDate and an optional asOf (default today)
// from the query string.
func (h *Handler) handleEntitlements(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()
	v := shared.NewValidator()
	start, err := shared.ParseDate(query.Get("startDate"))
	if err != nil || start.IsZero() {
		v.Add("startDate", "must be a valid date in YYYY-MM-DD format")
	}
	asOf, err := shared.ParseDate(query.Get("asOf"))
	if err != nil {
		v.Add("asOf", "must be a valid date in YYYY-MM-DD format")
	}
	if asOf.IsZero() {
		asOf = timesheet.Day(h.now())
	}
	v.DateOrder("startDate", start, "asOf", asOf)
	if v.Reject(w, reqID) {
		return
	}
	table, err := h.Policies.For(asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, leave.Entitlements(table.Leave, start, asOf), reqID)
}

// rules resolves the leave rules in force on today, which defaults to the
// server date.
func (h *Handler) rules(w http.ResponseWriter, r *http.Request, today shared.Date) (leave.Rules, bool) {
	day := today.Time
	if day.IsZero() {
		day = timesheet.Day(h.now())
	}
	table, err := h.Policies.For(day)
	if err != nil {
		h.fail(w, r, err)
		return leave.Rules{}, false
	}
	return leave.Rules{Leave: table.Leave, Calendar: h.Calendar, Today: day}, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httplog.SetError(r.Context(), err)
	api.FailError(w, err, middleware.GetRequestID(r.Context()))
}
