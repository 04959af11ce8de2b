package payrollhandler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kiwipay/internal/domain/payroll"
	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/jobs"
	"kiwipay/internal/platform/metrics"
	"kiwipay/internal/transport/http/api"
	"kiwipay/internal/transport/http/middleware"
	"kiwipay/internal/transport/http/shared"
)

// RunQueue schedules batch runs. *jobs.Service satisfies it.
type RunQueue interface {
	Enqueue(req payroll.RunRequest) (jobs.Run, error)
	RunNow(ctx context.Context, req payroll.RunRequest) (payroll.RunResult, error)
	Get(runID string) (jobs.Run, bool)
}

// Directory is the employee store behind runs. *payroll.Store satisfies it.
type Directory interface {
	SaveEmployee(ctx context.Context, emp payroll.Employee) error
	ListActiveEmployeeIDs(ctx context.Context) ([]string, error)
}

type Handler struct {
	Policies  payroll.Policies
	Runs      RunQueue
	Directory Directory
	Metrics   *metrics.Collector
	now       func() time.Time
}

// NewHandler wires the calculation endpoints. runs and directory may be nil
// when no database is configured; the run and employee endpoints then answer
// 503.
func NewHandler(policies payroll.Policies, runs RunQueue, directory Directory, collector *metrics.Collector) *Handler {
	return &Handler{
		Policies:  policies,
		Runs:      runs,
		Directory: directory,
		Metrics:   collector,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Post("/paye", h.handlePAYE)
		r.Post("/kiwisaver", h.handleKiwiSaver)
		r.Post("/acc", h.handleACC)
		r.Post("/calculate", h.handleCalculate)
		r.Post("/payslip.pdf", h.handlePayslipPDF)
		r.Post("/employees", h.handleSaveEmployee)
		r.Post("/runs", h.handleCreateRun)
		r.Get("/runs/{runID}", h.handleGetRun)
		r.Get("/runs/{runID}/register.xlsx", h.handleRegister)
	})
}

type payePayload struct {
	TaxCode   string             `json:"taxCode" validate:"required"`
	PeriodPay decimal.Decimal    `json:"periodPay" validate:"gte=0"`
	Period    payroll.PeriodType `json:"period" validate:"required,oneof=weekly fortnightly monthly"`
	PayDate   shared.Date        `json:"payDate"`
}

type payeResponse struct {
	Policy    string             `json:"policy"`
	TaxCode   string             `json:"taxCode"`
	Period    payroll.PeriodType `json:"period"`
	AnnualPay decimal.Decimal    `json:"annualPay"`
	AnnualTax decimal.Decimal    `json:"annualTax"`
	PeriodTax decimal.Decimal    `json:"periodTax"`
}

func (h *Handler) handlePAYE(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload payePayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	calc, ok := h.calculator(w, r, payload.PayDate)
	if !ok {
		return
	}
	periods, err := payload.Period.PeriodsPerYear()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	annualPay := payload.PeriodPay.Mul(decimal.NewFromInt(periods))
	annualTax, err := calc.AnnualPAYETax(annualPay, payload.TaxCode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	periodTax, err := calc.PeriodPAYETax(payload.PeriodPay, payload.TaxCode, payload.Period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, payeResponse{
		Policy:    calc.Table().Name,
		TaxCode:   payroll.NormalizeTaxCode(payload.TaxCode),
		Period:    payload.Period,
		AnnualPay: annualPay,
		AnnualTax: annualTax,
		PeriodTax: periodTax,
	}, reqID)
}

type kiwiSaverPayload struct {
	GrossPay     decimal.Decimal `json:"grossPay" validate:"gte=0"`
	EmployeeRate decimal.Decimal `json:"employeeRate" validate:"gte=0"`
	Enrolled     bool            `json:"enrolled"`
	PayDate      shared.Date     `json:"payDate"`
}

type kiwiSaverResponse struct {
	payroll.KiwiSaverResult
	AppliedRate decimal.Decimal `json:"appliedRate"`
}

func (h *Handler) handleKiwiSaver(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload kiwiSaverPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	calc, ok := h.calculator(w, r, payload.PayDate)
	if !ok {
		return
	}
	res, err := calc.KiwiSaver(payload.GrossPay, payload.EmployeeRate, payload.Enrolled)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	applied := decimal.Zero
	if payload.Enrolled {
		applied = calc.ClampKiwiSaverRate(payload.EmployeeRate)
	}
	api.Success(w, kiwiSaverResponse{KiwiSaverResult: res, AppliedRate: applied}, reqID)
}

type accPayload struct {
	GrossPay    decimal.Decimal    `json:"grossPay" validate:"gte=0"`
	YTDEarnings decimal.Decimal    `json:"ytdEarnings" validate:"gte=0"`
	Period      payroll.PeriodType `json:"period" validate:"required,oneof=weekly fortnightly monthly"`
	PayDate     shared.Date        `json:"payDate"`
}

type accResponse struct {
	payroll.ACCResult
	LevyYear int `json:"levyYear"`
}

func (h *Handler) handleACC(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload accPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	calc, ok := h.calculator(w, r, payload.PayDate)
	if !ok {
		return
	}
	res, err := calc.ACCLevy(payload.GrossPay, payload.YTDEarnings, payload.Period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, accResponse{ACCResult: res, LevyYear: payroll.LevyYear(h.payDate(payload.PayDate))}, reqID)
}

type employeePayload struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	HourlyRate        decimal.Decimal        `json:"hourlyRate" validate:"gt=0"`
	EmploymentType    payroll.EmploymentType `json:"employmentType" validate:"required,oneof=salary hourly training"`
	TaxCode           string                 `json:"taxCode" validate:"required"`
	KiwiSaverEnrolled bool                   `json:"kiwiSaverEnrolled"`
	KiwiSaverRate     decimal.Decimal        `json:"kiwiSaverRate" validate:"gte=0"`
	IRDNumber         string                 `json:"irdNumber" validate:"omitempty,ird"`
	StartDate         shared.Date            `json:"startDate"`
	Status            string                 `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (p employeePayload) employee() payroll.Employee {
	status := p.Status
	if status == "" {
		status = payroll.StatusActive
	}
	ird := p.IRDNumber
	if normalized, err := payroll.NormalizeIRDNumber(ird); err == nil {
		ird = normalized
	}
	return payroll.Employee{
		ID:                p.ID,
		Name:              p.Name,
		HourlyRate:        p.HourlyRate,
		EmploymentType:    p.EmploymentType,
		TaxCode:           p.TaxCode,
		KiwiSaverEnrolled: p.KiwiSaverEnrolled,
		KiwiSaverRate:     p.KiwiSaverRate,
		IRDNumber:         ird,
		StartDate:         p.StartDate.Time,
		Status:            status,
	}
}

type calculatePayload struct {
	Employee    employeePayload       `json:"employee"`
	Entries     []shared.EntryPayload `json:"entries" validate:"dive"`
	Period      payroll.PeriodType    `json:"period" validate:"required,oneof=weekly fortnightly monthly"`
	PeriodStart shared.Date           `json:"periodStart"`
	PeriodEnd   shared.Date           `json:"periodEnd"`
	PayDate     shared.Date           `json:"payDate"`
	YTDEarnings decimal.Decimal       `json:"ytdEarnings" validate:"gte=0"`
}

type calculateResponse struct {
	Policy   string `json:"policy"`
	LevyYear int    `json:"levyYear"`
	payroll.Result
}

// calculate runs the shared part of /calculate and /payslip.pdf.
func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) (calculatePayload, *payroll.Calculator, payroll.Result, bool) {
	reqID := middleware.GetRequestID(r.Context())
	var payload calculatePayload
	if !shared.Decode(w, r, &payload, reqID) {
		return payload, nil, payroll.Result{}, false
	}
	v := shared.NewValidator()
	v.DateOrder("periodStart", payload.PeriodStart.Time, "periodEnd", payload.PeriodEnd.Time)
	if v.Reject(w, reqID) {
		return payload, nil, payroll.Result{}, false
	}
	calc, ok := h.calculator(w, r, payload.PayDate)
	if !ok {
		return payload, nil, payroll.Result{}, false
	}
	entries := shared.Entries(payload.Entries)
	if !payload.PeriodStart.IsZero() && !payload.PeriodEnd.IsZero() {
		entries = inWindow(entries, payload.PeriodStart.Time, payload.PeriodEnd.Time)
	}
	res, err := calc.Calculate(payload.Employee.employee(), entries, payload.Period, payload.YTDEarnings)
	if err != nil {
		h.fail(w, r, err)
		return payload, nil, payroll.Result{}, false
	}
	h.Metrics.Calculation(res.MinimumWageCheck.Compliant)
	return payload, calc, res, true
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	payload, calc, res, ok := h.calculate(w, r)
	if !ok {
		return
	}
	api.Success(w, calculateResponse{
		Policy:   calc.Table().Name,
		LevyYear: payroll.LevyYear(h.payDate(payload.PayDate)),
		Result:   res,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayslipPDF(w http.ResponseWriter, r *http.Request) {
	payload, _, res, ok := h.calculate(w, r)
	if !ok {
		return
	}
	payDate := h.payDate(payload.PayDate)
	emp := payload.Employee.employee()
	slip := payroll.Payslip{
		ID:           uuid.NewString(),
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
		TaxCode:      payroll.NormalizeTaxCode(emp.TaxCode),
		Period:       payload.Period,
		PeriodStart:  payload.PeriodStart.Time,
		PeriodEnd:    payload.PeriodEnd.Time,
		PayDate:      payDate,
		LevyYear:     payroll.LevyYear(payDate),
		Result:       res,
		CreatedAt:    h.now().UTC(),
	}
	var buf bytes.Buffer
	if err := payroll.WritePayslipPDF(&buf, slip); err != nil {
		h.fail(w, r, fmt.Errorf("render payslip: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payslip-%s.pdf", payDate.Format(shared.DateLayout)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleSaveEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Directory == nil {
		api.Fail(w, http.StatusServiceUnavailable, "storage_unavailable", "employee storage is not configured", reqID)
		return
	}
	var payload employeePayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	emp := payload.employee()
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if err := h.Directory.SaveEmployee(r.Context(), emp); err != nil {
		h.fail(w, r, err)
		return
	}
	emp.IRDNumber = ""
	api.WriteJSON(w, http.StatusCreated, api.Envelope{Success: true, Data: emp, RequestID: reqID})
}

type runPayload struct {
	RunID       string             `json:"runId"`
	EmployeeIDs []string           `json:"employeeIds"`
	Period      payroll.PeriodType `json:"period" validate:"required,oneof=weekly fortnightly monthly"`
	PeriodStart shared.Date        `json:"periodStart" validate:"required"`
	PeriodEnd   shared.Date        `json:"periodEnd" validate:"required"`
	PayDate     shared.Date        `json:"payDate"`
}

// handleCreateRun queues a batch run. With ?wait=true the run executes
// before the response is written. An empty employee list means every active
// employee.
func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Runs == nil {
		api.Fail(w, http.StatusServiceUnavailable, "runs_unavailable", "payroll runs need a configured database", reqID)
		return
	}
	var payload runPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.DateOrder("periodStart", payload.PeriodStart.Time, "periodEnd", payload.PeriodEnd.Time)
	if v.Reject(w, reqID) {
		return
	}

	ids := payload.EmployeeIDs
	if len(ids) == 0 && h.Directory != nil {
		active, err := h.Directory.ListActiveEmployeeIDs(r.Context())
		if err != nil {
			h.fail(w, r, fmt.Errorf("list active employees: %w", err))
			return
		}
		ids = active
	}
	req := payroll.RunRequest{
		RunID:       payload.RunID,
		EmployeeIDs: ids,
		Period:      payload.Period,
		PeriodStart: payload.PeriodStart.Time,
		PeriodEnd:   payload.PeriodEnd.Time,
		PayDate:     payload.PayDate.Time,
	}

	if r.URL.Query().Get("wait") == "true" {
		result, err := h.Runs.RunNow(r.Context(), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		api.Success(w, result, reqID)
		return
	}
	run, err := h.Runs.Enqueue(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/payroll/runs/"+run.ID)
	api.Accepted(w, run, reqID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	if run.Status != jobs.StatusCompleted || run.Result == nil {
		api.Fail(w, http.StatusConflict, "run_not_complete", "run "+run.ID+" is "+string(run.Status), middleware.GetRequestID(r.Context()))
		return
	}
	var buf bytes.Buffer
	if err := payroll.WriteRegisterXLSX(&buf, *run.Result); err != nil {
		h.fail(w, r, fmt.Errorf("render register: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=register-"+run.ID+".xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) lookupRun(w http.ResponseWriter, r *http.Request) (jobs.Run, bool) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Runs == nil {
		api.Fail(w, http.StatusServiceUnavailable, "runs_unavailable", "payroll runs need a configured database", reqID)
		return jobs.Run{}, false
	}
	runID := chi.URLParam(r, "runID")
	run, ok := h.Runs.Get(runID)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "run "+runID+" not found", reqID)
		return jobs.Run{}, false
	}
	return run, true
}

func (h *Handler) calculator(w http.ResponseWriter, r *http.Request, payDate shared.Date) (*payroll.Calculator, bool) {
	table, err := h.Policies.For(h.payDate(payDate))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return payroll.NewCalculator(table), true
}

func (h *Handler) payDate(d shared.Date) time.Time {
	if d.IsZero() {
		return timesheet.Day(h.now())
	}
	return d.Time
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httplog.SetError(r.Context(), err)
	api.FailError(w, err, middleware.GetRequestID(r.Context()))
}

func inWindow(entries []timesheet.Entry, start, end time.Time) []timesheet.Entry {
	out := make([]timesheet.Entry, 0, len(entries))
	for _, e := range entries {
		d := timesheet.Day(e.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}
