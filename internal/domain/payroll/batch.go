package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/apperror"
	"kiwipay/internal/platform/metrics"
	"kiwipay/internal/platform/policy"
)

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Source supplies employee records and YTD state to a payroll run and
// persists its output.
type Source interface {
	LoadEmployee(ctx context.Context, employeeID string) (Employee, error)
	LoadTimesheetEntries(ctx context.Context, employeeID string, window Window) ([]timesheet.Entry, error)
	LoadYTDEarnings(ctx context.Context, employeeID string, levyYear int) (decimal.Decimal, error)
	PersistPayslip(ctx context.Context, payslip Payslip) error
}

// Policies resolves the rate table for a pay date. *policy.Registry
// satisfies it.
type Policies interface {
	For(date time.Time) (policy.Table, error)
}

type RunRequest struct {
	RunID       string     `json:"runId"`
	EmployeeIDs []string   `json:"employeeIds"`
	Period      PeriodType `json:"period"`
	PeriodStart time.Time  `json:"periodStart"`
	PeriodEnd   time.Time  `json:"periodEnd"`
	PayDate     time.Time  `json:"payDate"`
}

type EmployeeFailure struct {
	EmployeeID string `json:"employeeId"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

type RunResult struct {
	RunID       string            `json:"runId"`
	PolicyName  string            `json:"policy"`
	Period      PeriodType        `json:"period"`
	PeriodStart time.Time         `json:"periodStart"`
	PeriodEnd   time.Time         `json:"periodEnd"`
	PayDate     time.Time         `json:"payDate"`
	Payslips    []Payslip         `json:"payslips"`
	Failures    []EmployeeFailure `json:"failures"`
}

// Runner computes payslips for many employees at once. Employees are
// processed concurrently; YTD reads and writes for one employee never
// overlap, even across concurrent runs sharing the Runner.
type Runner struct {
	Source   Source
	Policies Policies
	Workers  int
	Metrics  *metrics.Collector
	Logger   *slog.Logger
	locks    keyedMutex
	now      func() time.Time
}

func NewRunner(source Source, policies Policies, workers int, collector *metrics.Collector, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Source:   source,
		Policies: policies,
		Workers:  workers,
		Metrics:  collector,
		Logger:   logger,
		now:      time.Now,
	}
}

// Validate normalises the request in place.
func (req *RunRequest) Validate() error {
	if _, err := req.Period.PeriodsPerYear(); err != nil {
		return err
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		return fmt.Errorf("period start and end are required: %w", apperror.ErrInvalidInput)
	}
	req.PeriodStart = timesheet.Day(req.PeriodStart)
	req.PeriodEnd = timesheet.Day(req.PeriodEnd)
	if req.PeriodEnd.Before(req.PeriodStart) {
		return fmt.Errorf("period ends before it starts: %w", apperror.ErrInvalidDateRange)
	}
	if req.PayDate.IsZero() {
		req.PayDate = req.PeriodEnd
	}
	req.PayDate = timesheet.Day(req.PayDate)
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	req.EmployeeIDs = uniqueIDs(req.EmployeeIDs)
	if len(req.EmployeeIDs) == 0 {
		return fmt.Errorf("at least one employee is required: %w", apperror.ErrInvalidInput)
	}
	return nil
}

// Run calculates and persists a payslip per employee. A failing employee is
// reported in RunResult.Failures and does not stop the others; only request
// errors and context cancellation fail the run itself.
func (r *Runner) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	started := r.now()
	r.Metrics.RunStarted()

	result, err := r.run(ctx, req)
	r.Metrics.RunFinished(len(result.Payslips), len(result.Failures), r.now().Sub(started), err)
	if err != nil {
		r.Logger.Warn("payroll run failed", "runId", req.RunID, "err", err)
		return result, err
	}
	r.Logger.Info("payroll run completed", "runId", result.RunID,
		"payslips", len(result.Payslips), "failures", len(result.Failures))
	return result, nil
}

func (r *Runner) run(ctx context.Context, req RunRequest) (RunResult, error) {
	if err := req.Validate(); err != nil {
		return RunResult{RunID: req.RunID}, err
	}
	table, err := r.Policies.For(req.PayDate)
	if err != nil {
		return RunResult{RunID: req.RunID}, err
	}
	calc := NewCalculator(table)

	result := RunResult{
		RunID:       req.RunID,
		PolicyName:  table.Name,
		Period:      req.Period,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		PayDate:     req.PayDate,
		Payslips:    []Payslip{},
		Failures:    []EmployeeFailure{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for _, employeeID := range req.EmployeeIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			payslip, err := r.runEmployee(gctx, calc, req, employeeID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				appErr := apperror.From(err)
				r.Logger.Warn("payroll employee failed", "runId", req.RunID, "employeeId", employeeID, "err", err)
				result.Failures = append(result.Failures, EmployeeFailure{
					EmployeeID: employeeID,
					Code:       appErr.Code,
					Message:    appErr.Message,
				})
				return nil
			}
			result.Payslips = append(result.Payslips, payslip)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	sort.Slice(result.Payslips, func(i, j int) bool { return result.Payslips[i].EmployeeID < result.Payslips[j].EmployeeID })
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].EmployeeID < result.Failures[j].EmployeeID })
	return result, nil
}

func (r *Runner) runEmployee(ctx context.Context, calc *Calculator, req RunRequest, employeeID string) (Payslip, error) {
	unlock := r.locks.Lock(employeeID)
	defer unlock()

	employee, err := r.Source.LoadEmployee(ctx, employeeID)
	if err != nil {
		return Payslip{}, err
	}
	if employee.Status == StatusInactive {
		return Payslip{}, fmt.Errorf("employee %s is inactive: %w", employeeID, apperror.ErrInvalidInput)
	}
	entries, err := r.Source.LoadTimesheetEntries(ctx, employeeID, Window{Start: req.PeriodStart, End: req.PeriodEnd})
	if err != nil {
		return Payslip{}, fmt.Errorf("load timesheets: %w", err)
	}
	levyYear := LevyYear(req.PayDate)
	ytd, err := r.Source.LoadYTDEarnings(ctx, employeeID, levyYear)
	if err != nil {
		return Payslip{}, fmt.Errorf("load acc ytd: %w", err)
	}

	res, err := calc.Calculate(employee, entries, req.Period, ytd)
	if err != nil {
		return Payslip{}, err
	}

	payslip := Payslip{
		ID:           uuid.NewString(),
		RunID:        req.RunID,
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
		TaxCode:      NormalizeTaxCode(employee.TaxCode),
		Period:       req.Period,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		PayDate:      req.PayDate,
		LevyYear:     levyYear,
		Result:       res,
		CreatedAt:    r.now().UTC(),
	}
	if err := r.Source.PersistPayslip(ctx, payslip); err != nil {
		return Payslip{}, fmt.Errorf("persist payslip: %w", err)
	}
	r.Metrics.Calculation(res.MinimumWageCheck.Compliant)
	return payslip, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu      sync.Mutex
	waiters int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.waiters++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.waiters--
		if l.waiters == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
