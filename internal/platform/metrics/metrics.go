package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-wide counters for the /metrics endpoint.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	clientErrors    uint64
	totalDurationMs uint64

	runsStarted       uint64
	runsCompleted     uint64
	runsFailed        uint64
	payslipsIssued    uint64
	employeesFailed   uint64
	minWageBreaches   uint64
	runDurationMs     uint64
	calculationsTotal uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	switch {
	case status >= 500:
		atomic.AddUint64(&c.errorRequests, 1)
	case status >= 400:
		atomic.AddUint64(&c.clientErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// Calculation counts one successful single-employee calculation.
func (c *Collector) Calculation(minimumWageCompliant bool) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.calculationsTotal, 1)
	if !minimumWageCompliant {
		atomic.AddUint64(&c.minWageBreaches, 1)
	}
}

func (c *Collector) RunStarted() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.runsStarted, 1)
}

// RunFinished records a batch run outcome. err is the run-level error; failed
// employees inside a completed run are counted separately.
func (c *Collector) RunFinished(payslips, failedEmployees int, duration time.Duration, err error) {
	if c == nil {
		return
	}
	if err != nil {
		atomic.AddUint64(&c.runsFailed, 1)
	} else {
		atomic.AddUint64(&c.runsCompleted, 1)
	}
	atomic.AddUint64(&c.payslipsIssued, uint64(payslips))
	atomic.AddUint64(&c.employeesFailed, uint64(failedEmployees))
	atomic.AddUint64(&c.runDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          atomic.LoadUint64(&c.errorRequests),
		"clientErrorsTotal":    atomic.LoadUint64(&c.clientErrors),
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
		"calculationsTotal":    atomic.LoadUint64(&c.calculationsTotal),
		"minimumWageBreaches":  atomic.LoadUint64(&c.minWageBreaches),
		"payrollRunsStarted":   atomic.LoadUint64(&c.runsStarted),
		"payrollRunsCompleted": atomic.LoadUint64(&c.runsCompleted),
		"payrollRunsFailed":    atomic.LoadUint64(&c.runsFailed),
		"payslipsIssued":       atomic.LoadUint64(&c.payslipsIssued),
		"employeesFailed":      atomic.LoadUint64(&c.employeesFailed),
		"payrollRunDurationMs": atomic.LoadUint64(&c.runDurationMs),
	}
}
