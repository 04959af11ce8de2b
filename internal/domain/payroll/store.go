package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"kiwipay/internal/domain/timesheet"
	"kiwipay/internal/platform/apperror"
	"kiwipay/internal/platform/crypto"
	"kiwipay/internal/platform/db"
)

// Store is the Postgres-backed Source. Numeric columns travel as text so
// decimals never pass through float64.
type Store struct {
	DB     db.Querier
	Crypto *crypto.Service
}

func NewStore(q db.Querier, c *crypto.Service) *Store {
	return &Store{DB: q, Crypto: c}
}

func (s *Store) LoadEmployee(ctx context.Context, employeeID string) (Employee, error) {
	var (
		emp        Employee
		rate, ks   string
		irdSealed  []byte
		employment string
	)
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, hourly_rate::text, employment_type, tax_code,
           kiwisaver_enrolled, kiwisaver_rate::text, ird_number, start_date, status
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&emp.ID, &emp.Name, &rate, &employment, &emp.TaxCode,
		&emp.KiwiSaverEnrolled, &ks, &irdSealed, &emp.StartDate, &emp.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, fmt.Errorf("employee %s: %w", employeeID, apperror.ErrNotFound)
	}
	if err != nil {
		return Employee{}, err
	}
	emp.EmploymentType = EmploymentType(employment)
	if emp.HourlyRate, err = decimal.NewFromString(rate); err != nil {
		return Employee{}, fmt.Errorf("employee %s hourly rate: %w", employeeID, err)
	}
	if emp.KiwiSaverRate, err = decimal.NewFromString(ks); err != nil {
		return Employee{}, fmt.Errorf("employee %s kiwisaver rate: %w", employeeID, err)
	}
	if emp.IRDNumber, err = s.Crypto.DecryptString(irdSealed); err != nil {
		return Employee{}, fmt.Errorf("employee %s ird number: %w", employeeID, err)
	}
	return emp, nil
}

// SaveEmployee inserts or replaces an employee. The IRD number is validated
// and sealed before it is written.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	var sealed []byte
	if emp.IRDNumber != "" {
		normalized, err := ValidateIRDNumber(emp.IRDNumber)
		if err != nil {
			return err
		}
		if sealed, err = s.Crypto.EncryptString(normalized); err != nil {
			return err
		}
	}
	status := emp.Status
	if status == "" {
		status = StatusActive
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO employees (id, name, hourly_rate, employment_type, tax_code,
                           kiwisaver_enrolled, kiwisaver_rate, ird_number, start_date, status)
    VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7::text::numeric, $8, $9, $10)
    ON CONFLICT (id) DO UPDATE SET
      name = EXCLUDED.name,
      hourly_rate = EXCLUDED.hourly_rate,
      employment_type = EXCLUDED.employment_type,
      tax_code = EXCLUDED.tax_code,
      kiwisaver_enrolled = EXCLUDED.kiwisaver_enrolled,
      kiwisaver_rate = EXCLUDED.kiwisaver_rate,
      ird_number = EXCLUDED.ird_number,
      start_date = EXCLUDED.start_date,
      status = EXCLUDED.status
  `, emp.ID, emp.Name, emp.HourlyRate.String(), string(emp.EmploymentType), NormalizeTaxCode(emp.TaxCode),
		emp.KiwiSaverEnrolled, emp.KiwiSaverRate.String(), sealed, emp.StartDate, status)
	return err
}

func (s *Store) ListActiveEmployeeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM employees WHERE status = $1 ORDER BY id`, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) LoadTimesheetEntries(ctx context.Context, employeeID string, window Window) ([]timesheet.Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT work_date, start_time, end_time, break_minutes, is_overtime,
           COALESCE(overtime_rate, 0)::text, COALESCE(rate_multiplier, 0)::text
    FROM timesheet_entries
    WHERE employee_id = $1 AND approved AND work_date BETWEEN $2 AND $3
    ORDER BY work_date, start_time
  `, employeeID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []timesheet.Entry
	for rows.Next() {
		var (
			e                  timesheet.Entry
			overtime, multiple string
		)
		if err := rows.Scan(&e.Date, &e.StartTime, &e.EndTime, &e.BreakMinutes, &e.IsOvertime, &overtime, &multiple); err != nil {
			return nil, err
		}
		if e.OvertimeRate, err = decimal.NewFromString(overtime); err != nil {
			return nil, err
		}
		if e.RateMultiplier, err = decimal.NewFromString(multiple); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadYTDEarnings returns the ACC liable earnings recorded for the levy year,
// zero when none have been recorded yet.
func (s *Store) LoadYTDEarnings(ctx context.Context, employeeID string, levyYear int) (decimal.Decimal, error) {
	var raw string
	err := s.DB.QueryRow(ctx, `
    SELECT earnings::text FROM acc_ytd WHERE employee_id = $1 AND levy_year = $2
  `, employeeID, levyYear).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// PersistPayslip writes the payslip and the employee's new ACC year-to-date
// figure in one transaction.
func (s *Store) PersistPayslip(ctx context.Context, p Payslip) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	r := p.Result
	if _, err := tx.Exec(ctx, `
    INSERT INTO payslips (id, run_id, employee_id, pay_period, period_start, period_end, pay_date,
                          levy_year, tax_code, gross_pay, paye_tax, kiwisaver_deduction,
                          employer_kiwisaver, acc_levy, net_pay, acc_ytd, min_wage_compliant,
                          effective_hourly_rate, required_hourly_rate)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
            $10::text::numeric, $11::text::numeric, $12::text::numeric, $13::text::numeric,
            $14::text::numeric, $15::text::numeric, $16::text::numeric, $17,
            $18::text::numeric, $19::text::numeric)
  `, p.ID, p.RunID, p.EmployeeID, string(p.Period), p.PeriodStart, p.PeriodEnd, p.PayDate,
		p.LevyYear, p.TaxCode, r.GrossPay.String(), r.PAYETax.String(), r.KiwiSaverDeduction.String(),
		r.EmployerKiwiSaver.String(), r.ACCLevy.String(), r.NetPay.String(), r.ACCYearToDate.String(),
		r.MinimumWageCheck.Compliant, r.MinimumWageCheck.EffectiveHourlyRate.String(),
		r.MinimumWageCheck.RequiredRate.String()); err != nil {
		return fmt.Errorf("insert payslip: %w", err)
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO acc_ytd (employee_id, levy_year, earnings, updated_at)
    VALUES ($1, $2, $3::text::numeric, $4)
    ON CONFLICT (employee_id, levy_year) DO UPDATE SET
      earnings = EXCLUDED.earnings,
      updated_at = EXCLUDED.updated_at
  `, p.EmployeeID, p.LevyYear, r.ACCYearToDate.String(), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert acc ytd: %w", err)
	}

	return tx.Commit(ctx)
}
