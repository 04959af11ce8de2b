package payroll

const (
	EmploymentSalary   EmploymentType = "salary"
	EmploymentHourly   EmploymentType = "hourly"
	EmploymentTraining EmploymentType = "training"

	PeriodWeekly      PeriodType = "weekly"
	PeriodFortnightly PeriodType = "fortnightly"
	PeriodMonthly     PeriodType = "monthly"

	StatusActive   = "active"
	StatusInactive = "inactive"
)
