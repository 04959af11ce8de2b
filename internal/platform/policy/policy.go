package policy

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"kiwipay/internal/platform/apperror"
)

const dateLayout = "2006-01-02"

//go:embed tables/nz.yaml
var defaultTables []byte

// Date is a calendar date decoded from YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: date must be YYYY-MM-DD: %w", node.Line, err)
	}
	d.Time = parsed
	return nil
}

// Bracket is one PAYE band. UpTo is the cumulative upper threshold; nil marks
// the open-ended top band.
type Bracket struct {
	UpTo *decimal.Decimal `yaml:"up_to"`
	Rate decimal.Decimal  `yaml:"rate"`
}

type PAYE struct {
	PrimaryCodes   []string                   `yaml:"primary_codes"`
	Brackets       []Bracket                  `yaml:"brackets"`
	SecondaryRates map[string]decimal.Decimal `yaml:"secondary_rates"`
}

// KiwiSaver rates are percentages (3 means 3%).
type KiwiSaver struct {
	MinEmployeeRate decimal.Decimal `yaml:"min_employee_rate"`
	MaxEmployeeRate decimal.Decimal `yaml:"max_employee_rate"`
	EmployerRate    decimal.Decimal `yaml:"employer_rate"`
}

type ACC struct {
	EarnersLevyRate decimal.Decimal `yaml:"earners_levy_rate"`
	MaxEarnings     decimal.Decimal `yaml:"max_earnings"`
}

type MinimumWage struct {
	Adult    decimal.Decimal `yaml:"adult"`
	Training decimal.Decimal `yaml:"training"`
}

type Leave struct {
	HoursPerDay                    int `yaml:"hours_per_day"`
	AnnualEntitlementWeeks         int `yaml:"annual_entitlement_weeks"`
	AnnualQualifyingMonths         int `yaml:"annual_qualifying_months"`
	SickDays                       int `yaml:"sick_days"`
	SickQualifyingMonths           int `yaml:"sick_qualifying_months"`
	BereavementImmediateDays       int `yaml:"bereavement_immediate_days"`
	BereavementOtherDays           int `yaml:"bereavement_other_days"`
	BereavementQualifyingMonths    int `yaml:"bereavement_qualifying_months"`
	FamilyViolenceDays             int `yaml:"family_violence_days"`
	FamilyViolenceQualifyingMonths int `yaml:"family_violence_qualifying_months"`
	ParentalQualifyingMonths       int `yaml:"parental_qualifying_months"`
	ParentalWeeks                  int `yaml:"parental_weeks"`
	AnnualNoticeDays               int `yaml:"annual_notice_days"`
	MaxAdvanceBookingDays          int `yaml:"max_advance_booking_days"`
	CancellationNoticeDays         int `yaml:"cancellation_notice_days"`
}

// Table is the full set of statutory rates in force from EffectiveFrom.
type Table struct {
	Name          string      `yaml:"name"`
	EffectiveFrom Date        `yaml:"effective_from"`
	PAYE          PAYE        `yaml:"paye"`
	KiwiSaver     KiwiSaver   `yaml:"kiwisaver"`
	ACC           ACC         `yaml:"acc"`
	MinimumWage   MinimumWage `yaml:"minimum_wage"`
	Leave         Leave       `yaml:"leave"`
}

type file struct {
	Tables   []Table `yaml:"tables"`
	Matariki []Date  `yaml:"matariki"`
}

// Registry holds every known table ordered by effective date.
type Registry struct {
	tables   []Table
	matariki map[int]time.Time
}

// Default returns the registry built from the embedded NZ tables.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultTables))
}

func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Registry, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode policy tables: %w", err)
	}
	return New(doc.Tables, doc.Matariki)
}

func New(tables []Table, matariki []Date) (*Registry, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("policy: no tables defined")
	}
	sorted := make([]Table, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom.Time)
	})
	for i, table := range sorted {
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("policy table %q: %w", table.Name, err)
		}
		if i > 0 && table.EffectiveFrom.Equal(sorted[i-1].EffectiveFrom.Time) {
			return nil, fmt.Errorf("policy tables %q and %q share effective date %s", sorted[i-1].Name, table.Name, table.EffectiveFrom.Format(dateLayout))
		}
	}

	reg := &Registry{tables: sorted, matariki: make(map[int]time.Time, len(matariki))}
	for _, d := range matariki {
		reg.matariki[d.Year()] = d.Time
	}
	return reg, nil
}

// For returns the table in force on the given date.
func (r *Registry) For(date time.Time) (Table, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	idx := sort.Search(len(r.tables), func(i int) bool {
		return r.tables[i].EffectiveFrom.After(day)
	})
	if idx == 0 {
		return Table{}, fmt.Errorf("%w: %s", apperror.ErrNoPolicyTable, day.Format(dateLayout))
	}
	return r.tables[idx-1], nil
}

func (r *Registry) Tables() []Table {
	out := make([]Table, len(r.tables))
	copy(out, r.tables)
	return out
}

// Matariki returns the observed Matariki public holiday for year, if gazetted.
func (r *Registry) Matariki(year int) (time.Time, bool) {
	d, ok := r.matariki[year]
	return d, ok
}

// SecondaryRate reports the flat rate for a secondary tax code.
func (t Table) SecondaryRate(code string) (decimal.Decimal, bool) {
	rate, ok := t.PAYE.SecondaryRates[code]
	return rate, ok
}

func (t Table) IsPrimaryCode(code string) bool {
	for _, candidate := range t.PAYE.PrimaryCodes {
		if candidate == code {
			return true
		}
	}
	return false
}

func (t Table) Validate() error {
	if t.EffectiveFrom.IsZero() {
		return fmt.Errorf("effective_from is required")
	}
	if len(t.PAYE.Brackets) == 0 {
		return fmt.Errorf("paye brackets are required")
	}
	if len(t.PAYE.PrimaryCodes) == 0 {
		return fmt.Errorf("paye primary codes are required")
	}
	prev := decimal.Zero
	for i, b := range t.PAYE.Brackets {
		if !validRate(b.Rate) {
			return fmt.Errorf("bracket %d rate %s outside [0,1]", i, b.Rate)
		}
		last := i == len(t.PAYE.Brackets)-1
		if b.UpTo == nil {
			if !last {
				return fmt.Errorf("bracket %d has no upper threshold but is not the top band", i)
			}
			continue
		}
		if last {
			return fmt.Errorf("top bracket must be open-ended")
		}
		if !b.UpTo.GreaterThan(prev) {
			return fmt.Errorf("bracket %d threshold %s is not above %s", i, b.UpTo, prev)
		}
		prev = *b.UpTo
	}
	for code, rate := range t.PAYE.SecondaryRates {
		if !validRate(rate) {
			return fmt.Errorf("secondary code %s rate %s outside [0,1]", code, rate)
		}
	}
	ks := t.KiwiSaver
	if !ks.MinEmployeeRate.IsPositive() || ks.MinEmployeeRate.GreaterThan(ks.MaxEmployeeRate) {
		return fmt.Errorf("kiwisaver employee bounds %s-%s are invalid", ks.MinEmployeeRate, ks.MaxEmployeeRate)
	}
	if ks.EmployerRate.IsNegative() {
		return fmt.Errorf("kiwisaver employer rate must not be negative")
	}
	if !validRate(t.ACC.EarnersLevyRate) || !t.ACC.MaxEarnings.IsPositive() {
		return fmt.Errorf("acc levy settings are invalid")
	}
	if !t.MinimumWage.Adult.IsPositive() || !t.MinimumWage.Training.IsPositive() {
		return fmt.Errorf("minimum wage rates must be positive")
	}
	if t.Leave.HoursPerDay <= 0 {
		return fmt.Errorf("leave hours_per_day must be positive")
	}
	return nil
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(1))
}
