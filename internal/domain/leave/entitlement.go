package leave

import (
	"time"

	"kiwipay/internal/platform/policy"
)

// averageMonthDays approximates a month for family violence and parental
// leave eligibility. It can misjudge eligibility by a day or two around the
// six month boundary.
const averageMonthDays = 30.44

// CompletedMonths counts whole calendar months from start up to asOf.
func CompletedMonths(start, asOf time.Time) int {
	start, asOf = day(start), day(asOf)
	if asOf.Before(start) {
		return 0
	}
	months := (asOf.Year()-start.Year())*12 + int(asOf.Month()-start.Month())
	if months > 0 && addMonths(start, months).After(asOf) {
		months--
	}
	return months
}

// addMonths clamps to the last day of the target month, so 31 January plus
// one month is 28 or 29 February.
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(t.Day(), last), 0, 0, 0, 0, time.UTC)
}

// ApproxMonths measures employment in 30.44 day months.
func ApproxMonths(start, asOf time.Time) float64 {
	start, asOf = day(start), day(asOf)
	if asOf.Before(start) {
		return 0
	}
	return asOf.Sub(start).Hours() / 24 / averageMonthDays
}

// MonthsEmployed returns employment length in the unit the leave type's
// qualifying rule uses.
func MonthsEmployed(t Type, start, asOf time.Time) float64 {
	switch t {
	case TypeFamilyViolence, TypeParental:
		return ApproxMonths(start, asOf)
	default:
		return float64(CompletedMonths(start, asOf))
	}
}

func QualifyingMonths(t Type, rules policy.Leave) int {
	switch t {
	case TypeAnnual:
		return rules.AnnualQualifyingMonths
	case TypeSick:
		return rules.SickQualifyingMonths
	case TypeBereavement:
		return rules.BereavementQualifyingMonths
	case TypeFamilyViolence:
		return rules.FamilyViolenceQualifyingMonths
	case TypeParental:
		return rules.ParentalQualifyingMonths
	}
	return 0
}

func Qualifies(t Type, rules policy.Leave, start, asOf time.Time) bool {
	return MonthsEmployed(t, start, asOf) >= float64(QualifyingMonths(t, rules))
}

func AnnualEntitlementDays(rules policy.Leave, start, asOf time.Time) int {
	if !Qualifies(TypeAnnual, rules, start, asOf) {
		return 0
	}
	return rules.AnnualEntitlementWeeks * workDaysPerWeek
}

func SickEntitlementDays(rules policy.Leave, start, asOf time.Time) int {
	if !Qualifies(TypeSick, rules, start, asOf) {
		return 0
	}
	return rules.SickDays
}

// BereavementEntitlementDays is the cap per bereavement.
func BereavementEntitlementDays(rules policy.Leave, immediateFamily bool) int {
	if immediateFamily {
		return rules.BereavementImmediateDays
	}
	return rules.BereavementOtherDays
}

type Entitlement struct {
	Eligible       bool    `json:"eligible"`
	MonthsEmployed float64 `json:"monthsEmployed"`
	Days           int     `json:"days,omitempty"`
	Weeks          int     `json:"weeks,omitempty"`
}

func FamilyViolenceEntitlement(rules policy.Leave, start, asOf time.Time) Entitlement {
	months := ApproxMonths(start, asOf)
	ent := Entitlement{MonthsEmployed: roundMonths(months)}
	if months >= float64(rules.FamilyViolenceQualifyingMonths) {
		ent.Eligible = true
		ent.Days = rules.FamilyViolenceDays
	}
	return ent
}

func ParentalLeaveEntitlement(rules policy.Leave, start, asOf time.Time) Entitlement {
	months := ApproxMonths(start, asOf)
	ent := Entitlement{MonthsEmployed: roundMonths(months)}
	if months >= float64(rules.ParentalQualifyingMonths) {
		ent.Eligible = true
		ent.Weeks = rules.ParentalWeeks
	}
	return ent
}

// Summary lists every statutory entitlement for an employee on one date.
type Summary struct {
	AsOf                     time.Time   `json:"asOf"`
	CompletedMonths          int         `json:"completedMonths"`
	AnnualDays               int         `json:"annualDays"`
	SickDays                 int         `json:"sickDays"`
	BereavementImmediateDays int         `json:"bereavementImmediateDays"`
	BereavementOtherDays     int         `json:"bereavementOtherDays"`
	FamilyViolence           Entitlement `json:"familyViolence"`
	Parental                 Entitlement `json:"parental"`
}

func Entitlements(rules policy.Leave, start, asOf time.Time) Summary {
	s := Summary{
		AsOf:            day(asOf),
		CompletedMonths: CompletedMonths(start, asOf),
		AnnualDays:      AnnualEntitlementDays(rules, start, asOf),
		SickDays:        SickEntitlementDays(rules, start, asOf),
		FamilyViolence:  FamilyViolenceEntitlement(rules, start, asOf),
		Parental:        ParentalLeaveEntitlement(rules, start, asOf),
	}
	if Qualifies(TypeBereavement, rules, start, asOf) {
		s.BereavementImmediateDays = BereavementEntitlementDays(rules, true)
		s.BereavementOtherDays = BereavementEntitlementDays(rules, false)
	}
	return s
}

func roundMonths(m float64) float64 {
	return float64(int(m*100+0.5)) / 100
}
