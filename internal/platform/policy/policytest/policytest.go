// Package policytest provides a fixed rate table for calculation tests.
package policytest

import (
	"time"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/policy"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func upTo(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// Table returns the 2021 bracket structure with the 2023 ACC ceiling and a
// 1.39% earners' levy. Values are fixed so expected figures stay stable when
// the embedded tables change.
func Table() policy.Table {
	return policy.Table{
		Name:          "test",
		EffectiveFrom: policy.NewDate(2023, time.April, 1),
		PAYE: policy.PAYE{
			PrimaryCodes: []string{"M", "ME"},
			Brackets: []policy.Bracket{
				{UpTo: upTo("14000"), Rate: dec("0.105")},
				{UpTo: upTo("48000"), Rate: dec("0.175")},
				{UpTo: upTo("70000"), Rate: dec("0.30")},
				{UpTo: upTo("180000"), Rate: dec("0.33")},
				{Rate: dec("0.39")},
			},
			SecondaryRates: map[string]decimal.Decimal{
				"SB": dec("0.105"),
				"S":  dec("0.175"),
				"SH": dec("0.30"),
				"ST": dec("0.33"),
				"SA": dec("0.39"),
			},
		},
		KiwiSaver: policy.KiwiSaver{
			MinEmployeeRate: dec("3"),
			MaxEmployeeRate: dec("10"),
			EmployerRate:    dec("3"),
		},
		ACC: policy.ACC{
			EarnersLevyRate: dec("0.0139"),
			MaxEarnings:     dec("139384"),
		},
		MinimumWage: policy.MinimumWage{
			Adult:    dec("23.15"),
			Training: dec("18.52"),
		},
		Leave: policy.Leave{
			HoursPerDay:                    8,
			AnnualEntitlementWeeks:         4,
			AnnualQualifyingMonths:         12,
			SickDays:                       10,
			SickQualifyingMonths:           6,
			BereavementImmediateDays:       3,
			BereavementOtherDays:           1,
			BereavementQualifyingMonths:    6,
			FamilyViolenceDays:             10,
			FamilyViolenceQualifyingMonths: 6,
			ParentalQualifyingMonths:       6,
			ParentalWeeks:                  26,
			AnnualNoticeDays:               14,
			MaxAdvanceBookingDays:          365,
			CancellationNoticeDays:         14,
		},
	}
}
