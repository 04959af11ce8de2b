package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kiwipay/internal/platform/apperror"
)

// NormalizeTaxCode trims and upper-cases a tax code for table lookup.
func NormalizeTaxCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AnnualPAYETax computes PAYE on an annual income. Secondary codes apply a
// single flat rate to the whole amount; primary codes walk the bracket table.
func (c *Calculator) AnnualPAYETax(annualPay decimal.Decimal, taxCode string) (decimal.Decimal, error) {
	if annualPay.IsNegative() {
		return decimal.Zero, fmt.Errorf("annual pay %s: %w", annualPay, apperror.ErrInvalidInput)
	}
	code := NormalizeTaxCode(taxCode)

	if rate, ok := c.table.SecondaryRate(code); ok {
		return round(annualPay.Mul(rate)), nil
	}
	if !c.table.IsPrimaryCode(code) {
		return decimal.Zero, fmt.Errorf("tax code %q: %w", taxCode, apperror.ErrInvalidTaxCode)
	}

	tax := decimal.Zero
	remaining := annualPay
	previous := decimal.Zero
	for _, bracket := range c.table.PAYE.Brackets {
		if !remaining.IsPositive() {
			break
		}
		taxable := remaining
		if bracket.UpTo != nil {
			taxable = decimal.Min(remaining, bracket.UpTo.Sub(previous))
			previous = *bracket.UpTo
		}
		tax = round(tax.Add(taxable.Mul(bracket.Rate)))
		remaining = remaining.Sub(taxable)
	}
	return tax, nil
}

// PeriodPAYETax annualises periodPay, taxes the annual figure and divides the
// tax back over the periods in a year.
func (c *Calculator) PeriodPAYETax(periodPay decimal.Decimal, taxCode string, period PeriodType) (decimal.Decimal, error) {
	periods, err := period.PeriodsPerYear()
	if err != nil {
		return decimal.Zero, err
	}
	if periodPay.IsNegative() {
		return decimal.Zero, fmt.Errorf("period pay %s: %w", periodPay, apperror.ErrInvalidInput)
	}
	n := decimal.NewFromInt(periods)
	annualTax, err := c.AnnualPAYETax(periodPay.Mul(n), taxCode)
	if err != nil {
		return decimal.Zero, err
	}
	return round(annualTax.Div(n)), nil
}
