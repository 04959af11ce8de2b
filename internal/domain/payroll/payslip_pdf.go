package payroll

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// WritePayslipPDF renders a single payslip as an A4 PDF.
func WritePayslipPDF(w io.Writer, p Payslip) error {
	r := p.Result

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payslip "+p.EmployeeName, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", p.EmployeeName, p.EmployeeID))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Tax code: %s", p.TaxCode))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s (%s)", p.PeriodStart.Format(dateLayout), p.PeriodEnd.Format(dateLayout), p.Period))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Pay date: %s", p.PayDate.Format(dateLayout)))
	pdf.Ln(10)

	lines := []struct {
		label  string
		amount decimal.Decimal
		bold   bool
	}{
		{"Gross pay", r.GrossPay, true},
		{"PAYE", r.PAYETax.Neg(), false},
		{"KiwiSaver (employee)", r.KiwiSaverDeduction.Neg(), false},
		{"ACC earners' levy", r.ACCLevy.Neg(), false},
		{"Net pay", r.NetPay, true},
	}
	for _, line := range lines {
		style := ""
		if line.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(90, 7, line.label, "B", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, line.amount.StringFixed(2), "B", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Employer KiwiSaver contribution: %s", r.EmployerKiwiSaver.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("ACC liable earnings year to date (levy year %d): %s", p.LevyYear, r.ACCYearToDate.StringFixed(2)))
	pdf.Ln(5)
	if !r.MinimumWageCheck.Compliant {
		pdf.SetTextColor(180, 0, 0)
		pdf.Cell(0, 6, fmt.Sprintf("Below minimum wage: %s/h against %s/h required",
			r.MinimumWageCheck.EffectiveHourlyRate.StringFixed(2), r.MinimumWageCheck.RequiredRate.StringFixed(2)))
	}

	return pdf.Output(w)
}
