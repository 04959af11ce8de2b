package payroll

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const registerSheet = "Register"

var registerHeader = []any{
	"Employee ID", "Employee", "Tax code", "Gross", "PAYE", "KiwiSaver", "Employer KiwiSaver",
	"ACC levy", "Net", "ACC YTD", "Minimum wage OK",
}

// WriteRegisterXLSX exports a run as a payroll register workbook with one
// row per payslip, a totals row and a sheet listing failed employees.
func WriteRegisterXLSX(w io.Writer, run RunResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(registerSheet, "A1", &registerHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(registerSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, p := range run.Payslips {
		r := p.Result
		row := []any{
			p.EmployeeID, p.EmployeeName, p.TaxCode,
			r.GrossPay.InexactFloat64(), r.PAYETax.InexactFloat64(), r.KiwiSaverDeduction.InexactFloat64(),
			r.EmployerKiwiSaver.InexactFloat64(), r.ACCLevy.InexactFloat64(), r.NetPay.InexactFloat64(),
			r.ACCYearToDate.InexactFloat64(), r.MinimumWageCheck.Compliant,
		}
		if err := f.SetSheetRow(registerSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}

	if n := len(run.Payslips); n > 0 {
		totalRow := n + 2
		if err := f.SetCellValue(registerSheet, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
			return err
		}
		for _, col := range []string{"D", "E", "F", "G", "H", "I"} {
			formula := fmt.Sprintf("SUM(%s2:%s%d)", col, col, totalRow-1)
			if err := f.SetCellFormula(registerSheet, fmt.Sprintf("%s%d", col, totalRow), formula); err != nil {
				return err
			}
		}
		if err := f.SetRowStyle(registerSheet, totalRow, totalRow, bold); err != nil {
			return err
		}
	}

	if len(run.Failures) > 0 {
		const sheet = "Failures"
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, "A1", &[]any{"Employee ID", "Code", "Message"}); err != nil {
			return err
		}
		for i, failure := range run.Failures {
			row := []any{failure.EmployeeID, failure.Code, failure.Message}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
