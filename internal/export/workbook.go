// Package export renders the ledger as an XLSX workbook with three sheets:
// every record, monthly totals and per-employee totals.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pawco/internal/core"
	"pawco/internal/report"
	"pawco/internal/sheets"
)

const (
	SheetRecords   = "Records"
	SheetMonthly   = "Monthly"
	SheetEmployees = "Employees"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	monthlyHeader  = []any{"Month", "Entries", "Pet Shop", "Grooming", "Gross", "Expense", "Net", "Customers"}
	employeeHeader = []any{"Employee", "Entries", "Total Gross", "Mean Gross"}
)

// Build creates the workbook in memory. The caller closes it.
func Build(records []core.DailyRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetMonthly, SheetEmployees} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	steps := []func(*excelize.File, int, []core.DailyRecord) error{
		writeRecords,
		writeMonthly,
		writeEmployees,
	}
	for _, step := range steps {
		if err := step(f, header, records); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook for records to w.
func Write(w io.Writer, records []core.DailyRecord) error {
	f, err := Build(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRecords(f *excelize.File, style int, records []core.DailyRecord) error {
	head := make([]any, 0, len(sheets.Header)+1)
	for _, h := range sheets.Header {
		head = append(head, h)
	}
	head = append(head, "Average Basket")

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, append(sheets.Row(r), r.AverageBasket().Units()))
	}
	return writeTable(f, SheetRecords, style, head, rows)
}

func writeMonthly(f *excelize.File, style int, records []core.DailyRecord) error {
	months := report.ByMonth(records)
	rows := make([][]any, 0, len(months))
	for _, m := range months {
		rows = append(rows, []any{
			m.Key,
			m.Entries,
			m.PetTotal().Units(),
			m.GroomTotal().Units(),
			m.Gross().Units(),
			m.Expense.Units(),
			m.Net().Units(),
			m.Customers,
		})
	}
	return writeTable(f, SheetMonthly, style, monthlyHeader, rows)
}

func writeEmployees(f *excelize.File, style int, records []core.DailyRecord) error {
	names := report.Names(records)
	rows := make([][]any, 0, len(names))
	for _, name := range names {
		s := report.ByEmployee(records, name)
		rows = append(rows, []any{s.Name, s.Entries, s.Total.Units(), s.MeanGross.Units()})
	}
	return writeTable(f, SheetEmployees, style, employeeHeader, rows)
}

func writeTable(f *excelize.File, sheet string, style int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
