package export

import (
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/books_synth/workflow"
	"github.com/xuri/excelize/v2"
)

const (
	sheetChecks = "Checks"
	sheetCounts = "Record Counts"
)

// WriteSummaryWorkbook renders the reconciliation report and the table counts
// of a run as an xlsx workbook at path.
func WriteSummaryWorkbook(path string, summary *workflow.RunSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetChecks); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetCounts); err != nil {
		return err
	}

	headings := []string{"Check", "Status", "Value", "Tolerance", "Fail Threshold", "Expected", "Actual", "Details"}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetChecks, cell, h)
	}
	for i, c := range summary.Report.Checks {
		row := i + 2
		values := []interface{}{
			c.Check,
			string(c.Status),
			c.Value.String(),
			c.Tolerance.String(),
			c.FailThreshold.String(),
			c.Expected.String(),
			c.Actual.String(),
			c.Details,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			f.SetCellValue(sheetChecks, cell, v)
		}
	}
	statusRow := len(summary.Report.Checks) + 3
	f.SetCellValue(sheetChecks, fmt.Sprintf("A%d", statusRow), "Overall")
	f.SetCellValue(sheetChecks, fmt.Sprintf("B%d", statusRow), string(summary.Status))
	f.SetCellValue(sheetChecks, fmt.Sprintf("A%d", statusRow+1), "Run")
	f.SetCellValue(sheetChecks, fmt.Sprintf("B%d", statusRow+1), summary.RunId)

	f.SetCellValue(sheetCounts, "A1", "Table")
	f.SetCellValue(sheetCounts, "B1", "Rows")
	tables := make([]string, 0, len(summary.RecordCounts))
	for t := range summary.RecordCounts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for i, t := range tables {
		f.SetCellValue(sheetCounts, fmt.Sprintf("A%d", i+2), t)
		f.SetCellValue(sheetCounts, fmt.Sprintf("B%d", i+2), summary.RecordCounts[t])
	}

	return f.SaveAs(path)
}
