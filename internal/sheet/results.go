package sheet

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examhall/internal/model"
)

// ResultsSheet is the name of the sheet written by WriteResults.
const ResultsSheet = "Test Results"

// ContentType is the MIME type of an xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var resultHeader = []any{
	"Student Name", "Student Email", "Student ID", "Branch", "Score", "Total Points",
	"Percentage", "Time Spent (minutes)", "Completed At", "Status",
}

// WriteResults writes one row per attempt, in the given order, to an xlsx
// workbook. passed decides the Status column.
func WriteResults(w io.Writer, rows []model.ResultRow, passed func(percentage float64) bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(ResultsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, r := range rows {
		status := "Fail"
		if passed(r.Percentage) {
			status = "Pass"
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.StudentName,
			r.StudentEmail,
			r.StudentID,
			r.Branch,
			r.Score,
			r.TotalPoints,
			fmt.Sprintf("%.2f%%", r.Percentage),
			int(math.Round(float64(r.ElapsedSeconds) / 60)),
			r.CompletedAt.Local().Format(time.DateTime),
			status,
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
