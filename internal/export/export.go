// Package export renders admin reports as Excel workbooks.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Row is one finished attempt, joined with its user and quiz for display.
type Row struct {
	AttemptID   int64
	Username    string
	QuizTitle   string
	StartedAt   time.Time
	CompletedAt time.Time
	Score       int
	Correct     int
	Total       int
}

const attemptsSheet = "Attempts"

// Attempts builds an .xlsx workbook listing the given attempts, one row per
// attempt, with a bold header row and frozen top pane.
func Attempts(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attemptsSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header := []any{"Attempt", "User", "Quiz", "Started", "Completed", "Duration (s)", "Score %", "Correct", "Questions"}
	if err := f.SetSheetRow(attemptsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetRowStyle(attemptsSheet, 1, 1, styleID)
	}
	f.SetPanes(attemptsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, row := range rows {
		cells := []any{
			row.AttemptID,
			row.Username,
			row.QuizTitle,
			row.StartedAt.Format(time.RFC3339),
			row.CompletedAt.Format(time.RFC3339),
			int(row.CompletedAt.Sub(row.StartedAt).Seconds()),
			row.Score,
			row.Correct,
			row.Total,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(attemptsSheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	f.SetColWidth(attemptsSheet, "B", "C", 28)
	f.SetColWidth(attemptsSheet, "D", "E", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("rendering workbook: %w", err)
	}
	return buf.Bytes(), nil
}
