package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/shamba-dev/shamba/internal/model"
)

// TemplateSheet is the sheet name used by WriteTemplate.
const TemplateSheet = "Weekly Expenses"

// DefaultTasks returns the task rows of the weekly casuals template.
func DefaultTasks() []string {
	return []string{
		"Cuttings Preparation",
		"Irrigation Support",
		"Nursery Management",
		"Pruning",
		"Slashing",
		"Weeding",
	}
}

// WriteTemplate writes an xlsx workbook with a header row of
// Task, <plot names>, Grand Total, one zero-filled row per task and a
// closing Grand Total row.
func WriteTemplate(w io.Writer, plots []model.Plot, tasks []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TemplateSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, 0, len(plots)+2)
	header = append(header, "Task")
	for _, p := range plots {
		header = append(header, p.Name)
	}
	header = append(header, "Grand Total")

	rows := [][]any{header}
	for _, task := range tasks {
		rows = append(rows, zeroRow(task, len(plots)))
	}
	rows = append(rows, zeroRow("Grand Total", len(plots)))

	for i := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(TemplateSheet, axis, &rows[i]); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	return nil
}

func zeroRow(label string, plots int) []any {
	row := make([]any, 0, plots+2)
	row = append(row, label)
	for i := 0; i <= plots; i++ {
		row = append(row, 0)
	}
	return row
}
