package reconcile

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	resultsSheet = "Results"
)

// WriteXLSX exports the report as a workbook with a summary sheet and one row
// per processed appointment.
func (r *Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return fmt.Errorf("create results sheet: %w", err)
	}

	summary := [][]any{
		{"Run", r.RunID.String()},
		{"Policy", string(r.Policy)},
		{"Dry run", r.DryRun},
		{"Started", r.StartedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Finished", r.FinishedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Processed", r.Total()},
		{"Updated", r.Updated},
		{"Skipped", r.Skipped},
		{"Failed", r.Failed},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	header := []any{"Appointment ID", "Status", "Message", "Changes"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, res := range r.Results {
		var changes []string
		for _, c := range res.Changes() {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", c.Field, c.Before, c.After))
		}
		row := []any{res.AppointmentID, string(res.Status), res.Message, strings.Join(changes, "; ")}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write result row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
