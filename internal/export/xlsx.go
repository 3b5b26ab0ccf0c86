// Package export renders attendance ledgers as an XLSX workbook or an iCalendar feed.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/classattendance/internal/attendance"
	"github.com/classattendance/internal/subjects"
	"github.com/xuri/excelize/v2"
)

const SummarySheet = "Summary"

// Ledger is the part of the attendance ledger the export reads.
type Ledger interface {
	Summaries(context.Context) []attendance.Summary
	DayRecords(context.Context, subjects.Subject) attendance.Records
}

// WriteXLSX writes a summary sheet with one row per subject followed by a
// sheet per subject listing its days in date order.
func WriteXLSX(ctx context.Context, w io.Writer, ledger Ledger) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, SummarySheet, 1, "Subject", "Present", "Total", "Percentage"); err != nil {
		return err
	}

	summaries := ledger.Summaries(ctx)
	used := map[string]bool{strings.ToLower(SummarySheet): true}
	for i, summary := range summaries {
		if err := setRow(f, SummarySheet, i+2,
			string(summary.Subject),
			summary.PresentCount,
			summary.TotalCount,
			summary.Percentage,
		); err != nil {
			return err
		}

		sheet := SheetName(string(summary.Subject), used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %q: %w", sheet, err)
		}
		if err := setRow(f, sheet, 1, "Date", "Total", "Attended", "Mark"); err != nil {
			return err
		}
		records := ledger.DayRecords(ctx, summary.Subject)
		for j, date := range records.Dates() {
			record := records[date]
			if err := setRow(f, sheet, j+2, date, record.Total, record.Attended, string(record.Mark())); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d of %q: %w", row, sheet, err)
	}
	return nil
}

var invalidSheetChars = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// SheetName turns a subject name into a sheet name Excel accepts: at most 31
// characters, none of :\/?*[] and unique within the workbook ignoring case.
func SheetName(subject string, used map[string]bool) string {
	base := invalidSheetChars.Replace(subject)
	name := truncate(base, 31)
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, 31-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

// truncate cuts s to n runes. Excel rejects sheet names starting or ending
// with a single quote, so those are trimmed after the cut.
func truncate(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		s = string(runes[:n])
	}
	s = strings.Trim(s, "'")
	if s == "" {
		return "Subject"
	}
	return s
}
