package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jpalmerr/daystatus"
)

// SheetName is the name of the single worksheet written by [WriteXLSX].
const SheetName = "Status"

// WriteXLSX writes a workbook with one row per record: date, global status
// and message, then a status column per course. Course cells are filled
// with the status colour.
func WriteXLSX(w io.Writer, records []daystatus.Record, courses []daystatus.Course) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	statusStyles := make(map[daystatus.Status]int)
	for _, def := range daystatus.StatusDefinitions() {
		id, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Color: "#FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{def.Color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("status style: %w", err)
		}
		statusStyles[def.Key] = id
	}

	headers := []string{"Date", "Status", "Message"}
	for _, c := range courses {
		headers = append(headers, c.Name())
	}
	for i, h := range headers {
		if err := f.SetCellValue(SheetName, cell(i, 1), h); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetName, "A", "B", 12)
	_ = f.SetColWidth(SheetName, "C", "C", 40)
	if len(courses) > 0 {
		first, _ := excelize.ColumnNumberToName(4)
		_ = f.SetColWidth(SheetName, first, last, 24)
	}

	for i, rec := range sortedByDate(records) {
		row := i + 2
		label := daystatus.StatusDefinitionFor(rec.GlobalStatus).Label

		values := []any{rec.Date, label, rec.GlobalMessage}
		for col, v := range values {
			if err := f.SetCellValue(SheetName, cell(col, row), v); err != nil {
				return err
			}
		}
		if style, ok := statusStyles[rec.GlobalStatus]; ok {
			_ = f.SetCellStyle(SheetName, cell(1, row), cell(1, row), style)
		}

		for j, c := range courses {
			entry, ok := rec.Courses[c.ID()]
			if !ok {
				continue
			}
			text := daystatus.StatusDefinitionFor(entry.Status).Label
			if entry.Message != "" {
				text += ": " + entry.Message
			}
			ref := cell(3+j, row)
			if err := f.SetCellValue(SheetName, ref, text); err != nil {
				return err
			}
			if style, ok := statusStyles[entry.Status]; ok {
				_ = f.SetCellStyle(SheetName, ref, ref, style)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// cell returns the reference of a zero-based column and one-based row.
func cell(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col+1, row)
	return ref
}
