package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nhle/work-schedule/internal/export"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/schedule"
)

// SheetName is the single worksheet of the spreadsheet export.
const SheetName = "Schedule"

// XLSXHeader is the first row of the sheet.
var XLSXHeader = []string{"Date", "Day", "Project Manager", "Job", "Workers", "Worker Count", "Sent"}

var xlsxWidths = []float64{12, 12, 22, 40, 40, 14, 8}

// XLSX renders one row per assignment in date order, undated last. The
// date cell of a dated row is filled with its week color.
func XLSX(days []model.DailySchedule) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	header := make([]any, len(XLSXHeader))
	for i, h := range XLSXHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(XLSXHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}

	for i, w := range xlsxWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("setting column width: %w", err)
		}
	}

	weekStyles := map[string]int{}
	row := 2
	for _, day := range schedule.SortByDate(days) {
		sent := "No"
		if day.SentToQB {
			sent = "Yes"
		}
		for _, pm := range day.ProjectManagers {
			for _, a := range pm.Assignments {
				cell, err := excelize.CoordinatesToCellName(1, row)
				if err != nil {
					return nil, err
				}
				values := []any{
					day.Date, day.DayName, pm.Name, a.Job,
					strings.Join(a.Workers, ", "), len(a.Workers), sent,
				}
				if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
					return nil, fmt.Errorf("writing row %d: %w", row, err)
				}

				if day.Date != "" {
					style, err := weekStyle(f, weekStyles, day.Date)
					if err != nil {
						return nil, err
					}
					if style != 0 {
						if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
							return nil, fmt.Errorf("styling row %d: %w", row, err)
						}
					}
				}
				row++
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freezing header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// weekStyle returns the fill style for date's week, creating it once per
// color. A date that does not parse gets no style.
func weekStyle(f *excelize.File, styles map[string]int, date string) (int, error) {
	color, err := export.WeekColor(date)
	if err != nil {
		return 0, nil
	}
	if id, ok := styles[color]; ok {
		return id, nil
	}
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("creating week style: %w", err)
	}
	styles[color] = id
	return id, nil
}

// XLSXFilename names a spreadsheet export like TextFilename.
func XLSXFilename(days []model.DailySchedule) string {
	return filename(days, "xlsx")
}
