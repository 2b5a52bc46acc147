// Package report renders the schedule collection into files a person can
// read or import elsewhere: plain text, iCalendar and spreadsheet.
package report

import (
	"strings"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/schedule"
)

const (
	crlf    = "\r\n"
	noPM    = "(No PM)"
	noDate  = "No Date"
	undated = "undated"
)

// DateLabel renders "Tuesday, April 1, 2025", or "No Date" for an undated
// day. A date that does not parse is shown as stored.
func DateLabel(date string) string {
	if date == "" {
		return noDate
	}
	t, err := model.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}

// Text renders days in date order, undated last, with CRLF line endings.
// Project managers with neither a name nor assignments are left out.
func Text(days []model.DailySchedule) string {
	sorted := schedule.SortByDate(days)

	sections := make([]string, 0, len(sorted))
	for _, day := range sorted {
		label := DateLabel(day.Date)
		lines := []string{label, strings.Repeat("=", len([]rune(label)))}

		for _, pm := range day.ProjectManagers {
			if pm.Name == "" && len(pm.Assignments) == 0 {
				continue
			}
			name := pm.Name
			if name == "" {
				name = noPM
			}
			lines = append(lines, "", name, strings.Repeat("-", len([]rune(name))))

			for _, a := range pm.Assignments {
				workers := "(no workers)"
				if len(a.Workers) > 0 {
					workers = strings.Join(a.Workers, ", ")
				}
				job := a.Job
				if job == "" {
					job = "(no job)"
				}
				lines = append(lines, "  "+workers+"  —  "+job)
			}
		}
		sections = append(sections, strings.Join(lines, crlf))
	}
	return strings.Join(sections, crlf+crlf+crlf)
}

// TextFilename names a text report after the first and last date of the
// sorted days: schedule-<first>-to-<last>.txt.
func TextFilename(days []model.DailySchedule) string {
	return filename(days, "txt")
}

func filename(days []model.DailySchedule, ext string) string {
	sorted := schedule.SortByDate(days)
	first, last := undated, undated
	if len(sorted) > 0 {
		if d := sorted[0].Date; d != "" {
			first = d
		}
		if d := sorted[len(sorted)-1].Date; d != "" {
			last = d
		}
	}
	return "schedule-" + first + "-to-" + last + "." + ext
}
