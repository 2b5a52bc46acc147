package report

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/nhle/work-schedule/internal/export"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/schedule"
)

const (
	productID = "-//workschedule//schedule export//EN"
	uidDomain = "workschedule"
)

// ICS renders every exportable assignment as a VEVENT using the same
// shift times, titles and colors sent to QB Time. Undated days are
// skipped. stamp fills DTSTAMP.
func ICS(days []model.DailySchedule, stamp time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Work Schedule")
	cal.SetXWRTimezone(export.Timezone)

	for _, day := range schedule.SortByDate(days) {
		if day.Date == "" {
			continue
		}
		planned, err := export.Plan(day)
		if err != nil {
			return "", fmt.Errorf("planning %s: %w", day.Date, err)
		}
		for _, p := range planned {
			start, err := time.Parse(time.RFC3339, p.Start)
			if err != nil {
				return "", fmt.Errorf("parsing start of %s: %w", p.AssignmentID, err)
			}
			end, err := time.Parse(time.RFC3339, p.End)
			if err != nil {
				return "", fmt.Errorf("parsing end of %s: %w", p.AssignmentID, err)
			}

			ev := cal.AddEvent(p.AssignmentID + "@" + uidDomain)
			ev.SetDtStampTime(stamp)
			ev.SetStartAt(start)
			ev.SetEndAt(end)
			ev.SetSummary(p.Title)
			ev.SetDescription(p.Notes)
			ev.SetLocation(p.Job)
			ev.SetColor(p.Color)
		}
	}
	return cal.Serialize(), nil
}

// ICSFilename names a calendar export like TextFilename.
func ICSFilename(days []model.DailySchedule) string {
	return filename(days, "ics")
}
