package export

import (
	"errors"

	"github.com/nhle/work-schedule/internal/model"
)

// ErrNoDate rejects planning a day without a date.
var ErrNoDate = errors.New("schedule has no date")

// PlannedEvent is one calendar event derived from an assignment, before
// any name is resolved to a remote id.
type PlannedEvent struct {
	AssignmentID string
	PMName       string
	Job          string
	Workers      []string
	Title        string
	Notes        string
	Start        string
	End          string
	Color        string
}

// Exportable reports whether an assignment yields an event: it needs at
// least one worker and a job.
func Exportable(a model.WorkerAssignment) bool {
	return len(a.Workers) > 0 && a.Job != ""
}

// Plan lays out the events of one day in PM then assignment order.
// Assignments without workers or without a job are skipped.
func Plan(day model.DailySchedule) ([]PlannedEvent, error) {
	if day.Date == "" {
		return nil, ErrNoDate
	}
	color, err := WeekColor(day.Date)
	if err != nil {
		return nil, err
	}
	start, end, err := ShiftTimes(day.Date)
	if err != nil {
		return nil, err
	}

	var events []PlannedEvent
	for _, pm := range day.ProjectManagers {
		for _, a := range pm.Assignments {
			if !Exportable(a) {
				continue
			}
			events = append(events, PlannedEvent{
				AssignmentID: a.ID,
				PMName:       pm.Name,
				Job:          a.Job,
				Workers:      a.Workers,
				Title:        Title(pm.Name, a.Job, a.Workers),
				Notes:        Notes(pm.Name, a.Job, a.Workers),
				Start:        start,
				End:          end,
				Color:        color,
			})
		}
	}
	return events, nil
}
