// Package schedule holds the edit operations on the day -> project
// manager -> assignment tree. Every operation returns a new collection
// and leaves its input untouched; branches that did not change are
// shared with the input. Unknown ids make an operation a no-op.
package schedule

import (
	"fmt"
	"slices"

	"github.com/nhle/work-schedule/internal/model"
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(message string) bool

func updateDay(days []model.DailySchedule, dayID string, fn func(model.DailySchedule) model.DailySchedule) []model.DailySchedule {
	i := slices.IndexFunc(days, func(d model.DailySchedule) bool { return d.ID == dayID })
	if i < 0 {
		return days
	}
	out := slices.Clone(days)
	out[i] = fn(days[i])
	return out
}

func updatePM(days []model.DailySchedule, dayID, pmID string, fn func(model.ProjectManager) model.ProjectManager) []model.DailySchedule {
	return updateDay(days, dayID, func(d model.DailySchedule) model.DailySchedule {
		i := slices.IndexFunc(d.ProjectManagers, func(pm model.ProjectManager) bool { return pm.ID == pmID })
		if i < 0 {
			return d
		}
		pms := slices.Clone(d.ProjectManagers)
		pms[i] = fn(d.ProjectManagers[i])
		d.ProjectManagers = pms
		return d
	})
}

func updateAssignment(days []model.DailySchedule, dayID, pmID, assignID string, fn func(model.WorkerAssignment) model.WorkerAssignment) []model.DailySchedule {
	return updatePM(days, dayID, pmID, func(pm model.ProjectManager) model.ProjectManager {
		i := slices.IndexFunc(pm.Assignments, func(a model.WorkerAssignment) bool { return a.ID == assignID })
		if i < 0 {
			return pm
		}
		as := slices.Clone(pm.Assignments)
		as[i] = fn(pm.Assignments[i])
		pm.Assignments = as
		return pm
	})
}

// AddDay appends a blank, undated day.
func AddDay(days []model.DailySchedule) ([]model.DailySchedule, model.DailySchedule) {
	day := model.DailySchedule{
		ID:              model.NewID(model.PrefixDay),
		ProjectManagers: []model.ProjectManager{},
	}
	return append(slices.Clone(days), day), day
}

// SetDate sets a day's date and derives its English weekday name. An
// empty date clears both.
func SetDate(days []model.DailySchedule, dayID, date string) ([]model.DailySchedule, error) {
	dayName := ""
	if date != "" {
		t, err := model.ParseDate(date)
		if err != nil {
			return days, err
		}
		dayName = t.Weekday().String()
	}
	return updateDay(days, dayID, func(d model.DailySchedule) model.DailySchedule {
		d.Date = date
		d.DayName = dayName
		return d
	}), nil
}

// DeleteDay removes a day.
func DeleteDay(days []model.DailySchedule, dayID string) []model.DailySchedule {
	if !slices.ContainsFunc(days, func(d model.DailySchedule) bool { return d.ID == dayID }) {
		return days
	}
	return slices.DeleteFunc(slices.Clone(days), func(d model.DailySchedule) bool { return d.ID == dayID })
}

// AddPM appends an unnamed project manager block to a day and returns
// its id.
func AddPM(days []model.DailySchedule, dayID string) ([]model.DailySchedule, string) {
	pm := model.ProjectManager{
		ID:          model.NewID(model.PrefixPM),
		Assignments: []model.WorkerAssignment{},
	}
	added := false
	out := updateDay(days, dayID, func(d model.DailySchedule) model.DailySchedule {
		d.ProjectManagers = append(slices.Clone(d.ProjectManagers), pm)
		added = true
		return d
	})
	if !added {
		return days, ""
	}
	return out, pm.ID
}

// RenamePM sets a project manager's display name.
func RenamePM(days []model.DailySchedule, dayID, pmID, name string) []model.DailySchedule {
	return updatePM(days, dayID, pmID, func(pm model.ProjectManager) model.ProjectManager {
		pm.Name = name
		return pm
	})
}

// RemovePM removes a project manager block and its assignments.
func RemovePM(days []model.DailySchedule, dayID, pmID string) []model.DailySchedule {
	return updateDay(days, dayID, func(d model.DailySchedule) model.DailySchedule {
		d.ProjectManagers = slices.DeleteFunc(slices.Clone(d.ProjectManagers),
			func(pm model.ProjectManager) bool { return pm.ID == pmID })
		return d
	})
}

// AddAssignment appends an empty job row under a project manager and
// returns its id.
func AddAssignment(days []model.DailySchedule, dayID, pmID string) ([]model.DailySchedule, string) {
	a := model.WorkerAssignment{
		ID:      model.NewID(model.PrefixJob),
		Workers: []string{},
		PMID:    pmID,
	}
	added := false
	out := updatePM(days, dayID, pmID, func(pm model.ProjectManager) model.ProjectManager {
		pm.Assignments = append(slices.Clone(pm.Assignments), a)
		added = true
		return pm
	})
	if !added {
		return days, ""
	}
	return out, a.ID
}

// SetJob sets the job of an assignment.
func SetJob(days []model.DailySchedule, dayID, pmID, assignID, job string) []model.DailySchedule {
	return updateAssignment(days, dayID, pmID, assignID, func(a model.WorkerAssignment) model.WorkerAssignment {
		a.Job = job
		return a
	})
}

// SetWorkers replaces the worker list of an assignment.
func SetWorkers(days []model.DailySchedule, dayID, pmID, assignID string, workers []string) []model.DailySchedule {
	return updateAssignment(days, dayID, pmID, assignID, func(a model.WorkerAssignment) model.WorkerAssignment {
		a.Workers = slices.Clone(workers)
		if a.Workers == nil {
			a.Workers = []string{}
		}
		return a
	})
}

// RemoveAssignment removes a job row.
func RemoveAssignment(days []model.DailySchedule, dayID, pmID, assignID string) []model.DailySchedule {
	return updatePM(days, dayID, pmID, func(pm model.ProjectManager) model.ProjectManager {
		pm.Assignments = slices.DeleteFunc(slices.Clone(pm.Assignments),
			func(a model.WorkerAssignment) bool { return a.ID == assignID })
		return pm
	})
}

// ToggleWorker removes worker from an assignment if present, otherwise
// adds it. Adding a worker who is already on another assignment of the
// same day asks confirm first; a nil confirm refuses. The bool reports
// whether the collection changed.
func ToggleWorker(days []model.DailySchedule, dayID, pmID, assignID, worker string, confirm ConfirmFunc) ([]model.DailySchedule, bool) {
	day, ok := Find(days, dayID)
	if !ok {
		return days, false
	}
	current, ok := findAssignment(day, pmID, assignID)
	if !ok {
		return days, false
	}

	if slices.Contains(current.Workers, worker) {
		remaining := slices.DeleteFunc(slices.Clone(current.Workers), func(w string) bool { return w == worker })
		return SetWorkers(days, dayID, pmID, assignID, remaining), true
	}

	if WorkerAssignedElsewhere(day, assignID, worker) {
		msg := fmt.Sprintf("%s is already assigned to another job today. Are you sure?", worker)
		if confirm == nil || !confirm(msg) {
			return days, false
		}
	}

	return SetWorkers(days, dayID, pmID, assignID, append(slices.Clone(current.Workers), worker)), true
}

// WorkerAssignedElsewhere reports whether worker is on any assignment of
// day other than assignID.
func WorkerAssignedElsewhere(day model.DailySchedule, assignID, worker string) bool {
	for _, pm := range day.ProjectManagers {
		for _, a := range pm.Assignments {
			if a.ID != assignID && slices.Contains(a.Workers, worker) {
				return true
			}
		}
	}
	return false
}

func findAssignment(day model.DailySchedule, pmID, assignID string) (model.WorkerAssignment, bool) {
	for _, pm := range day.ProjectManagers {
		if pm.ID != pmID {
			continue
		}
		for _, a := range pm.Assignments {
			if a.ID == assignID {
				return a, true
			}
		}
	}
	return model.WorkerAssignment{}, false
}

// CopyDay appends a deep copy of a day with fresh ids at every level. The
// copy is undated and not sent.
func CopyDay(days []model.DailySchedule, dayID string) ([]model.DailySchedule, model.DailySchedule, bool) {
	src, ok := Find(days, dayID)
	if !ok {
		return days, model.DailySchedule{}, false
	}

	copied := model.DailySchedule{
		ID:              model.NewID(model.PrefixDay),
		ProjectManagers: make([]model.ProjectManager, 0, len(src.ProjectManagers)),
	}
	for _, pm := range src.ProjectManagers {
		newPM := model.ProjectManager{
			ID:          model.NewID(model.PrefixPM),
			Name:        pm.Name,
			Assignments: make([]model.WorkerAssignment, 0, len(pm.Assignments)),
		}
		for _, a := range pm.Assignments {
			workers := slices.Clone(a.Workers)
			if workers == nil {
				workers = []string{}
			}
			newPM.Assignments = append(newPM.Assignments, model.WorkerAssignment{
				ID:      model.NewID(model.PrefixJob),
				Workers: workers,
				Job:     a.Job,
				PMID:    newPM.ID,
			})
		}
		copied.ProjectManagers = append(copied.ProjectManagers, newPM)
	}

	return append(slices.Clone(days), copied), copied, true
}

// MarkSent flags a day as sent. The flag is never cleared here.
func MarkSent(days []model.DailySchedule, dayID string) []model.DailySchedule {
	return updateDay(days, dayID, func(d model.DailySchedule) model.DailySchedule {
		d.SentToQB = true
		return d
	})
}

// Find returns the day with the given id.
func Find(days []model.DailySchedule, dayID string) (model.DailySchedule, bool) {
	i := slices.IndexFunc(days, func(d model.DailySchedule) bool { return d.ID == dayID })
	if i < 0 {
		return model.DailySchedule{}, false
	}
	return days[i], true
}
