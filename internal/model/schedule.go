package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DailySchedule is one day card: the project managers working that day
// and the crews assigned under each of them.
type DailySchedule struct {
	// ID is client-generated and unique within the collection.
	ID string `json:"id"`

	// Date is an ISO calendar date (YYYY-MM-DD) or empty for undated days.
	Date string `json:"date"`

	// DayName is the weekday label derived from Date (e.g. "Monday").
	DayName string `json:"dayName"`

	// SentToQB is set once any event batch for this day was accepted by
	// the time-tracking service. It is never cleared automatically.
	SentToQB bool `json:"sentToQB"`

	ProjectManagers []ProjectManager `json:"projectManagers"`
}

// ProjectManager is a supervisor block within a day.
type ProjectManager struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Assignments []WorkerAssignment `json:"assignments"`
}

// WorkerAssignment pairs a job with the technicians sent to it.
type WorkerAssignment struct {
	ID      string   `json:"id"`
	Workers []string `json:"workers"`
	Job     string   `json:"job"`
	PMID    string   `json:"pmId"`
}

// ID prefixes for client-generated identifiers.
const (
	PrefixDay = "day"
	PrefixPM  = "pm"
	PrefixJob = "job"
)

// NewID returns a time-based identifier with a random suffix,
// e.g. "pm-1718000000000-3f9a1".
func NewID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:5]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

// DateLayout is the wire layout of DailySchedule.Date.
const DateLayout = "2006-01-02"

// ParseDate parses a schedule date as a calendar day in UTC.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing schedule date %q: %w", date, err)
	}
	return t, nil
}

// WorkerCount returns the number of worker slots across all assignments.
func (d DailySchedule) WorkerCount() int {
	total := 0
	for _, pm := range d.ProjectManagers {
		for _, a := range pm.Assignments {
			total += len(a.Workers)
		}
	}
	return total
}

// Label returns the best human label for the day: its weekday name,
// its date, or "undated".
func (d DailySchedule) Label() string {
	switch {
	case d.DayName != "":
		return d.DayName
	case d.Date != "":
		return d.Date
	default:
		return "undated"
	}
}
