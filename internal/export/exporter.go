package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/qbtime"
)

// ErrNoEntries is returned when a day produced nothing to send.
var ErrNoEntries = errors.New("no valid entries to send: make sure each job has workers and a job selected")

// LookupError is a name that has no match in the directory.
type LookupError struct {
	Kind string // "job" or "technician"
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q not found in QB Time", e.Kind, e.Name)
}

// EventSink receives the resolved entries of a day.
type EventSink interface {
	CreateScheduleEvents(ctx context.Context, entries []qbtime.ScheduleEventEntry) (*qbtime.CreateResult, error)
}

// Result summarizes one exported day.
type Result struct {
	Success bool                 `json:"success"`
	Created int                  `json:"created"`
	Failed  int                  `json:"failed"`
	Results []qbtime.CreatedItem `json:"results,omitempty"`
	Errors  []qbtime.ItemError   `json:"errors,omitempty"`
}

// Exporter turns schedule days into calendar events.
type Exporter struct {
	sink   EventSink
	logger *zap.Logger
}

// NewExporter builds an Exporter posting to sink.
func NewExporter(sink EventSink, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{sink: sink, logger: logger}
}

// index maps lower-cased names to ids. The first entry with a name wins.
func index(names map[string]string, name, id string) {
	key := strings.ToLower(name)
	if _, ok := names[key]; !ok {
		names[key] = id
	}
}

// BuildEntries resolves every planned event of day against dir. The
// first job or technician without a match aborts the whole day.
func BuildEntries(day model.DailySchedule, dir model.Directory) ([]qbtime.ScheduleEventEntry, error) {
	planned, err := Plan(day)
	if err != nil {
		return nil, err
	}

	jobs := make(map[string]string, len(dir.Jobs))
	for _, j := range dir.Jobs {
		index(jobs, j.Name, j.ID)
	}
	techs := make(map[string]string, len(dir.Technicians))
	for _, t := range dir.Technicians {
		index(techs, t.Name, t.ID)
	}

	entries := make([]qbtime.ScheduleEventEntry, 0, len(planned))
	for _, ev := range planned {
		jobID, ok := jobs[strings.ToLower(ev.Job)]
		if !ok {
			return nil, &LookupError{Kind: "job", Name: ev.Job}
		}
		jobcode, err := strconv.ParseInt(jobID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("job %q has non-numeric id %q", ev.Job, jobID)
		}

		userIDs := make([]string, 0, len(ev.Workers))
		for _, w := range ev.Workers {
			id, ok := techs[strings.ToLower(strings.TrimSpace(w))]
			if !ok {
				return nil, &LookupError{Kind: "technician", Name: w}
			}
			userIDs = append(userIDs, id)
		}

		draft := false
		entries = append(entries, qbtime.ScheduleEventEntry{
			AssignedUserIDs: userIDs,
			JobcodeID:       jobcode,
			Start:           ev.Start,
			End:             ev.End,
			AllDay:          false,
			Timezone:        Timezone,
			Title:           ev.Title,
			Notes:           ev.Notes,
			Location:        ev.Job,
			Color:           ev.Color,
			Draft:           &draft,
		})
	}

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

// ExportDay resolves and submits one day. Nothing is sent unless every
// reference resolves. Success means at least one event was created.
func (e *Exporter) ExportDay(ctx context.Context, day model.DailySchedule, dir model.Directory) (Result, error) {
	entries, err := BuildEntries(day, dir)
	if err != nil {
		e.logger.Warn("day not exported",
			zap.String("schedule_id", day.ID),
			zap.String("date", day.Date),
			zap.Error(err),
		)
		return Result{}, err
	}

	created, err := e.sink.CreateScheduleEvents(ctx, entries)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Success: created.Created > 0,
		Created: created.Created,
		Failed:  created.Failed,
		Results: created.Results,
		Errors:  created.Errors,
	}
	e.logger.Info("day exported",
		zap.String("schedule_id", day.ID),
		zap.String("date", day.Date),
		zap.Int("entries", len(entries)),
		zap.Int("created", res.Created),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
