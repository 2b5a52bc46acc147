package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/schedule"
	"github.com/nhle/work-schedule/internal/theme"
)

const dayUsage = "usage: workschedule day add|set-date|delete|add-pm|rename-pm|remove-pm|assign|unassign|toggle [flags]"

// dayArgs holds the flags shared by the day subcommands.
type dayArgs struct {
	day        string
	date       string
	pm         string
	name       string
	assignment string
	job        string
	workers    string
	worker     string
}

// dayEdit applies one subcommand to the collection and describes the
// result. On error the collection is returned unchanged.
type dayEdit func(days []model.DailySchedule) ([]model.DailySchedule, string, error)

func splitWorkers(list string) []string {
	workers := []string{}
	for _, w := range strings.Split(list, ",") {
		if w = strings.TrimSpace(w); w != "" {
			workers = append(workers, w)
		}
	}
	return workers
}

func requireDay(days []model.DailySchedule, id string) error {
	if id == "" {
		return errors.New("-day is required")
	}
	if _, ok := schedule.Find(days, id); !ok {
		return fmt.Errorf("schedule %q not found", id)
	}
	return nil
}

func requirePM(days []model.DailySchedule, dayID, pmID string) error {
	if err := requireDay(days, dayID); err != nil {
		return err
	}
	if pmID == "" {
		return errors.New("-pm is required")
	}
	day, _ := schedule.Find(days, dayID)
	for _, pm := range day.ProjectManagers {
		if pm.ID == pmID {
			return nil
		}
	}
	return fmt.Errorf("project manager %q not found on %s", pmID, day.Label())
}

// buildDayEdit maps a subcommand onto the schedule edit operations.
func buildDayEdit(sub string, a dayArgs, confirm schedule.ConfirmFunc) (dayEdit, error) {
	switch sub {
	case "add":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			out, day := schedule.AddDay(days)
			if a.date != "" {
				var err error
				if out, err = schedule.SetDate(out, day.ID, a.date); err != nil {
					return days, "", err
				}
			}
			return out, "added day " + day.ID, nil
		}, nil

	case "set-date":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requireDay(days, a.day); err != nil {
				return days, "", err
			}
			out, err := schedule.SetDate(days, a.day, a.date)
			if err != nil {
				return days, "", err
			}
			day, _ := schedule.Find(out, a.day)
			return out, fmt.Sprintf("%s is now %s", a.day, day.Label()), nil
		}, nil

	case "delete":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requireDay(days, a.day); err != nil {
				return days, "", err
			}
			day, _ := schedule.Find(days, a.day)
			if confirm == nil || !confirm(fmt.Sprintf("Delete the schedule for %s?", day.Label())) {
				return days, "kept " + a.day, nil
			}
			return schedule.DeleteDay(days, a.day), "deleted " + a.day, nil
		}, nil

	case "add-pm":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requireDay(days, a.day); err != nil {
				return days, "", err
			}
			out, pmID := schedule.AddPM(days, a.day)
			if a.name != "" {
				out = schedule.RenamePM(out, a.day, pmID, a.name)
			}
			return out, "added project manager " + pmID, nil
		}, nil

	case "rename-pm":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requirePM(days, a.day, a.pm); err != nil {
				return days, "", err
			}
			return schedule.RenamePM(days, a.day, a.pm, a.name), "renamed " + a.pm, nil
		}, nil

	case "remove-pm":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requirePM(days, a.day, a.pm); err != nil {
				return days, "", err
			}
			return schedule.RemovePM(days, a.day, a.pm), "removed " + a.pm, nil
		}, nil

	case "assign":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requirePM(days, a.day, a.pm); err != nil {
				return days, "", err
			}
			out, id := schedule.AddAssignment(days, a.day, a.pm)
			out = schedule.SetJob(out, a.day, a.pm, id, a.job)
			out = schedule.SetWorkers(out, a.day, a.pm, id, splitWorkers(a.workers))
			return out, "added assignment " + id, nil
		}, nil

	case "unassign":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requirePM(days, a.day, a.pm); err != nil {
				return days, "", err
			}
			if a.assignment == "" {
				return days, "", errors.New("-assignment is required")
			}
			return schedule.RemoveAssignment(days, a.day, a.pm, a.assignment), "removed " + a.assignment, nil
		}, nil

	case "toggle":
		return func(days []model.DailySchedule) ([]model.DailySchedule, string, error) {
			if err := requirePM(days, a.day, a.pm); err != nil {
				return days, "", err
			}
			if a.assignment == "" || a.worker == "" {
				return days, "", errors.New("-assignment and -worker are required")
			}
			out, changed := schedule.ToggleWorker(days, a.day, a.pm, a.assignment, a.worker, confirm)
			if !changed {
				return days, "no change", nil
			}
			return out, "toggled " + a.worker, nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown day command %q", sub)
	}
}

func runDay(ctx context.Context, cfg *model.AppConfig, args []string) error {
	if len(args) == 0 {
		return errors.New(dayUsage)
	}
	sub := args[0]

	fs := newFlagSet("day " + sub)
	var flags dayArgs
	fs.StringVar(&flags.day, "day", "", "id of the day")
	fs.StringVar(&flags.date, "date", "", "date (YYYY-MM-DD)")
	fs.StringVar(&flags.pm, "pm", "", "id of the project manager block")
	fs.StringVar(&flags.name, "name", "", "project manager name")
	fs.StringVar(&flags.assignment, "assignment", "", "id of the assignment")
	fs.StringVar(&flags.job, "job", "", "job name")
	fs.StringVar(&flags.workers, "workers", "", "comma separated worker names")
	fs.StringVar(&flags.worker, "worker", "", "worker to add or remove")
	yes := fs.Bool("yes", false, "confirm without asking")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	edit, err := buildDayEdit(sub, flags, confirmer(*yes))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, "workschedule-cli", false)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.syncer(ctx)
	var (
		msg     string
		editErr error
	)
	if _, err := s.Apply(ctx, func(days []model.DailySchedule) []model.DailySchedule {
		var out []model.DailySchedule
		out, msg, editErr = edit(days)
		return out
	}); err != nil {
		a.logger.Warn("local cache not updated", zap.Error(err))
	}
	if editErr != nil {
		return editErr
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	fmt.Println(theme.SuccessStyle.Render(msg))
	return nil
}
