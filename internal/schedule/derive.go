package schedule

import (
	"slices"
	"strings"

	"github.com/nhle/work-schedule/internal/model"
)

// Summary counts the contents of a collection.
type Summary struct {
	Days            int `json:"days"`
	ProjectManagers int `json:"projectManagers"`
	Assignments     int `json:"assignments"`
	Workers         int `json:"workers"`
}

// Stats summarizes days. Workers counts worker slots, so a technician on
// two assignments counts twice.
func Stats(days []model.DailySchedule) Summary {
	s := Summary{Days: len(days)}
	for _, d := range days {
		s.ProjectManagers += len(d.ProjectManagers)
		for _, pm := range d.ProjectManagers {
			s.Assignments += len(pm.Assignments)
		}
		s.Workers += d.WorkerCount()
	}
	return s
}

// FilterRange keeps days dated within [from, to]. Either bound may be
// empty. Undated days are always kept.
func FilterRange(days []model.DailySchedule, from, to string) []model.DailySchedule {
	out := make([]model.DailySchedule, 0, len(days))
	for _, d := range days {
		if d.Date != "" {
			if from != "" && d.Date < from {
				continue
			}
			if to != "" && d.Date > to {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// compareDates orders dated days ascending and undated days last.
func compareDates(a, b model.DailySchedule) int {
	switch {
	case a.Date == "" && b.Date == "":
		return 0
	case a.Date == "":
		return 1
	case b.Date == "":
		return -1
	default:
		return strings.Compare(a.Date, b.Date)
	}
}

// SortByDate returns days ordered by date, undated last. Ties keep their
// input order.
func SortByDate(days []model.DailySchedule) []model.DailySchedule {
	out := slices.Clone(days)
	slices.SortStableFunc(out, compareDates)
	return out
}

// PruneCandidates returns the ids of the days PruneOldest would remove.
func PruneCandidates(days []model.DailySchedule, keep int) []string {
	if keep < 0 || len(days) <= keep {
		return nil
	}
	newest := slices.Clone(days)
	slices.SortStableFunc(newest, func(a, b model.DailySchedule) int {
		switch {
		case a.Date == "" && b.Date == "":
			return 0
		case a.Date == "":
			return 1
		case b.Date == "":
			return -1
		default:
			return strings.Compare(b.Date, a.Date)
		}
	})
	ids := make([]string, 0, len(newest)-keep)
	for _, d := range newest[keep:] {
		ids = append(ids, d.ID)
	}
	return ids
}

// PruneOldest keeps the keep newest days by date, treating undated days
// as oldest, and preserves the input order of the survivors.
func PruneOldest(days []model.DailySchedule, keep int) ([]model.DailySchedule, int) {
	drop := PruneCandidates(days, keep)
	if len(drop) == 0 {
		return days, 0
	}
	out := slices.DeleteFunc(slices.Clone(days), func(d model.DailySchedule) bool {
		return slices.Contains(drop, d.ID)
	})
	return out, len(days) - len(out)
}
