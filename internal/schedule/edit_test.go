package schedule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/tests/testutil"
)

func TestAddDay(t *testing.T) {
	days, day := AddDay(nil)
	require.Len(t, days, 1)
	assert.True(t, strings.HasPrefix(day.ID, "day-"))
	assert.Empty(t, day.Date)
	assert.NotNil(t, day.ProjectManagers)
}

func TestSetDate_DerivesDayName(t *testing.T) {
	days := testutil.SampleSchedules()

	out, err := SetDate(days, "day-2", "2025-04-05")
	require.NoError(t, err)
	assert.Equal(t, "Saturday", out[1].DayName)
	assert.Equal(t, "2025-04-05", out[1].Date)
	assert.Equal(t, "Wednesday", days[1].DayName, "input untouched")

	out, err = SetDate(out, "day-2", "")
	require.NoError(t, err)
	assert.Empty(t, out[1].DayName)

	_, err = SetDate(days, "day-2", "04/05/2025")
	assert.Error(t, err)
}

func TestEdits_ShareUntouchedBranches(t *testing.T) {
	days := testutil.SampleSchedules()

	out := SetJob(days, "day-1", "pm-1", "job-2", "Warehouse")

	assert.Equal(t, "Warehouse", out[0].ProjectManagers[0].Assignments[1].Job)
	assert.Equal(t, "Office Work", days[0].ProjectManagers[0].Assignments[1].Job)

	// Untouched day and PM are the very same backing arrays.
	assert.Same(t, &days[1].ProjectManagers[0], &out[1].ProjectManagers[0])
	assert.Same(t, &days[1].ProjectManagers[0].Assignments[0], &out[1].ProjectManagers[0].Assignments[0])
	assert.NotSame(t, &days[0].ProjectManagers[0].Assignments[0], &out[0].ProjectManagers[0].Assignments[0])
}

func TestPMAndAssignmentLifecycle(t *testing.T) {
	days := testutil.SampleSchedules()

	days, pmID := AddPM(days, "day-2")
	require.NotEmpty(t, pmID)
	days = RenamePM(days, "day-2", pmID, "MARY JONES")
	days, aID := AddAssignment(days, "day-2", pmID)
	require.NotEmpty(t, aID)
	days = SetWorkers(days, "day-2", pmID, aID, []string{"Carl White"})
	days = SetJob(days, "day-2", pmID, aID, "Office Work")

	day, ok := Find(days, "day-2")
	require.True(t, ok)
	require.Len(t, day.ProjectManagers, 2)
	pm := day.ProjectManagers[1]
	assert.Equal(t, "MARY JONES", pm.Name)
	assert.Equal(t, []model.WorkerAssignment{{ID: aID, Workers: []string{"Carl White"}, Job: "Office Work", PMID: pmID}}, pm.Assignments)

	days = RemoveAssignment(days, "day-2", pmID, aID)
	day, _ = Find(days, "day-2")
	assert.Empty(t, day.ProjectManagers[1].Assignments)

	days = RemovePM(days, "day-2", pmID)
	day, _ = Find(days, "day-2")
	assert.Len(t, day.ProjectManagers, 1)

	days = DeleteDay(days, "day-2")
	_, ok = Find(days, "day-2")
	assert.False(t, ok)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	days := testutil.SampleSchedules()

	out, id := AddPM(days, "nope")
	assert.Empty(t, id)
	assert.Equal(t, days, out)

	out, id = AddAssignment(days, "day-1", "nope")
	assert.Empty(t, id)
	assert.Equal(t, days, out)

	assert.Equal(t, days, RenamePM(days, "day-1", "nope", "X"))
	assert.Equal(t, days, DeleteDay(days, "nope"))
	assert.Equal(t, days, MarkSent(days, "nope"))
}

func TestToggleWorker(t *testing.T) {
	days := testutil.SampleSchedules()

	// Removing never asks.
	out, changed := ToggleWorker(days, "day-1", "pm-1", "job-1", "Alice Brown", nil)
	require.True(t, changed)
	assert.Equal(t, []string{"Bob Green"}, out[0].ProjectManagers[0].Assignments[0].Workers)

	// Adding a worker free that day does not ask.
	asked := false
	out, changed = ToggleWorker(days, "day-1", "pm-1", "job-2", "Carl White", func(string) bool {
		asked = true
		return true
	})
	require.True(t, changed)
	assert.False(t, asked)
	assert.Equal(t, []string{"Carl White"}, out[0].ProjectManagers[0].Assignments[1].Workers)
}

func TestToggleWorker_ConfirmsDoubleBooking(t *testing.T) {
	days := testutil.SampleSchedules()

	var msg string
	out, changed := ToggleWorker(days, "day-1", "pm-1", "job-2", "Alice Brown", func(m string) bool {
		msg = m
		return false
	})
	assert.False(t, changed)
	assert.Equal(t, days, out)
	assert.Equal(t, "Alice Brown is already assigned to another job today. Are you sure?", msg)

	out, changed = ToggleWorker(days, "day-1", "pm-1", "job-2", "Alice Brown", func(string) bool { return true })
	assert.True(t, changed)
	assert.Equal(t, []string{"Alice Brown"}, out[0].ProjectManagers[0].Assignments[1].Workers)

	// Same worker on another day is not a conflict.
	_, changed = ToggleWorker(days, "day-2", "pm-3", "job-3", "Alice Brown", nil)
	assert.True(t, changed)
}

func TestCopyDay(t *testing.T) {
	days := testutil.SampleSchedules()

	out, copied, ok := CopyDay(days, "day-1")
	require.True(t, ok)
	require.Len(t, out, 3)
	assert.Equal(t, copied, out[2])

	assert.Empty(t, copied.Date)
	assert.Empty(t, copied.DayName)
	assert.False(t, copied.SentToQB)
	require.Len(t, copied.ProjectManagers, 2)
	assert.Equal(t, "JOHN SMITH", copied.ProjectManagers[0].Name)
	assert.Equal(t, []string{"Alice Brown", "Bob Green"}, copied.ProjectManagers[0].Assignments[0].Workers)

	seen := map[string]bool{}
	for _, d := range out {
		require.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
		for _, pm := range d.ProjectManagers {
			require.False(t, seen[pm.ID], "duplicate id %s", pm.ID)
			seen[pm.ID] = true
			for _, a := range pm.Assignments {
				require.False(t, seen[a.ID], "duplicate id %s", a.ID)
				seen[a.ID] = true
			}
		}
	}
	assert.Equal(t, copied.ProjectManagers[0].ID, copied.ProjectManagers[0].Assignments[0].PMID)

	// The copy owns its worker slices.
	copied.ProjectManagers[0].Assignments[0].Workers[0] = "Changed"
	assert.Equal(t, "Alice Brown", days[0].ProjectManagers[0].Assignments[0].Workers[0])

	_, _, ok = CopyDay(days, "missing")
	assert.False(t, ok)
}

func TestMarkSent(t *testing.T) {
	days := testutil.SampleSchedules()
	out := MarkSent(days, "day-2")
	assert.True(t, out[1].SentToQB)
	assert.False(t, days[1].SentToQB)
	assert.True(t, MarkSent(out, "day-2")[1].SentToQB)
}
