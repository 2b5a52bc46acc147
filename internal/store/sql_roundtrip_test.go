package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/store"
	"github.com/nhle/work-schedule/tests/testutil"
)

func TestLoadEmptyStoreCreatesSchema(t *testing.T) {
	s, _ := testutil.NewTestStore(t)

	schedules, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, schedules)
	assert.NotNil(t, schedules)
}

func TestSaveAllThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := testutil.NewTestStore(t)

	want := testutil.SampleSchedules()
	require.NoError(t, s.SaveAll(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saving what was loaded reproduces the same collection.
	require.NoError(t, s.SaveAll(ctx, got))
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSaveAllReplacesEverything(t *testing.T) {
	ctx := context.Background()
	s, db := testutil.NewTestStore(t)

	require.NoError(t, s.SaveAll(ctx, testutil.SampleSchedules()))

	only := []model.DailySchedule{{
		ID:              "day-9",
		Date:            "2025-05-01",
		DayName:         "Thursday",
		ProjectManagers: []model.ProjectManager{},
	}}
	require.NoError(t, s.SaveAll(ctx, only))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, only, got)

	var pmCount, assignCount int
	require.NoError(t, db.Get(&pmCount, "SELECT COUNT(*) FROM project_managers"))
	require.NoError(t, db.Get(&assignCount, "SELECT COUNT(*) FROM assignments"))
	assert.Zero(t, pmCount)
	assert.Zero(t, assignCount)
}

func TestSaveAllPreservesUIOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := testutil.NewTestStore(t)

	schedules := []model.DailySchedule{{
		ID:   "day-1",
		Date: "2025-04-01",
		ProjectManagers: []model.ProjectManager{
			{ID: "pm-z", Name: "ZED", Assignments: []model.WorkerAssignment{
				{ID: "job-z", Workers: []string{"Zoe", "Adam"}, Job: "Z", PMID: "pm-z"},
				{ID: "job-a", Workers: []string{"Adam"}, Job: "A", PMID: "pm-z"},
			}},
			{ID: "pm-a", Name: "ANN", Assignments: []model.WorkerAssignment{}},
		},
	}}
	require.NoError(t, s.SaveAll(ctx, schedules))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].ProjectManagers, 2)
	assert.Equal(t, "pm-z", got[0].ProjectManagers[0].ID)
	assert.Equal(t, "pm-a", got[0].ProjectManagers[1].ID)
	assert.Equal(t, "job-z", got[0].ProjectManagers[0].Assignments[0].ID)
	assert.Equal(t, []string{"Zoe", "Adam"}, got[0].ProjectManagers[0].Assignments[0].Workers)
}

func TestLoadOrdersByDateThenSavedOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := testutil.NewTestStore(t)

	schedules := []model.DailySchedule{
		{ID: "undated-b", ProjectManagers: []model.ProjectManager{}},
		{ID: "late", Date: "2025-06-02", ProjectManagers: []model.ProjectManager{}},
		{ID: "undated-a", ProjectManagers: []model.ProjectManager{}},
		{ID: "early", Date: "2025-06-01", ProjectManagers: []model.ProjectManager{}},
	}
	require.NoError(t, s.SaveAll(ctx, schedules))

	got, err := s.Load(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"undated-b", "undated-a", "early", "late"}, ids)
}

func TestLoadSkipsOrphanRows(t *testing.T) {
	ctx := context.Background()
	s, db := testutil.NewTestStore(t)

	require.NoError(t, s.SaveAll(ctx, testutil.SampleSchedules()[:1]))

	_, err := db.Exec("PRAGMA foreign_keys=OFF")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO project_managers (id, schedule_id, name, sort_order) VALUES ('pm-orphan', 'missing', 'GHOST', 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO assignments (id, pm_id, schedule_id, workers, job, sort_order) VALUES ('job-orphan', 'missing-pm', 'day-1', '["X"]', 'Nowhere', 0)`)
	require.NoError(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].ProjectManagers, 2)
	for _, pm := range got[0].ProjectManagers {
		assert.NotEqual(t, "pm-orphan", pm.ID)
		for _, a := range pm.Assignments {
			assert.NotEqual(t, "job-orphan", a.ID)
		}
	}
}

func TestSaveAllDuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	s, _ := testutil.NewTestStore(t)

	original := testutil.SampleSchedules()
	require.NoError(t, s.SaveAll(ctx, original))

	dup := []model.DailySchedule{
		{ID: "day-x", Date: "2025-07-01", ProjectManagers: []model.ProjectManager{}},
		{ID: "day-x", Date: "2025-07-02", ProjectManagers: []model.ProjectManager{}},
	}
	require.Error(t, s.SaveAll(ctx, dup))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestSchemaReappliesAfterUnrecordedMigration(t *testing.T) {
	ctx := context.Background()
	s, db := testutil.NewTestStore(t)

	require.NoError(t, s.SaveAll(ctx, testutil.SampleSchedules()))

	// Tables exist but the version row was never written.
	_, err := db.Exec("DELETE FROM schema_version")
	require.NoError(t, err)

	fresh := store.NewSQLStore(db, nil)
	got, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleSchedules(), got)

	var versions []int
	require.NoError(t, db.Select(&versions, "SELECT version FROM schema_version"))
	assert.Equal(t, []int{1}, versions)
}
