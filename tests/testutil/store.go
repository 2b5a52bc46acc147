package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/store"
)

// NewTestDB opens an in-memory SQLite pool. It automatically closes the
// pool when the test completes.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := store.Open(context.Background(), model.DatabaseConfig{
		Driver: store.DriverSQLite,
		DSN:    ":memory:",
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})

	return db
}

// NewTestStore creates an SQLStore over an in-memory SQLite database.
// The schema is created lazily on first use, as in production.
func NewTestStore(t *testing.T) (*store.SQLStore, *sqlx.DB) {
	t.Helper()

	db := NewTestDB(t)
	return store.NewSQLStore(db, zap.NewNop()), db
}

// SampleSchedules returns a small collection covering every level of the
// schedule tree.
func SampleSchedules() []model.DailySchedule {
	return []model.DailySchedule{
		{
			ID:       "day-1",
			Date:     "2025-04-01",
			DayName:  "Tuesday",
			SentToQB: true,
			ProjectManagers: []model.ProjectManager{
				{
					ID:   "pm-1",
					Name: "JOHN SMITH",
					Assignments: []model.WorkerAssignment{
						{ID: "job-1", Workers: []string{"Alice Brown", "Bob Green"}, Job: "3060 3rd Ave, Bronx, NY", PMID: "pm-1"},
						{ID: "job-2", Workers: []string{}, Job: "Office Work", PMID: "pm-1"},
					},
				},
				{ID: "pm-2", Name: "MARY JONES", Assignments: []model.WorkerAssignment{}},
			},
		},
		{
			ID:      "day-2",
			Date:    "2025-04-02",
			DayName: "Wednesday",
			ProjectManagers: []model.ProjectManager{
				{
					ID:   "pm-3",
					Name: "JOHN SMITH",
					Assignments: []model.WorkerAssignment{
						{ID: "job-3", Workers: []string{"Carl White"}, Job: "86-06 Queens Blvd", PMID: "pm-3"},
					},
				},
			},
		},
	}
}
