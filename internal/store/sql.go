package store

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
)

// SQLStore implements the Store interface on a relational database
// reached through sqlx. The connection pool is owned by the caller.
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger

	schemaMu    gosync.Mutex
	schemaReady bool
}

// NewSQLStore wraps an already opened pool. Schema creation is deferred to
// the first Load or SaveAll.
func NewSQLStore(db *sqlx.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, logger: logger}
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ensureSchema applies outstanding migrations once. A failed attempt is
// retried on the next call.
func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady {
		return nil
	}
	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	s.schemaReady = true
	return nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaVersionDDL); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	err := s.db.GetContext(ctx, &currentVersion,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		s.logger.Info("schema migrated", zap.Int("version", m.version))
	}

	return nil
}

type scheduleRow struct {
	ID       string `db:"id"`
	Date     string `db:"date"`
	DayName  string `db:"day_name"`
	SentToQB int    `db:"sent_to_qb"`
}

type pmRow struct {
	ID         string `db:"id"`
	ScheduleID string `db:"schedule_id"`
	Name       string `db:"name"`
}

type assignmentRow struct {
	ID         string `db:"id"`
	PMID       string `db:"pm_id"`
	ScheduleID string `db:"schedule_id"`
	Workers    string `db:"workers"`
	Job        string `db:"job"`
}

// Load reads the three row sets and rebuilds the nested tree by grouping
// on foreign keys. Rows whose parent is missing are skipped.
func (s *SQLStore) Load(ctx context.Context) ([]model.DailySchedule, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var scheduleRows []scheduleRow
	err := s.db.SelectContext(ctx, &scheduleRows, `
		SELECT id, date, day_name, sent_to_qb
		FROM schedules
		ORDER BY date, sort_order`)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}

	var pmRows []pmRow
	err = s.db.SelectContext(ctx, &pmRows, `
		SELECT id, schedule_id, name
		FROM project_managers
		ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("querying project managers: %w", err)
	}

	var assignRows []assignmentRow
	err = s.db.SelectContext(ctx, &assignRows, `
		SELECT id, pm_id, schedule_id, workers, job
		FROM assignments
		ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}

	assignmentsByPM := make(map[string][]model.WorkerAssignment, len(pmRows))
	for _, a := range assignRows {
		workers, err := decodeWorkers(a.Workers)
		if err != nil {
			return nil, fmt.Errorf("decoding workers of assignment %s: %w", a.ID, err)
		}
		assignmentsByPM[a.PMID] = append(assignmentsByPM[a.PMID], model.WorkerAssignment{
			ID:      a.ID,
			Workers: workers,
			Job:     a.Job,
			PMID:    a.PMID,
		})
	}

	pmsBySchedule := make(map[string][]model.ProjectManager, len(scheduleRows))
	for _, pm := range pmRows {
		assignments := assignmentsByPM[pm.ID]
		if assignments == nil {
			assignments = []model.WorkerAssignment{}
		}
		pmsBySchedule[pm.ScheduleID] = append(pmsBySchedule[pm.ScheduleID], model.ProjectManager{
			ID:          pm.ID,
			Name:        pm.Name,
			Assignments: assignments,
		})
	}

	schedules := make([]model.DailySchedule, 0, len(scheduleRows))
	for _, row := range scheduleRows {
		pms := pmsBySchedule[row.ID]
		if pms == nil {
			pms = []model.ProjectManager{}
		}
		schedules = append(schedules, model.DailySchedule{
			ID:              row.ID,
			Date:            row.Date,
			DayName:         row.DayName,
			SentToQB:        row.SentToQB != 0,
			ProjectManagers: pms,
		})
	}

	return schedules, nil
}

// SaveAll deletes every persisted row and re-inserts the given collection
// inside one transaction, recording each element's index as sort_order.
// Any failure rolls the whole batch back.
func (s *SQLStore) SaveAll(ctx context.Context, schedules []model.DailySchedule) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Children first so the wipe does not depend on cascade support.
	for _, table := range []string{"assignments", "project_managers", "schedules"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	insertSchedule := tx.Rebind(`
		INSERT INTO schedules (id, date, day_name, sent_to_qb, sort_order, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`)
	insertPM := tx.Rebind(`
		INSERT INTO project_managers (id, schedule_id, name, sort_order)
		VALUES (?, ?, ?, ?)`)
	insertAssignment := tx.Rebind(`
		INSERT INTO assignments (id, pm_id, schedule_id, workers, job, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)`)

	for si, sched := range schedules {
		_, err := tx.ExecContext(ctx, insertSchedule,
			sched.ID, sched.Date, sched.DayName, boolToInt(sched.SentToQB), si,
		)
		if err != nil {
			return fmt.Errorf("inserting schedule %s: %w", sched.ID, err)
		}

		for pi, pm := range sched.ProjectManagers {
			if _, err := tx.ExecContext(ctx, insertPM, pm.ID, sched.ID, pm.Name, pi); err != nil {
				return fmt.Errorf("inserting project manager %s: %w", pm.ID, err)
			}

			for ai, a := range pm.Assignments {
				workers, err := encodeWorkers(a.Workers)
				if err != nil {
					return fmt.Errorf("encoding workers of assignment %s: %w", a.ID, err)
				}
				_, err = tx.ExecContext(ctx, insertAssignment,
					a.ID, pm.ID, sched.ID, workers, a.Job, ai,
				)
				if err != nil {
					return fmt.Errorf("inserting assignment %s: %w", a.ID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schedules: %w", err)
	}

	s.logger.Debug("schedules saved", zap.Int("schedules", len(schedules)))
	return nil
}

// encodeWorkers stores the ordered worker list as a JSON array.
func encodeWorkers(workers []string) (string, error) {
	if workers == nil {
		workers = []string{}
	}
	data, err := json.Marshal(workers)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeWorkers(raw string) ([]string, error) {
	workers := []string{}
	if raw == "" {
		return workers, nil
	}
	if err := json.Unmarshal([]byte(raw), &workers); err != nil {
		return nil, err
	}
	if workers == nil {
		workers = []string{}
	}
	return workers, nil
}

// boolToInt converts a boolean to 0 or 1 for portable storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
