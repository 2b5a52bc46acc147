package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// schemaVersionDDL is applied before any migration so the current version
// can be read on every supported driver.
const schemaVersionDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
)`

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1. The SQL is
// restricted to what both SQLite and PostgreSQL accept, and every
// statement must be safe to re-run after a partial failure.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schedules (
	id          TEXT PRIMARY KEY,
	date        TEXT NOT NULL DEFAULT '',
	day_name    TEXT NOT NULL DEFAULT '',
	sent_to_qb  INTEGER NOT NULL DEFAULT 0,
	sort_order  INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS project_managers (
	id          TEXT PRIMARY KEY,
	schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
	name        TEXT NOT NULL DEFAULT '',
	sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS assignments (
	id          TEXT PRIMARY KEY,
	pm_id       TEXT NOT NULL REFERENCES project_managers(id) ON DELETE CASCADE,
	schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
	workers     TEXT NOT NULL DEFAULT '[]',
	job         TEXT NOT NULL DEFAULT '',
	sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_schedules_date ON schedules(date, sort_order);
CREATE INDEX IF NOT EXISTS idx_pm_schedule ON project_managers(schedule_id);
CREATE INDEX IF NOT EXISTS idx_assign_pm ON assignments(pm_id);
CREATE INDEX IF NOT EXISTS idx_assign_schedule ON assignments(schedule_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
