package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	department         TEXT NOT NULL,
	category           TEXT NOT NULL DEFAULT '',
	severity           TEXT NOT NULL DEFAULT '',
	details            TEXT NOT NULL DEFAULT '',
	submitted_at       DATETIME NOT NULL,
	submitted_at_local TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'unresolved',
	agent_name         TEXT NOT NULL DEFAULT '',
	situation          TEXT NOT NULL DEFAULT '',
	solution           TEXT NOT NULL DEFAULT '',
	resolved_at        DATETIME,
	updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS prefs (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tickets_submitted_at ON tickets(submitted_at);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_updated_at ON tickets(updated_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_tickets_department ON tickets(department);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
