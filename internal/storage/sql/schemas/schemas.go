package schemas

const SQLITE_SCHEMA = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    entity TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status
ON runs (status);

CREATE INDEX IF NOT EXISTS idx_runs_created_at
ON runs (created_at);
`

const POSTGRES_SCHEMA = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    entity JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status
ON runs (status);

CREATE INDEX IF NOT EXISTS idx_runs_created_at
ON runs (created_at);
`

func SchemaForDriver(driver string) string {
	switch driver {
	case "sqlite":
		return SQLITE_SCHEMA
	case "pgx":
		return POSTGRES_SCHEMA
	default:
		return ""
	}
}
