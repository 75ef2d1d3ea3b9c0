package store

// Timestamps are stored as fixed-width UTC text (see timeLayout) in both
// dialects so range comparisons and ordering are lexical.

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS mo_cache (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	mo_number         TEXT NOT NULL UNIQUE,
	sku_name          TEXT NOT NULL DEFAULT '',
	quantity          REAL,
	uom               TEXT NOT NULL DEFAULT '',
	note              TEXT NOT NULL DEFAULT '',
	source_created_at TEXT NOT NULL,
	fetched_at        TEXT NOT NULL,
	last_updated      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mo_cache_source_created_at ON mo_cache(source_created_at);
CREATE INDEX IF NOT EXISTS idx_mo_cache_fetched_at ON mo_cache(fetched_at);

CREATE TABLE IF NOT EXISTS mo_status (
	mo_number  TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	sku_name   TEXT NOT NULL DEFAULT '',
	target_qty REAL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	job         TEXT NOT NULL,
	trigger_kind TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	detail      TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job)
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS mo_cache (
	id                BIGSERIAL PRIMARY KEY,
	mo_number         TEXT NOT NULL UNIQUE,
	sku_name          TEXT NOT NULL DEFAULT '',
	quantity          DOUBLE PRECISION,
	uom               TEXT NOT NULL DEFAULT '',
	note              TEXT NOT NULL DEFAULT '',
	source_created_at TEXT NOT NULL,
	fetched_at        TEXT NOT NULL,
	last_updated      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mo_cache_source_created_at ON mo_cache(source_created_at);
CREATE INDEX IF NOT EXISTS idx_mo_cache_fetched_at ON mo_cache(fetched_at);

CREATE TABLE IF NOT EXISTS mo_status (
	mo_number  TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	sku_name   TEXT NOT NULL DEFAULT '',
	target_qty DOUBLE PRECISION,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_runs (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL,
	job         TEXT NOT NULL,
	trigger_kind TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	detail      TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job)
`
