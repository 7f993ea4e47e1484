package store

// ddl creates the store tables. Schemas are kept per version; the active
// pointer names a schema id and always resolves to its latest saved version.
const ddl = `
CREATE TABLE IF NOT EXISTS schemas (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT NOT NULL,
    version     TEXT NOT NULL,
    body        TEXT NOT NULL,
    field_count INTEGER NOT NULL DEFAULT 0,
    saved_at    TEXT NOT NULL,
    UNIQUE(id, version)
);

CREATE INDEX IF NOT EXISTS idx_schemas_id ON schemas(id);

CREATE TABLE IF NOT EXISTS active_schema (
    slot       INTEGER PRIMARY KEY CHECK(slot = 1),
    schema_id  TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS migration_runs (
    run_id         TEXT PRIMARY KEY,
    from_schema    TEXT NOT NULL,
    schema_id      TEXT NOT NULL,
    schema_version TEXT NOT NULL,
    migrated       INTEGER NOT NULL,
    skipped        INTEGER NOT NULL,
    failed         INTEGER NOT NULL,
    total          INTEGER NOT NULL,
    started_at     TEXT NOT NULL,
    finished_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_migration_runs_schema ON migration_runs(schema_id);
`
