package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Timestamps are stored as unix milliseconds and latencies as milliseconds so
// the same statements run on SQLite and PostgreSQL.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    request_time BIGINT NOT NULL,
    recorded_time BIGINT NOT NULL,
    operation TEXT NOT NULL,
    model TEXT NOT NULL,
    model_group TEXT NOT NULL,
    stream BOOLEAN NOT NULL,
    key_alias TEXT NOT NULL,
    deployment TEXT NOT NULL,
    status INTEGER NOT NULL,
    attempts TEXT NOT NULL,
    upstream_attempts INTEGER NOT NULL,
    latency_ms BIGINT NOT NULL,
    error TEXT,
    error_type TEXT
)`,
	`CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_request_time ON evidence(request_time)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_request_id ON evidence(request_id)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_model ON evidence(model)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_key_alias ON evidence(key_alias)`,
}

const evidenceColumns = `id, request_id, request_time, recorded_time, operation, model, model_group,
    stream, key_alias, deployment, status, attempts, upstream_attempts, latency_ms, error, error_type`

const getSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`
