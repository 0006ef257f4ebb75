package tracker

// TableName is the table recording applied parts.
const TableName = "ddlguard_applied_parts"

const createSchemaSQL = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
    part         TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    checksum     TEXT NOT NULL,
    applied_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    duration_ms  INTEGER NOT NULL
)`
