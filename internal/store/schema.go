package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    cache_key  TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    saved_at   TEXT NOT NULL
);
`
