package relay

// Schema defines the relay tables:
//   - clients: registered sync clients, secret stored as a bcrypt hash
//   - fold_snapshots: one JSON fold snapshot per (client, site) pair
//
// All statements are idempotent (CREATE IF NOT EXISTS). Apply with
// dbopen.WithSchema(Schema) or execute manually.
const Schema = `
CREATE TABLE IF NOT EXISTS clients (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    secret_hash TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fold_snapshots (
    client_id  TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    site_key   TEXT NOT NULL,
    payload    TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (client_id, site_key)
);
`
