package store

// Schema contains the complete DDL for the fold-state tables.
const Schema = `
-- Fold thresholds per namespace: one row per tracked day-group key.
CREATE TABLE IF NOT EXISTS fold_values (
    namespace TEXT NOT NULL,
    group_key TEXT NOT NULL,
    threshold INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (namespace, group_key)
);

-- Modification stamps for conflict resolution. Kept separate from
-- fold_values because evicted keys keep their stamp after the threshold
-- row is gone.
CREATE TABLE IF NOT EXISTS fold_stamps (
    namespace   TEXT NOT NULL,
    group_key   TEXT NOT NULL,
    modified_at INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (namespace, group_key)
);

-- Recency log in write order. Not required for correctness (an empty log
-- on reload only changes compaction pacing) but persisted to keep eviction
-- behaviour identical across restarts.
CREATE TABLE IF NOT EXISTS fold_log (
    seq       INTEGER PRIMARY KEY AUTOINCREMENT,
    namespace TEXT NOT NULL,
    group_key TEXT NOT NULL,
    threshold INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_fold_log_ns ON fold_log(namespace, seq);
`
