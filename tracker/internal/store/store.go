// CLAUDE:SUMMARY SQLite persistence for fold state — namespace-scoped load and transactional full-replace save.
// Package store provides the SQLite persistence layer for the fold tracker.
//
// The durable contract is small: per namespace, the threshold map and the
// modification stamps must survive reload; the recency log is persisted too
// but may legitimately come back empty. Load never fails on missing data —
// an absent namespace yields empty maps.
package store

import (
	"context"
	"database/sql"

	"github.com/hazyhaar/repli/dbopen"
	"github.com/hazyhaar/repli/foldstate"
)

// Store wraps the fold-state database.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the fold-state SQLite database at path and
// applies the schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Load reads the persisted fold state for namespace. A namespace that has
// never been saved yields empty maps, not an error.
func (s *Store) Load(ctx context.Context, namespace string) (*foldstate.Persisted, error) {
	p := &foldstate.Persisted{
		Values:       make(map[string]int64),
		LastModified: make(map[string]int64),
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT group_key, threshold FROM fold_values WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var thr int64
		if err := rows.Scan(&key, &thr); err != nil {
			return nil, err
		}
		p.Values[key] = thr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stamps, err := s.DB.QueryContext(ctx,
		`SELECT group_key, modified_at FROM fold_stamps WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, err
	}
	defer stamps.Close()
	for stamps.Next() {
		var key string
		var at int64
		if err := stamps.Scan(&key, &at); err != nil {
			return nil, err
		}
		p.LastModified[key] = at
	}
	if err := stamps.Err(); err != nil {
		return nil, err
	}

	log, err := s.DB.QueryContext(ctx,
		`SELECT group_key, threshold FROM fold_log WHERE namespace = ? ORDER BY seq`, namespace)
	if err != nil {
		return nil, err
	}
	defer log.Close()
	for log.Next() {
		var e foldstate.LogEntry
		if err := log.Scan(&e.Key, &e.Threshold); err != nil {
			return nil, err
		}
		p.Log = append(p.Log, e)
	}
	return p, log.Err()
}

// Save replaces the persisted fold state for namespace in one transaction.
func (s *Store) Save(ctx context.Context, namespace string, p *foldstate.Persisted) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM fold_values WHERE namespace = ?`,
			`DELETE FROM fold_stamps WHERE namespace = ?`,
			`DELETE FROM fold_log WHERE namespace = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, namespace); err != nil {
				return err
			}
		}

		for key, thr := range p.Values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO fold_values (namespace, group_key, threshold) VALUES (?,?,?)`,
				namespace, key, thr); err != nil {
				return err
			}
		}
		for key, at := range p.LastModified {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO fold_stamps (namespace, group_key, modified_at) VALUES (?,?,?)`,
				namespace, key, at); err != nil {
				return err
			}
		}
		for _, e := range p.Log {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO fold_log (namespace, group_key, threshold) VALUES (?,?,?)`,
				namespace, e.Key, e.Threshold); err != nil {
				return err
			}
		}
		return nil
	})
}

// Namespaces lists every namespace with persisted state.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT DISTINCT namespace FROM fold_stamps ORDER BY namespace`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}
