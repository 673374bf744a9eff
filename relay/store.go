// CLAUDE:SUMMARY SQLite persistence for the relay: registered clients (bcrypt secrets) and per-site fold snapshots.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/repli/dbopen"
	"github.com/hazyhaar/repli/idgen"
)

// ErrBadCredentials is returned by Authenticate when the client is unknown
// or the secret does not match.
var ErrBadCredentials = errors.New("relay: bad credentials")

// Store persists registered clients and their fold snapshots.
type Store struct {
	DB  *sql.DB
	ids idgen.Generator
}

// Open opens (or creates) the relay database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("relay: open %s: %w", path, err)
	}
	return NewStore(db), nil
}

// NewStore wraps an already-open database. The schema must be applied.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, ids: idgen.Prefixed("cli_", idgen.UUIDv7())}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Client is a registered sync client.
type Client struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// RegisterClient creates a new client with the given name. When secret is
// empty a random one is generated. Returns the client ID and the plaintext
// secret; the secret is stored only as a bcrypt hash and cannot be
// recovered later.
func (s *Store) RegisterClient(ctx context.Context, name, secret string) (id, plaintext string, err error) {
	if secret == "" {
		secret = idgen.NanoID(32)()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("relay: hash secret: %w", err)
	}

	id = s.ids()
	_, err = dbopen.Exec(ctx, s.DB,
		`INSERT INTO clients (id, name, secret_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, name, string(hash), time.Now().Unix())
	if err != nil {
		return "", "", fmt.Errorf("relay: register client: %w", err)
	}
	return id, secret, nil
}

// Authenticate checks a client ID and secret against the stored bcrypt hash.
// Returns ErrBadCredentials for unknown clients and wrong secrets alike.
func (s *Store) Authenticate(ctx context.Context, id, secret string) (*Client, error) {
	var c Client
	var hash string
	var created int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, secret_hash, created_at FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &hash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("relay: lookup client: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) != nil {
		return nil, ErrBadCredentials
	}
	c.CreatedAt = time.Unix(created, 0)
	return &c, nil
}

// Clients lists all registered clients, oldest first.
func (s *Store) Clients(ctx context.Context) ([]Client, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, created_at FROM clients ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("relay: list clients: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		var created int64
		if err := rows.Scan(&c.ID, &c.Name, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(created, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteClient removes a client and its snapshots.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM clients WHERE id = ?`, id)
	return err
}

// LoadSnapshot returns the stored fold snapshot for (clientID, siteKey).
// ok is false when no snapshot has been pushed yet.
func (s *Store) LoadSnapshot(ctx context.Context, clientID, siteKey string) (payload []byte, ok bool, err error) {
	var raw string
	err = s.DB.QueryRowContext(ctx,
		`SELECT payload FROM fold_snapshots WHERE client_id = ? AND site_key = ?`,
		clientID, siteKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("relay: load snapshot: %w", err)
	}
	return []byte(raw), true, nil
}

// SaveSnapshot stores (or replaces) the fold snapshot for (clientID, siteKey).
func (s *Store) SaveSnapshot(ctx context.Context, clientID, siteKey string, payload []byte) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO fold_snapshots (client_id, site_key, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (client_id, site_key) DO UPDATE SET
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		clientID, siteKey, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("relay: save snapshot: %w", err)
	}
	return nil
}
