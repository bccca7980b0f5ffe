package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Credentials is a SQLite credential database. It satisfies
// auth.CredentialStore. It is kept apart from the cache, which may be
// deleted at any time.
type Credentials struct {
	db *sql.DB
}

// OpenCredentials opens or creates the credential database at dbPath.
func OpenCredentials(dbPath string) (*Credentials, error) {
	db, err := openDB(dbPath, credentialsSchemaSQL)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	return &Credentials{db: db}, nil
}

// Close closes the credential database.
func (c *Credentials) Close() error {
	return c.db.Close()
}

// Lookup returns the stored hash for username.
func (c *Credentials) Lookup(ctx context.Context, username string) (string, bool, error) {
	var hash string
	err := c.db.QueryRowContext(ctx,
		"SELECT password_hash FROM credentials WHERE username = ?", username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Store inserts or replaces the hash for username.
func (c *Credentials) Store(ctx context.Context, username, hash string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO credentials (username, password_hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash,
			updated_at = excluded.updated_at`,
		username, hash, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Usernames lists registered users in name order.
func (c *Credentials) Usernames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT username FROM credentials ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
