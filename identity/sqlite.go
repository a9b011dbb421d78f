package identity

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("identity: schema version mismatch")

// SQLiteDirectory is a Directory persisted in a SQLite database.
type SQLiteDirectory struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens or creates the directory database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteDirectory, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("identity: database path is required")
	}
	clean := filepath.Clean(path)

	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "synchronous(NORMAL)")
	db, err := sql.Open("sqlite", "file:"+clean+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	d := &SQLiteDirectory{db: db, path: clean, now: time.Now}
	if err := d.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Path returns the database file path.
func (d *SQLiteDirectory) Path() string {
	return d.path
}

func (d *SQLiteDirectory) initSchema(ctx context.Context) error {
	var exists int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return d.createSchema(ctx)
	}

	var version int
	if err := d.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (d *SQLiteDirectory) createSchema(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (d *SQLiteDirectory) Lookup(ctx context.Context, address string) (Player, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return Player{}, err
	}
	row := d.db.QueryRowContext(ctx,
		`SELECT uuid, name FROM player_addresses
		 WHERE address = ?
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		addr,
	)
	var rawID, name string
	if err := row.Scan(&rawID, &name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Player{}, ErrNotFound
		}
		return Player{}, fmt.Errorf("lookup %s: %w", addr, err)
	}
	return ParsePlayer(rawID, name)
}

// Record upserts the player's address. updated_at is kept strictly
// increasing across rows so Lookup never ties.
func (d *SQLiteDirectory) Record(ctx context.Context, player Player, address string) error {
	if player.ID == uuid.Nil {
		return ErrInvalidPlayer
	}
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO player_addresses (uuid, name, address, updated_at)
		 VALUES (?, ?, ?, MAX(?, COALESCE((SELECT MAX(updated_at) + 1 FROM player_addresses), 0)))
		 ON CONFLICT(uuid) DO UPDATE SET
		    name = excluded.name,
		    address = excluded.address,
		    updated_at = excluded.updated_at`,
		player.ID.String(), player.Name, addr, d.now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", player, err)
	}
	return nil
}

func (d *SQLiteDirectory) Address(ctx context.Context, id uuid.UUID) (string, error) {
	var addr string
	err := d.db.QueryRowContext(ctx,
		"SELECT address FROM player_addresses WHERE uuid = ?", id.String(),
	).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("address of %s: %w", id, err)
	}
	return addr, nil
}

func (d *SQLiteDirectory) Clear(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM player_addresses"); err != nil {
		return fmt.Errorf("clear addresses: %w", err)
	}
	return nil
}

func (d *SQLiteDirectory) ClearPlayer(ctx context.Context, id uuid.UUID) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM player_addresses WHERE uuid = ?", id.String()); err != nil {
		return fmt.Errorf("clear %s: %w", id, err)
	}
	return nil
}

// List returns every entry, most recently updated first.
func (d *SQLiteDirectory) List(ctx context.Context) ([]Entry, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT uuid, name, address, updated_at FROM player_addresses ORDER BY updated_at DESC, uuid")
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			rawID, name, addr string
			updated           int64
		)
		if err := rows.Scan(&rawID, &name, &addr, &updated); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		player, err := ParsePlayer(rawID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Player: player, Address: addr, UpdatedAt: time.Unix(0, updated).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return out, nil
}

func (d *SQLiteDirectory) Ping(ctx context.Context) error {
	if d == nil || d.db == nil {
		return ErrClosed
	}
	return d.db.PingContext(ctx)
}

func (d *SQLiteDirectory) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

var _ Directory = (*SQLiteDirectory)(nil)
