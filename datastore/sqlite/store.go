/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/suparena/persistence/datastore"
	"github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/registry"
	"github.com/suparena/persistence/storagemodels"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const memoryDSN = ":memory:"

// Store implements datastore.DataStore on a SQLite database
type Store struct {
	db   *sql.DB
	desc storagemodels.StoreDescription
	log  zerolog.Logger
}

// Loader opens SQLite stores for the controller
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a Loader logging through logger
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{log: logger}
}

// Load implements datastore.Loader
func (l *Loader) Load(ctx context.Context, model *registry.Model, desc storagemodels.StoreDescription) (datastore.DataStore, error) {
	return Open(ctx, model, desc, l.log)
}

// Open opens or creates the store behind desc. In-memory descriptions open a
// private ":memory:" database; nothing is written to desc.Path.
//
// The database is configured with:
//   - a single connection (one writer, and one shared in-memory database)
//   - WAL mode and NORMAL synchronous mode for file stores
//   - 5-second busy timeout for lock contention
//
// When model is not nil the store is bound to the model name and
// configuration on first open and rejected with ErrIncompatibleModel if
// reopened with another model.
func Open(ctx context.Context, model *registry.Model, desc storagemodels.StoreDescription, logger zerolog.Logger) (*Store, error) {
	dsn := memoryDSN
	if !desc.InMemory {
		if desc.Path == "" {
			return nil, errors.NewValidationError("path", "database path is required")
		}
		if err := os.MkdirAll(filepath.Dir(desc.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn = desc.Path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A second connection would see a different :memory: database and
	// SQLite only supports one writer at a time anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(ctx, db, desc.InMemory); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if model != nil {
		if err := bindModel(ctx, db, model.Name(), desc.Configuration); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger.Debug().
		Str("path", desc.Path).
		Bool("in_memory", desc.InMemory).
		Str("configuration", desc.Configuration).
		Msg("sqlite store opened")

	return &Store{db: db, desc: desc, log: logger}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB, inMemory bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !inMemory {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applyMigrations brings the schema up to date. The migrate instance is not
// closed because that would close db.
func applyMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func bindModel(ctx context.Context, db *sql.DB, modelName, configuration string) error {
	expected := map[string]string{
		"model":         modelName,
		"configuration": configuration,
	}

	for key, want := range expected {
		var got string
		err := db.QueryRowContext(ctx, `SELECT value FROM store_metadata WHERE key = ?`, key).Scan(&got)
		switch {
		case stderrors.Is(err, sql.ErrNoRows):
			if _, err := db.ExecContext(ctx, `INSERT INTO store_metadata (key, value) VALUES (?, ?)`, key, want); err != nil {
				return fmt.Errorf("failed to record store %s: %w", key, err)
			}
		case err != nil:
			return fmt.Errorf("failed to read store %s: %w", key, err)
		case got != want:
			return fmt.Errorf("%w: store %s is %q, expected %q", errors.ErrIncompatibleModel, key, got, want)
		}
	}
	return nil
}

// Description returns the description the store was opened with
func (s *Store) Description() storagemodels.StoreDescription {
	return s.desc
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryer, id storagemodels.ObjectID) (storagemodels.Record, error) {
	var (
		data    string
		version int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT data, version FROM objects WHERE entity = ? AND object_key = ?`,
		id.Entity, id.Key,
	).Scan(&data, &version)
	if stderrors.Is(err, sql.ErrNoRows) {
		return storagemodels.Record{}, errors.NewNotFoundError(id.Entity, id.Key)
	}
	if err != nil {
		return storagemodels.Record{}, fmt.Errorf("failed to get %s: %w", id, err)
	}
	return storagemodels.Record{ID: id, Data: []byte(data), Version: version}, nil
}

// Get retrieves a committed record
func (s *Store) Get(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, error) {
	return getRecord(ctx, s.db, id)
}

// Scan returns every record of entity in insertion order
func (s *Store) Scan(ctx context.Context, entity string) ([]storagemodels.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_key, data, version FROM objects WHERE entity = ? ORDER BY rowid ASC`,
		entity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", entity, err)
	}
	defer rows.Close()

	var records []storagemodels.Record
	for rows.Next() {
		var (
			key     string
			data    string
			version int64
		)
		if err := rows.Scan(&key, &data, &version); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", entity, err)
		}
		records = append(records, storagemodels.Record{
			ID:      storagemodels.ObjectID{Entity: entity, Key: key},
			Data:    []byte(data),
			Version: version,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", entity, err)
	}
	return records, nil
}

// Begin starts a write transaction
func (s *Store) Begin(ctx context.Context) (datastore.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &storeTx{tx: tx, outbox: s.desc.Cloud != nil}, nil
}

type storeTx struct {
	tx     *sql.Tx
	outbox bool
}

func (t *storeTx) Get(ctx context.Context, id storagemodels.ObjectID) (storagemodels.Record, error) {
	return getRecord(ctx, t.tx, id)
}

func (t *storeTx) Put(ctx context.Context, record storagemodels.Record) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO objects (entity, object_key, data, version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity, object_key) DO UPDATE SET data = excluded.data, version = excluded.version
	`, record.ID.Entity, record.ID.Key, string(record.Data), record.Version)
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", record.ID, err)
	}
	if t.outbox {
		return t.enqueue(ctx, record.ID, storagemodels.OpPut, string(record.Data), record.Version)
	}
	return nil
}

func (t *storeTx) Delete(ctx context.Context, id storagemodels.ObjectID) error {
	var version int64
	err := t.tx.QueryRowContext(ctx,
		`DELETE FROM objects WHERE entity = ? AND object_key = ? RETURNING version`,
		id.Entity, id.Key,
	).Scan(&version)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if t.outbox {
		return t.enqueue(ctx, id, storagemodels.OpDelete, "", version)
	}
	return nil
}

func (t *storeTx) enqueue(ctx context.Context, id storagemodels.ObjectID, op storagemodels.ChangeOp, data string, version int64) error {
	var payload any
	if data != "" {
		payload = data
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cloud_outbox (entity, object_key, op, data, version, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.Entity, id.Key, string(op), payload, version, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record cloud change for %s: %w", id, err)
	}
	return nil
}

func (t *storeTx) Commit() error {
	return t.tx.Commit()
}

func (t *storeTx) Rollback() error {
	err := t.tx.Rollback()
	if stderrors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// PendingChanges returns up to limit outbox rows in commit order
func (s *Store) PendingChanges(ctx context.Context, limit int) ([]storagemodels.CloudChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, entity, object_key, op, data, version, changed_at
		FROM cloud_outbox
		ORDER BY seq ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read cloud outbox: %w", err)
	}
	defer rows.Close()

	var changes []storagemodels.CloudChange
	for rows.Next() {
		var (
			change    storagemodels.CloudChange
			op        string
			data      sql.NullString
			changedAt string
		)
		if err := rows.Scan(&change.Seq, &change.ID.Entity, &change.ID.Key, &op, &data, &change.Version, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to read cloud outbox row: %w", err)
		}
		change.Op = storagemodels.ChangeOp(op)
		if data.Valid {
			change.Data = []byte(data.String)
		}
		if change.ChangedAt, err = time.Parse(time.RFC3339Nano, changedAt); err != nil {
			return nil, fmt.Errorf("invalid outbox timestamp %q: %w", changedAt, err)
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

// Acknowledge removes pushed changes from the outbox
func (s *Store) Acknowledge(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seqs)), ",")
	args := make([]any, len(seqs))
	for i, seq := range seqs {
		args[i] = seq
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cloud_outbox WHERE seq IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to acknowledge cloud changes: %w", err)
	}
	return nil
}

var (
	_ datastore.DataStore = (*Store)(nil)
	_ datastore.Outbox    = (*Store)(nil)
)
