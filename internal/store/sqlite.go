package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"nithronos/secheaders/pkg/secheaders"
)

// SQLite keeps one row per environment; Put is a keyed upsert, so concurrent
// writers to one environment resolve as last-write-wins.
type SQLite struct {
	logger zerolog.Logger
	db     *sql.DB
	now    func() time.Time
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS security_headers_configs (
	environment TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	policy      TEXT NOT NULL,
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_by  TEXT NOT NULL DEFAULT '',
	updated_by  TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
)`

const sqliteUpsert = `INSERT INTO security_headers_configs
	(environment, id, policy, is_active, created_by, updated_by, created_at, updated_at)
	VALUES (?, ?, ?, 1, ?, ?, ?, ?)
	ON CONFLICT(environment) DO UPDATE SET
		policy     = excluded.policy,
		is_active  = 1,
		updated_by = excluded.updated_by,
		updated_at = excluded.updated_at`

const sqliteSelect = `SELECT id, policy, is_active, created_by, updated_by, created_at, updated_at
	FROM security_headers_configs WHERE environment = ? AND is_active = 1`

func NewSQLite(path string, logger zerolog.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; SQLite serializes them anyway
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{
		logger: logger.With().Str("component", "sqlite-store").Logger(),
		db:     db,
		now:    time.Now,
	}, nil
}

func (s *SQLite) Get(ctx context.Context, env secheaders.Environment) (secheaders.Config, error) {
	return scanConfig(s.db.QueryRowContext(ctx, sqliteSelect, string(env)), env)
}

func scanConfig(row *sql.Row, env secheaders.Environment) (secheaders.Config, error) {
	var (
		id, policy, createdBy, updatedBy string
		active                           bool
		createdAt, updatedAt             int64
	)
	err := row.Scan(&id, &policy, &active, &createdBy, &updatedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return secheaders.Config{}, secheaders.ErrNotFound
	}
	if err != nil {
		return secheaders.Config{}, fmt.Errorf("query %s config: %w", env, err)
	}
	var cfg secheaders.Config
	if err := json.Unmarshal([]byte(policy), &cfg); err != nil {
		return secheaders.Config{}, fmt.Errorf("decode %s config: %w", env, err)
	}
	ca := time.Unix(0, createdAt).UTC()
	ua := time.Unix(0, updatedAt).UTC()
	cfg.ID = id
	cfg.Environment = env
	cfg.IsActive = active
	cfg.CreatedBy = createdBy
	cfg.UpdatedBy = updatedBy
	cfg.CreatedAt = &ca
	cfg.UpdatedAt = &ua
	return cfg, nil
}

// Put upserts cfg and reads the row back in the same transaction. ID and
// creation audit columns survive an update.
func (s *SQLite) Put(ctx context.Context, cfg secheaders.Config) (secheaders.Config, error) {
	now := s.now().UTC()
	row := stamp(ctx, nil, cfg, now)

	policy, err := json.Marshal(policyOnly(row))
	if err != nil {
		return secheaders.Config{}, fmt.Errorf("encode %s config: %w", cfg.Environment, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return secheaders.Config{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, sqliteUpsert,
		string(row.Environment), row.ID, string(policy),
		row.CreatedBy, row.UpdatedBy, now.UnixNano(), now.UnixNano())
	if err != nil {
		return secheaders.Config{}, fmt.Errorf("upsert %s config: %w", cfg.Environment, err)
	}
	saved, err := scanConfig(tx.QueryRowContext(ctx, sqliteSelect, string(cfg.Environment)), cfg.Environment)
	if err != nil {
		return secheaders.Config{}, err
	}
	if err := tx.Commit(); err != nil {
		return secheaders.Config{}, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug().Str("environment", string(cfg.Environment)).Msg("config upserted")
	return saved, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// policyOnly strips the columns that live outside the policy document.
func policyOnly(cfg secheaders.Config) secheaders.Config {
	cfg.ID = ""
	cfg.CreatedBy = ""
	cfg.UpdatedBy = ""
	cfg.CreatedAt = nil
	cfg.UpdatedAt = nil
	return cfg
}
