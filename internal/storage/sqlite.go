package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps session state in a local SQLite file.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStorage{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Info("SQLite storage ready", zap.String("path", path))
	return store, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_state (
		scope      TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (scope, key)
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Get(ctx context.Context, scope, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE scope = ? AND key = ?`, scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", scope, key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteStorage) Put(ctx context.Context, scope, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_state (scope, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		scope, key, string(value))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE scope = ? AND key = ?`, scope, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
