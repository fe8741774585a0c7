package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	storage, err := openPostgres(config.DSN(), logger)
	if err != nil {
		return nil, err
	}

	logger.Info("PostgreSQL storage ready",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))
	return storage, nil
}

// openPostgres accepts either a key=value DSN or a postgres:// URL.
func openPostgres(dsn string, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, scope, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE scope = $1 AND key = $2`,
		scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s/%s: %w", scope, key, err)
	}
	return value, nil
}

func (s *PostgresStorage) Put(ctx context.Context, scope, key string, value []byte) error {
	query := `
		INSERT INTO session_state (scope, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, scope, key, string(value), time.Now()); err != nil {
		return fmt.Errorf("error writing %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE scope = $1 AND key = $2`, scope, key); err != nil {
		return fmt.Errorf("error deleting %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
