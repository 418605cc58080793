package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // postgres driver
)

// DefaultPostgresTable holds cache entries when no table is configured.
const DefaultPostgresTable = "cache_entries"

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// ErrInvalidTable is returned for table names that are not plain
// (optionally schema-qualified) lower-case identifiers.
var ErrInvalidTable = errors.New("cache: invalid postgres table name")

// PostgresStore is a Store backed by a single Postgres table.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// OpenPostgresStore opens a connection pool for dsn using the lib/pq driver.
func OpenPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewPostgresStore(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing *sql.DB. An empty table selects
// DefaultPostgresTable.
func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if table == "" {
		table = DefaultPostgresTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (s *PostgresStore) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(s.db)
}

// EnsureSchema creates the backing table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.qb().Select("value").
		From(s.table).
		Where(sq.Eq{"key": key}).
		QueryRowContext(ctx).
		Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %q: %w", key, err)
	}
	return v, true, nil
}

// Set upserts value under key.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.qb().Insert(s.table).
		Columns("key", "value", "updated_at").
		Values(key, value, sq.Expr("now()")).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Idempotent.
func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.qb().Delete(s.table).
		Where(sq.Eq{"key": key}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// RemoveIf deletes key only while it holds value.
func (s *PostgresStore) RemoveIf(ctx context.Context, key, value string) error {
	_, err := s.qb().Delete(s.table).
		Where(sq.Eq{"key": key, "value": value}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var (
	_ Store          = (*PostgresStore)(nil)
	_ CompareRemover = (*PostgresStore)(nil)
	_ Pinger         = (*PostgresStore)(nil)
)
