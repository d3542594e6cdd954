package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations
var migrations embed.FS

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database and configures its pool.
// SQLite is limited to a single connection so that in-memory databases are shared.
func Open(ctx context.Context, driver, dsn string, opts PoolOptions) (*sqlx.DB, error) {
	if _, err := builder(driver); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	return db, nil
}

// builder returns a statement builder using the placeholder style of driver.
func builder(driver string) (sq.StatementBuilderType, error) {
	switch driver {
	case DriverPostgres:
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar), nil
	case DriverSQLite:
		return sq.StatementBuilder.PlaceholderFormat(sq.Question), nil
	default:
		return sq.StatementBuilderType{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func mustBuilder(db *sqlx.DB) sq.StatementBuilderType {
	b, err := builder(db.DriverName())
	if err != nil {
		panic(err)
	}
	return b
}

// Migrator applies the embedded schema migrations for the connected driver.
type Migrator struct {
	db  *sqlx.DB
	sb  sq.StatementBuilderType
	log *zap.Logger
}

// NewMigrator creates a new Migrator.
func NewMigrator(db *sqlx.DB, log *zap.Logger) *Migrator {
	return &Migrator{
		db:  db,
		sb:  mustBuilder(db),
		log: log,
	}
}

// Up applies every migration newer than the recorded schema version, each in
// its own transaction. Files are named like "0002_create_activity_logs.sql".
func (m *Migrator) Up(ctx context.Context) error {
	source, err := fs.Sub(migrations, "migrations/"+m.db.DriverName())
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	list, err := fs.ReadDir(source, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})

	if _, err := m.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, f := range list {
		name := f.Name()
		v, err := scriptVersion(name)
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if v <= current {
			continue
		}

		script, err := fs.ReadFile(source, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		m.log.Debug("applying migration", zap.String("migration_name", name))
		if err := m.apply(ctx, v, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		applied++
	}

	if applied > 0 {
		m.log.Info("schema migrations applied", zap.Int("migration_count", applied))
	}
	return nil
}

// Version returns the highest applied migration version, or 0.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	query, args, err := m.sb.Select("COALESCE(MAX(version), 0)").From("schema_migrations").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build version query: %w", err)
	}

	var v int
	if err := m.db.GetContext(ctx, &v, query, args...); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (m *Migrator) apply(ctx context.Context, version int, script string) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, script); err != nil {
		tx.Rollback()
		return err
	}

	query, args, err := m.sb.Insert("schema_migrations").
		Columns("version", "applied_at").
		Values(version, time.Now().UTC()).
		ToSql()
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// scriptVersion extracts the leading version number from "0002_name.sql".
func scriptVersion(filename string) (int, error) {
	return strconv.Atoi(strings.Split(filename, "_")[0])
}
