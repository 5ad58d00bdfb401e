package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// nolint:lll
type Config struct {
	Driver string `env:"DRIVER, default=sqlite3"`      // sqlite3 or postgres
	DSN    string `env:"DSN, default=monzobean.db"`    // File path for sqlite3, connection string for postgres
}

// Store is the relational persistence adapter. All writes are keyed inserts
// with a duplicate pre-check; the check and the insert are not atomic, which
// is acceptable for a single-process batch tool.
type Store struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *zap.Logger
}

// Open connects to the configured database and applies pending migrations.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateUp(db, cfg.Driver); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return New(db, cfg.Driver, logger), nil
}

// New wraps an existing connection without running migrations.
func New(db *sql.DB, driver string, logger *zap.Logger) *Store {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == "postgres" {
		sb = sb.PlaceholderFormat(sq.Dollar)
	}
	return &Store{db: db, sb: sb, logger: logger}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrateUp(db *sql.DB, driver string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var drv database.Driver
	switch driver {
	case "postgres":
		drv, err = migratepg.WithInstance(db, &migratepg.Config{})
	default:
		drv, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, drv)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
