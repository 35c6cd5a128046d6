// Package store persists baseline reference tables in SQL and serves them
// through kb.Lookup. SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq) are
// supported; the driver is chosen from the DSN.
package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store is a SQL-backed baseline lookup.
type Store struct {
	db  *sqlx.DB
	log logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// ParseDSN returns the driver and data source for dsn. postgres:// and
// postgresql:// URLs select PostgreSQL; anything else is a SQLite path, with
// an optional sqlite:// prefix.
func ParseDSN(dsn string) (driverName, dataSource string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("store: empty DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	default:
		return DriverSQLite, dsn, nil
	}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	driverName, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driverName, err)
	}
	if driverName == DriverSQLite {
		// One writer at a time keeps SQLite from returning SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	return New(db, opts...), nil
}

// New wraps an open database handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, log: logging.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DriverName reports the database driver in use.
func (s *Store) DriverName() string { return s.db.DriverName() }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Flag is a boolean stored as 0/1 so both drivers compare it the same way.
type Flag bool

func (f Flag) Value() (driver.Value, error) {
	if f {
		return int64(1), nil
	}
	return int64(0), nil
}

func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*f = v != 0
	case bool:
		*f = Flag(v)
	case nil:
		*f = false
	default:
		return fmt.Errorf("store: cannot scan %T into Flag", src)
	}
	return nil
}
