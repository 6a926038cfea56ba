/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  One Store persists everything the admin console owns: the sales ledger,
  tickets, withdrawals, sales, products and the audit trail. In production
  the same patterns apply to PostgreSQL with minor dialect differences.

INTERFACES IMPLEMENTED:
  generic.TransactionStore: Sales ledger (append-only)
  generic.AuditLog:         Audit trail (append-only)
  tickets.Store, payouts.Store, sales.Store, catalog.Store

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on transactions or audit_log
  - Corrections are new transactions with their own idempotency key

TIMESTAMPS:
  Stored as UTC text in a fixed-width layout so string comparison in SQL
  matches chronological order (range queries on paid_at rely on this).
  Decimals are stored as TEXT to avoid float rounding.

MIGRATIONS:
  Versioned SQL files under migrations/ are embedded and applied with
  golang-migrate on New(). Migrate() exposes the same step to the CLI.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection, since every new connection would see an empty database.
  InTx (tx.go) holds the write lock for a whole unit of work; methods called
  with its context run on the open transaction instead of taking the lock.

STATUS WRITES:
  TransitionTicket, TransitionWithdrawal and TransitionSale only update a
  row still in the status the caller validated against, and return
  generic.ErrStatusChanged when another writer got there first.

USAGE:
  store, err := sqlite.New("./data/admin.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := generic.NewSalesLedger(store)
  tickets := tickets.NewService(store, dispatcher)

SEE ALSO:
  - generic/store.go: Ledger and audit interfaces
  - generic/store/memory.go: In-memory implementation for tests and the CLI
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is RFC3339 with fixed nanoseconds, always written in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path and applies
// pending migrations. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() (uint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := newMigrate(s.db)
	if err != nil {
		return 0, false, err
	}
	// m.Close would close the shared *sql.DB.
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// migrateUp runs on the store's own connection so ":memory:" databases are
// migrated in place. The migrate instance is not closed for the same reason.
func migrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	db, release := s.writer(ctx)
	defer release()

	tables := []string{"transactions", "sales", "products", "withdrawals", "tickets", "audit_log"}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
