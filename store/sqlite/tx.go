package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/admin-console/generic"
)

// =============================================================================
// UNIT OF WORK (generic.Transactor interface)
// =============================================================================

var _ generic.Transactor = (*Store)(nil)

// txKey scopes a context-carried transaction to the store that opened it.
type txKey struct{ s *Store }

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InTx runs fn inside one SQLite transaction. Store calls made with the
// context handed to fn join it, and it commits only when fn returns nil.
// A nested InTx reuses the outer transaction.
//
// The store's write lock is held until commit, so a mutation that read a
// record, validated it and writes it back is serialised against every
// other writer in the process.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.txFrom(ctx); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{s}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) txFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{s}).(*sql.Tx)
	return tx, ok
}

// writer returns the transaction carried by ctx, or the pool under the write
// lock. release must be called once the statement is done.
func (s *Store) writer(ctx context.Context) (dbtx, func()) {
	if tx, ok := s.txFrom(ctx); ok {
		return tx, func() {}
	}
	s.mu.Lock()
	return s.db, s.mu.Unlock
}

func (s *Store) reader(ctx context.Context) (dbtx, func()) {
	if tx, ok := s.txFrom(ctx); ok {
		return tx, func() {}
	}
	s.mu.RLock()
	return s.db, s.mu.RUnlock
}

// expectOneRow turns a conditional status write that matched nothing into
// generic.ErrStatusChanged.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return generic.ErrStatusChanged
	}
	return nil
}
