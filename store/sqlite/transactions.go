package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/admin-console/generic"
)

// =============================================================================
// TRANSACTION STORE (generic.TransactionStore interface)
// =============================================================================

var _ generic.TransactionStore = (*Store)(nil)

const transactionColumns = `id, amount, paid_at, reference, idempotency_key, created_at`

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	db, release := s.writer(ctx)
	defer release()

	return appendTx(ctx, db, tx)
}

func appendTx(ctx context.Context, db dbtx, tx generic.Transaction) error {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.Amount.String(),
		formatTime(tx.PaidAt),
		nullString(tx.Reference),
		nullString(tx.IdempotencyKey),
		formatTime(createdAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	// Check for duplicate idempotency keys within the batch first
	idempotencyKeys := make(map[string]bool)
	for _, tx := range txs {
		if tx.IdempotencyKey != "" {
			if idempotencyKeys[tx.IdempotencyKey] {
				return generic.ErrDuplicateIdempotencyKey
			}
			idempotencyKeys[tx.IdempotencyKey] = true
		}
	}

	return s.InTx(ctx, func(ctx context.Context) error {
		for _, tx := range txs {
			if err := s.Append(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadRange returns transactions with from <= paid_at < to.
func (s *Store) LoadRange(ctx context.Context, from, to time.Time) ([]generic.Transaction, error) {
	db, release := s.reader(ctx)
	defer release()

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE paid_at >= ? AND paid_at < ?
		ORDER BY paid_at ASC, created_at ASC
	`
	return queryTransactions(ctx, db, query, formatTime(from), formatTime(to))
}

// All returns the whole ledger ordered by paid_at.
func (s *Store) All(ctx context.Context) ([]generic.Transaction, error) {
	db, release := s.reader(ctx)
	defer release()

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY paid_at ASC, created_at ASC
	`
	return queryTransactions(ctx, db, query)
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	db, release := s.reader(ctx)
	defer release()

	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

// RecentTransactions returns the latest transactions by creation time.
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]generic.Transaction, error) {
	db, release := s.reader(ctx)
	defer release()

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY created_at DESC
		LIMIT ?
	`
	return queryTransactions(ctx, db, query, limit)
}

func queryTransactions(ctx context.Context, db dbtx, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx             generic.Transaction
		amount         string
		paidAt         string
		reference      sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
	)
	if err := rows.Scan(&tx.ID, &amount, &paidAt, &reference, &idempotencyKey, &createdAt); err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}
	tx.Amount = generic.MustParseDecimal(amount)
	tx.PaidAt = parseTime(paidAt)
	tx.Reference = reference.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedAt = parseTime(createdAt)
	return tx, nil
}
