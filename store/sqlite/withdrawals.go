package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/payouts"
)

// =============================================================================
// WITHDRAWAL STORE (payouts.Store interface)
// =============================================================================

var _ payouts.Store = (*Store)(nil)

const withdrawalColumns = `id, user_id, amount, account_name, account_number, bank_name, status,
	transaction_reference, cancellation_reason, processed_by, created_at, updated_at`

// SaveWithdrawal inserts or updates a withdrawal.
func (s *Store) SaveWithdrawal(ctx context.Context, w payouts.Withdrawal) error {
	db, release := s.writer(ctx)
	defer release()

	query := `
		INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			transaction_reference = excluded.transaction_reference,
			cancellation_reason = excluded.cancellation_reason,
			processed_by = excluded.processed_by,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		w.ID, w.UserID, w.Amount.String(),
		w.Bank.AccountName, w.Bank.AccountNumber, w.Bank.BankName,
		w.Status,
		nullString(w.TransactionReference),
		nullString(w.CancellationReason),
		nullString(string(w.ProcessedBy)),
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save withdrawal: %w", err)
	}
	return nil
}

// TransitionWithdrawal writes w's processing fields while the stored status
// is still from. Returns generic.ErrStatusChanged otherwise.
func (s *Store) TransitionWithdrawal(ctx context.Context, w payouts.Withdrawal, from generic.Status) error {
	db, release := s.writer(ctx)
	defer release()

	res, err := db.ExecContext(ctx, `
		UPDATE withdrawals SET
			status = ?,
			transaction_reference = ?,
			cancellation_reason = ?,
			processed_by = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`,
		w.Status,
		nullString(w.TransactionReference),
		nullString(w.CancellationReason),
		nullString(string(w.ProcessedBy)),
		formatTime(w.UpdatedAt),
		w.ID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	return expectOneRow(res)
}

// GetWithdrawal returns nil, nil when the withdrawal does not exist.
func (s *Store) GetWithdrawal(ctx context.Context, id generic.RecordID) (*payouts.Withdrawal, error) {
	db, release := s.reader(ctx)
	defer release()

	list, err := queryWithdrawals(ctx, db, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) ListWithdrawals(ctx context.Context) ([]payouts.Withdrawal, error) {
	db, release := s.reader(ctx)
	defer release()

	return queryWithdrawals(ctx, db, `SELECT `+withdrawalColumns+` FROM withdrawals ORDER BY created_at DESC`)
}

func queryWithdrawals(ctx context.Context, db dbtx, query string, args ...any) ([]payouts.Withdrawal, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	var out []payouts.Withdrawal
	for rows.Next() {
		var (
			w                        payouts.Withdrawal
			amount                   string
			reference, reason, admin sql.NullString
			createdAt, updatedAt     string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &amount,
			&w.Bank.AccountName, &w.Bank.AccountNumber, &w.Bank.BankName,
			&w.Status, &reference, &reason, &admin, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		w.Amount = generic.MustParseDecimal(amount)
		w.TransactionReference = reference.String
		w.CancellationReason = reason.String
		w.ProcessedBy = generic.AdminID(admin.String)
		w.CreatedAt = parseTime(createdAt)
		w.UpdatedAt = parseTime(updatedAt)
		out = append(out, w)
	}
	return out, rows.Err()
}
