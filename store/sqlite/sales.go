package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/sales"
)

// =============================================================================
// SALE STORE (sales.Store interface)
// =============================================================================

var _ sales.Store = (*Store)(nil)

const saleColumns = `id, product_id, product_name, product_price, quantity, transaction_reference, status,
	first_name, last_name, submitted_by, payment_receipt, reviewed_by, created_at, updated_at`

// SaveSale inserts or updates a sale. The product snapshot is never rewritten.
func (s *Store) SaveSale(ctx context.Context, sale sales.Sale) error {
	db, release := s.writer(ctx)
	defer release()

	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			transaction_reference = excluded.transaction_reference,
			status = excluded.status,
			reviewed_by = excluded.reviewed_by,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		sale.ID, sale.Product.ID, sale.Product.Name, sale.Product.Price.String(),
		sale.Quantity,
		nullString(sale.TransactionReference),
		sale.Status,
		sale.FirstName, sale.LastName,
		sale.SubmittedBy,
		sale.PaymentReceipt,
		nullString(string(sale.ReviewedBy)),
		formatTime(sale.CreatedAt), formatTime(sale.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save sale: %w", err)
	}
	return nil
}

// TransitionSale records a review while the stored status is still from.
// Returns generic.ErrStatusChanged otherwise.
func (s *Store) TransitionSale(ctx context.Context, sale sales.Sale, from generic.Status) error {
	db, release := s.writer(ctx)
	defer release()

	res, err := db.ExecContext(ctx, `
		UPDATE sales SET status = ?, transaction_reference = ?, reviewed_by = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		sale.Status,
		nullString(sale.TransactionReference),
		nullString(string(sale.ReviewedBy)),
		formatTime(sale.UpdatedAt),
		sale.ID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update sale status: %w", err)
	}
	return expectOneRow(res)
}

// GetSale returns nil, nil when the sale does not exist.
func (s *Store) GetSale(ctx context.Context, id generic.RecordID) (*sales.Sale, error) {
	db, release := s.reader(ctx)
	defer release()

	list, err := querySales(ctx, db, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) ListSales(ctx context.Context) ([]sales.Sale, error) {
	db, release := s.reader(ctx)
	defer release()

	return querySales(ctx, db, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC`)
}

func querySales(ctx context.Context, db dbtx, query string, args ...any) ([]sales.Sale, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var out []sales.Sale
	for rows.Next() {
		var (
			sale                 sales.Sale
			price                string
			reference, reviewer  sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&sale.ID, &sale.Product.ID, &sale.Product.Name, &price, &sale.Quantity,
			&reference, &sale.Status, &sale.FirstName, &sale.LastName, &sale.SubmittedBy,
			&sale.PaymentReceipt, &reviewer, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sale.Product.Price = generic.MustParseDecimal(price)
		sale.TransactionReference = reference.String
		sale.ReviewedBy = generic.AdminID(reviewer.String)
		sale.CreatedAt = parseTime(createdAt)
		sale.UpdatedAt = parseTime(updatedAt)
		out = append(out, sale)
	}
	return out, rows.Err()
}
