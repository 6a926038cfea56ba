package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/warp/admin-console/catalog"
	"github.com/warp/admin-console/generic"
)

// =============================================================================
// PRODUCT STORE (catalog.Store interface)
// =============================================================================

var _ catalog.Store = (*Store)(nil)

const productColumns = `id, name, description, price, status, images_json, created_at, updated_at`

// SaveProduct inserts or updates a product.
func (s *Store) SaveProduct(ctx context.Context, p catalog.Product) error {
	db, release := s.writer(ctx)
	defer release()

	images := p.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			status = excluded.status,
			images_json = excluded.images_json,
			updated_at = excluded.updated_at
	`
	_, err = db.ExecContext(ctx, query,
		p.ID, p.Name, nullString(p.Description), p.Price.String(), p.Status,
		string(imagesJSON), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// GetProduct returns nil, nil when the product does not exist.
func (s *Store) GetProduct(ctx context.Context, id generic.RecordID) (*catalog.Product, error) {
	db, release := s.reader(ctx)
	defer release()

	list, err := queryProducts(ctx, db, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	db, release := s.reader(ctx)
	defer release()

	return queryProducts(ctx, db, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
}

// DeleteProduct removes a product. Sales keep their product snapshot.
func (s *Store) DeleteProduct(ctx context.Context, id generic.RecordID) error {
	db, release := s.writer(ctx)
	defer release()

	_, err := db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	return err
}

func queryProducts(ctx context.Context, db dbtx, query string, args ...any) ([]catalog.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var (
			p                    catalog.Product
			description          sql.NullString
			price, images        string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &description, &price, &p.Status, &images,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Description = description.String
		p.Price = generic.MustParseDecimal(price)
		if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
			return nil, fmt.Errorf("failed to decode product images: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}
