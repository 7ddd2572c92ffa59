package db

import (
	"context"

	"github.com/google/uuid"
)

// UpsertCategory stores a product category, generating an id when missing.
func (d *DB) UpsertCategory(ctx context.Context, categoryID, name string) (string, error) {
	if categoryID == "" {
		categoryID = uuid.NewString()
	}
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO product_categories (category_id, name)
		VALUES (?, ?)
		ON CONFLICT(category_id) DO UPDATE SET name = excluded.name
	`, categoryID, name)
	if err != nil {
		return "", err
	}
	return categoryID, nil
}

// UpsertProduct stores a product, generating an id when missing. An empty
// category id stores NULL.
func (d *DB) UpsertProduct(ctx context.Context, productID, name, categoryID string) (string, error) {
	if productID == "" {
		productID = uuid.NewString()
	}
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO products (product_id, name, category_id)
		VALUES (?, ?, NULLIF(?, ''))
		ON CONFLICT(product_id) DO UPDATE SET
			name        = excluded.name,
			category_id = COALESCE(NULLIF(excluded.category_id, ''), products.category_id)
	`, productID, name, categoryID)
	if err != nil {
		return "", err
	}
	return productID, nil
}
