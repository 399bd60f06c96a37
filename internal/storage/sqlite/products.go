package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/estorehq/estore/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

const productColumns = `id, name, COALESCE(user_id, ''), image, brand, category,
	description, rating, num_reviews, price, count_in_stock, created_at`

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	const q = `
		INSERT INTO products
			(id, name, user_id, image, brand, category, description,
			 rating, num_reviews, price, count_in_stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.Name, nullableID(p.UserID), p.Image, p.Brand, p.Category,
		p.Description, p.Rating, p.NumReviews, p.Price, p.CountInStock,
		formatTime(p.CreatedAt),
	)
	if isUniqueViolation(err) {
		return domain.E(domain.KindConflict, "a product named %q already exists", p.Name)
	}
	if isCheckViolation(err) {
		return domain.E(domain.KindInvalid, "product violates a value constraint")
	}
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, err)
	}
	return nil
}

func (r *ProductRepository) ByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *ProductRepository) ByName(ctx context.Context, name string) (*domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE name = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, name))
}

func (r *ProductRepository) All(ctx context.Context) ([]domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products ORDER BY created_at`
	return r.query(ctx, q)
}

// Search matches the query as a case-insensitive substring of the product
// name or description.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]domain.Product, error) {
	const q = `
		SELECT ` + productColumns + `
		FROM products
		WHERE name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE
		ORDER BY name`
	pattern := "%" + query + "%"
	return r.query(ctx, q, pattern, pattern)
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	const q = `
		UPDATE products
		SET name = ?, user_id = ?, image = ?, brand = ?, category = ?,
		    description = ?, rating = ?, num_reviews = ?, price = ?, count_in_stock = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q,
		p.Name, nullableID(p.UserID), p.Image, p.Brand, p.Category,
		p.Description, p.Rating, p.NumReviews, p.Price, p.CountInStock, p.ID,
	)
	if isUniqueViolation(err) {
		return domain.E(domain.KindConflict, "a product named %q already exists", p.Name)
	}
	if isCheckViolation(err) {
		return domain.E(domain.KindInvalid, "product violates a value constraint")
	}
	if err != nil {
		return fmt.Errorf("sqlite: update product %q: %w", p.ID, err)
	}
	return requireRow(res, "product", p.ID)
}

// Delete removes the product. Join rows in order_item_products null out
// rather than cascading, so order history keeps its quantities and prices.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete product %q: %w", id, err)
	}
	return requireRow(res, "product", id)
}

func (r *ProductRepository) query(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) scanOne(row rowScanner) (*domain.Product, error) {
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, domain.E(domain.KindNotFound, "product not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &p.UserID, &p.Image, &p.Brand, &p.Category,
		&p.Description, &p.Rating, &p.NumReviews, &p.Price, &p.CountInStock, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan product: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// nullableID stores empty string references as NULL.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
