package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/estorehq/estore/internal/domain"
)

type ReviewRepository struct {
	db *sql.DB
}

const reviewColumns = `id, product_id, user_id, text, rating, created_at`

// Create inserts the review and recomputes the product's denormalized
// rating and num_reviews in the same transaction.
func (r *ReviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		const q = `
			INSERT INTO reviews (` + reviewColumns + `)
			VALUES (?, ?, ?, ?, ?, ?)`

		_, err := tx.ExecContext(ctx, q,
			rev.ID, rev.ProductID, rev.UserID, rev.Text, rev.Rating,
			formatTime(rev.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlite: create review for product %q: %w", rev.ProductID, err)
		}
		return refreshProductRating(ctx, tx, rev.ProductID)
	})
}

func (r *ReviewRepository) ByID(ctx context.Context, id string) (*domain.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`
	rev, err := scanReview(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, domain.E(domain.KindNotFound, "review not found")
	}
	if err != nil {
		return nil, err
	}
	return rev, nil
}

func (r *ReviewRepository) ByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, productID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list reviews for product %q: %w", productID, err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rev)
	}
	return reviews, rows.Err()
}

func (r *ReviewRepository) Update(ctx context.Context, rev *domain.Review) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		const q = `UPDATE reviews SET text = ?, rating = ? WHERE id = ?`
		res, err := tx.ExecContext(ctx, q, rev.Text, rev.Rating, rev.ID)
		if err != nil {
			return fmt.Errorf("sqlite: update review %q: %w", rev.ID, err)
		}
		if err := requireRow(res, "review", rev.ID); err != nil {
			return err
		}
		return refreshProductRating(ctx, tx, rev.ProductID)
	})
}

func (r *ReviewRepository) Delete(ctx context.Context, rev *domain.Review) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, rev.ID)
		if err != nil {
			return fmt.Errorf("sqlite: delete review %q: %w", rev.ID, err)
		}
		if err := requireRow(res, "review", rev.ID); err != nil {
			return err
		}
		return refreshProductRating(ctx, tx, rev.ProductID)
	})
}

// refreshProductRating recomputes the product's rating and num_reviews from
// the reviews table.
func refreshProductRating(ctx context.Context, tx *sql.Tx, productID string) error {
	const q = `
		UPDATE products
		SET rating      = COALESCE((SELECT AVG(rating) FROM reviews WHERE product_id = ?), 0),
		    num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = ?)
		WHERE id = ?`

	if _, err := tx.ExecContext(ctx, q, productID, productID, productID); err != nil {
		return fmt.Errorf("sqlite: refresh rating for product %q: %w", productID, err)
	}
	return nil
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var rev domain.Review
	var createdAt string
	err := row.Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.Text, &rev.Rating, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan review: %w", err)
	}
	if rev.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &rev, nil
}
