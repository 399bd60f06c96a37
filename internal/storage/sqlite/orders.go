package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/estorehq/estore/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

// CreateAggregate persists the order, its shipping address, its items and
// their product join rows, and decrements stock for every line — all inside
// one transaction. On any failure nothing is left behind.
//
// The stock decrement is conditional: a row only updates when enough stock
// remains, so two concurrent orders for the same product serialize on the
// database and the loser gets InsufficientStock instead of driving the
// count negative.
func (r *OrderRepository) CreateAggregate(ctx context.Context, o *domain.Order) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, item := range o.Items {
			if err := decrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		const insertOrder = `
			INSERT INTO orders
				(id, user_id, payment_method, is_paid, paid_at, is_delivered,
				 delivered_at, shipping_price, tax_price, total_price, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, insertOrder,
			o.ID, o.UserID, string(o.PaymentMethod),
			boolToInt(o.IsPaid), nullableTime(o.PaidAt),
			boolToInt(o.IsDelivered), nullableTime(o.DeliveredAt),
			o.ShippingPrice, o.TaxPrice, o.TotalPrice, formatTime(o.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert order %q: %w", o.ID, err)
		}

		const insertAddress = `
			INSERT INTO shipping_addresses (id, order_id, country, city, postal_code)
			VALUES (?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, insertAddress,
			o.Address.ID, o.ID, o.Address.Country, o.Address.City, o.Address.PostalCode,
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert shipping address for order %q: %w", o.ID, err)
		}

		const insertItem = `
			INSERT INTO order_items (id, order_id, quantity, price)
			VALUES (?, ?, ?, ?)`
		const insertJoin = `
			INSERT INTO order_item_products (order_item_id, product_id)
			VALUES (?, ?)`
		for _, item := range o.Items {
			if _, err := tx.ExecContext(ctx, insertItem, item.ID, o.ID, item.Quantity, item.Price); err != nil {
				return fmt.Errorf("sqlite: insert order item for order %q: %w", o.ID, err)
			}
			if _, err := tx.ExecContext(ctx, insertJoin, item.ID, item.ProductID); err != nil {
				return fmt.Errorf("sqlite: link order item to product %q: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

// decrementStock applies the conditional atomic decrement. Zero rows
// affected means either the product vanished or stock is short; the two
// cases are told apart with a follow-up read inside the same transaction.
func decrementStock(ctx context.Context, tx *sql.Tx, productID string, qty int) error {
	const q = `
		UPDATE products
		SET count_in_stock = count_in_stock - ?
		WHERE id = ? AND count_in_stock >= ?`

	res, err := tx.ExecContext(ctx, q, qty, productID, qty)
	if err != nil {
		return fmt.Errorf("sqlite: decrement stock for product %q: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var stock int
	err = tx.QueryRowContext(ctx,
		`SELECT count_in_stock FROM products WHERE id = ?`, productID).Scan(&stock)
	if err == sql.ErrNoRows {
		return domain.E(domain.KindNotFound, "product %s not found", productID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: read stock for product %q: %w", productID, err)
	}
	return domain.E(domain.KindInsufficientStock,
		"product %s has %d in stock, %d requested", productID, stock, qty)
}

const orderColumns = `id, user_id, payment_method, is_paid, paid_at,
	is_delivered, delivered_at, shipping_price, tax_price, total_price, created_at`

// ByID returns the fully hydrated aggregate: order, address, items.
func (r *OrderRepository) ByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, domain.E(domain.KindNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) ByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at`
	return r.queryHydrated(ctx, q, userID)
}

func (r *OrderRepository) All(ctx context.Context) ([]domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at`
	return r.queryHydrated(ctx, q)
}

// MarkPaid sets the paid flag and timestamp. Marking twice is a conflict.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	return r.markFlag(ctx, id, at, "is_paid", "paid_at", "paid")
}

// MarkDelivered sets the delivered flag and timestamp. Marking twice is a conflict.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.markFlag(ctx, id, at, "is_delivered", "delivered_at", "delivered")
}

func (r *OrderRepository) markFlag(ctx context.Context, id string, at time.Time, flagCol, timeCol, verb string) error {
	q := fmt.Sprintf(`UPDATE orders SET %s = 1, %s = ? WHERE id = ? AND %s = 0`,
		flagCol, timeCol, flagCol)
	res, err := r.db.ExecContext(ctx, q, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("sqlite: mark order %q %s: %w", id, verb, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return domain.E(domain.KindNotFound, "order %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: check order %q: %w", id, err)
	}
	return domain.E(domain.KindConflict, "order %s is already %s", id, verb)
}

func (r *OrderRepository) queryHydrated(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.hydrate(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) hydrate(ctx context.Context, o *domain.Order) error {
	const addrQ = `
		SELECT id, order_id, country, city, postal_code
		FROM shipping_addresses WHERE order_id = ?`
	err := r.db.QueryRowContext(ctx, addrQ, o.ID).Scan(
		&o.Address.ID, &o.Address.OrderID, &o.Address.Country,
		&o.Address.City, &o.Address.PostalCode,
	)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: load address for order %q: %w", o.ID, err)
	}

	const itemsQ = `
		SELECT i.id, i.order_id, COALESCE(j.product_id, ''), i.quantity, i.price
		FROM order_items i
		LEFT JOIN order_item_products j ON j.order_item_id = i.id
		WHERE i.order_id = ?
		ORDER BY i.id`
	rows, err := r.db.QueryContext(ctx, itemsQ, o.ID)
	if err != nil {
		return fmt.Errorf("sqlite: load items for order %q: %w", o.ID, err)
	}
	defer rows.Close()

	o.Items = o.Items[:0]
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("sqlite: scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var paymentMethod string
	var isPaid, isDelivered int
	var paidAt, deliveredAt sql.NullString
	var createdAt string

	err := row.Scan(&o.ID, &o.UserID, &paymentMethod, &isPaid, &paidAt,
		&isDelivered, &deliveredAt, &o.ShippingPrice, &o.TaxPrice,
		&o.TotalPrice, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan order: %w", err)
	}

	o.PaymentMethod = domain.PaymentMethod(paymentMethod)
	o.IsPaid = isPaid != 0
	o.IsDelivered = isDelivered != 0
	if o.PaidAt, err = scanNullableTime(paidAt); err != nil {
		return nil, err
	}
	if o.DeliveredAt, err = scanNullableTime(deliveredAt); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &o, nil
}
