// Package orders implements order placement and the order lifecycle
// endpoints built on top of it.
//
// Placement is a single-pass, single-attempt operation: it validates the
// cart, resolves every product before any write, then persists the whole
// aggregate and the stock decrements in one database transaction. It never
// retries or queues; it fully commits or fully fails within one call. Two
// identical calls deliberately create two distinct orders — there is no
// idempotency deduplication at this layer.
package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/domain"
)

// Catalog is the read/invalidate port onto the product catalog.
type Catalog interface {
	ProductByID(ctx context.Context, id string) (*domain.Product, error)
	InvalidateProduct(ctx context.Context, id string)
}

// Store is the persistence port for order aggregates. CreateAggregate must
// execute as one all-or-nothing transaction, including the stock decrement
// for every line.
type Store interface {
	CreateAggregate(ctx context.Context, o *domain.Order) error
	ByID(ctx context.Context, id string) (*domain.Order, error)
	ByUser(ctx context.Context, userID string) ([]domain.Order, error)
	All(ctx context.Context) ([]domain.Order, error)
	MarkPaid(ctx context.Context, id string, at time.Time) error
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

// CartItem names a product by ID and a requested quantity. The unit price is
// resolved from the catalog, never taken from the client.
type CartItem struct {
	ProductID string
	Quantity  int
}

// Address is the shipping destination for a cart.
type Address struct {
	Country    string
	City       string
	PostalCode string
}

// Cart is the caller-supplied order request, not yet persisted.
// ShippingPrice is optional and defaults to domain.DefaultShippingPrice.
type Cart struct {
	Items         []CartItem
	PaymentMethod domain.PaymentMethod
	TaxPrice      float64
	ShippingPrice *float64
	Address       Address
}

type Service struct {
	catalog Catalog
	store   Store
}

func NewService(catalog Catalog, store Store) *Service {
	return &Service{catalog: catalog, store: store}
}

// PlaceOrder validates the cart, resolves products, and persists the order
// aggregate while decrementing stock, all atomically.
//
// The stored total is the sum of quantity x unit price over the lines minus
// the tax price; the shipping price is recorded on the order but not added
// to the total.
func (s *Service) PlaceOrder(ctx context.Context, caller *auth.Claims, cart Cart) (*domain.Order, error) {
	if caller == nil {
		return nil, domain.E(domain.KindUnauthorized, "authentication required")
	}
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	// Resolve every product before any write so a missing product aborts
	// the call with zero side effects. The resolved rows also supply the
	// unit prices and give an early stock check; the transaction below
	// re-checks stock atomically, so a concurrent order cannot sneak a
	// decrement in between.
	products := make([]*domain.Product, len(cart.Items))
	for i, item := range cart.Items {
		p, err := s.catalog.ProductByID(ctx, item.ProductID)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, domain.E(domain.KindNotFound, "product %s not found", item.ProductID)
			}
			return nil, err
		}
		if p.CountInStock < item.Quantity {
			return nil, domain.E(domain.KindInsufficientStock,
				"product %s has %d in stock, %d requested", p.Name, p.CountInStock, item.Quantity)
		}
		products[i] = p
	}

	shippingPrice := float64(domain.DefaultShippingPrice)
	if cart.ShippingPrice != nil {
		shippingPrice = *cart.ShippingPrice
	}

	orderID := uuid.NewString()
	order := &domain.Order{
		ID:            orderID,
		UserID:        caller.UserID,
		PaymentMethod: cart.PaymentMethod,
		ShippingPrice: shippingPrice,
		TaxPrice:      cart.TaxPrice,
		Address: domain.ShippingAddress{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			Country:    cart.Address.Country,
			City:       cart.Address.City,
			PostalCode: cart.Address.PostalCode,
		},
		CreatedAt: time.Now().UTC(),
	}

	var subtotal float64
	for i, item := range cart.Items {
		line := domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     products[i].Price,
		}
		subtotal += line.Subtotal()
		order.Items = append(order.Items, line)
	}
	order.TotalPrice = subtotal - cart.TaxPrice

	if err := s.store.CreateAggregate(ctx, order); err != nil {
		return nil, err
	}

	// Cached product copies now carry stale stock counts.
	for _, item := range cart.Items {
		s.catalog.InvalidateProduct(ctx, item.ProductID)
	}

	slog.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"user_id", order.UserID,
		"items", len(order.Items),
		"total", order.TotalPrice,
	)
	return order, nil
}

func validateCart(cart Cart) error {
	if len(cart.Items) == 0 {
		return domain.E(domain.KindInvalid, "no order items provided")
	}
	for _, item := range cart.Items {
		if item.ProductID == "" {
			return domain.E(domain.KindInvalid, "order item is missing a product reference")
		}
		if item.Quantity < 1 {
			return domain.E(domain.KindInvalid, "order item quantity must be at least 1")
		}
	}
	if !domain.ValidPaymentMethod(cart.PaymentMethod) {
		return domain.E(domain.KindInvalid, "unknown payment method %q", cart.PaymentMethod)
	}
	if cart.TaxPrice < 0 {
		return domain.E(domain.KindInvalid, "tax price must not be negative")
	}
	if cart.ShippingPrice != nil && *cart.ShippingPrice < 0 {
		return domain.E(domain.KindInvalid, "shipping price must not be negative")
	}
	if cart.Address.Country == "" || cart.Address.City == "" || cart.Address.PostalCode == "" {
		return domain.E(domain.KindInvalid, "shipping address requires country, city, and postal code")
	}
	return nil
}

// Get returns an order if the caller owns it or is an admin.
func (s *Service) Get(ctx context.Context, caller *auth.Claims, id string) (*domain.Order, error) {
	if caller == nil {
		return nil, domain.E(domain.KindUnauthorized, "authentication required")
	}
	order, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewOrder(caller, order) {
		return nil, domain.E(domain.KindForbidden, "not authorized to view this order")
	}
	return order, nil
}

// Mine lists the caller's own orders.
func (s *Service) Mine(ctx context.Context, caller *auth.Claims) ([]domain.Order, error) {
	if caller == nil {
		return nil, domain.E(domain.KindUnauthorized, "authentication required")
	}
	return s.store.ByUser(ctx, caller.UserID)
}

// List lists every order; the router restricts it to admins.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.store.All(ctx)
}

// MarkPaid records payment. Only the order's owner may do so.
func (s *Service) MarkPaid(ctx context.Context, caller *auth.Claims, id string) (*domain.Order, error) {
	if caller == nil {
		return nil, domain.E(domain.KindUnauthorized, "authentication required")
	}
	order, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.UserID {
		return nil, domain.E(domain.KindForbidden, "only the order owner may mark it paid")
	}
	if err := s.store.MarkPaid(ctx, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.store.ByID(ctx, id)
}

// MarkDelivered records delivery; the router restricts it to admins.
func (s *Service) MarkDelivered(ctx context.Context, id string) (*domain.Order, error) {
	if err := s.store.MarkDelivered(ctx, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.store.ByID(ctx, id)
}

// canViewOrder is the authorization predicate for order reads: the owner or
// a privileged caller.
func canViewOrder(caller *auth.Claims, order *domain.Order) bool {
	return caller != nil && (caller.IsAdmin || caller.UserID == order.UserID)
}
