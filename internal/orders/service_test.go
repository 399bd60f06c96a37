package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/catalog"
	"github.com/estorehq/estore/internal/domain"
	"github.com/estorehq/estore/internal/storage/sqlite"
)

type fixture struct {
	db      *sqlite.DB
	catalog *catalog.Service
	svc     *Service
	caller  *auth.Claims
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     "buyer",
		Email:        "buyer@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.Users().Create(context.Background(), user))

	cat := catalog.NewService(db.Products(), db.Reviews(), nil)
	return &fixture{
		db:      db,
		catalog: cat,
		svc:     NewService(cat, db.Orders()),
		caller:  &auth.Claims{UserID: user.ID, Username: user.Username},
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, price float64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:           uuid.NewString(),
		Name:         name,
		Price:        price,
		CountInStock: stock,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.db.Products().Create(context.Background(), p))
	return p
}

func validCart(items ...CartItem) Cart {
	return Cart{
		Items:         items,
		PaymentMethod: domain.PaymentVisa,
		TaxPrice:      2,
		Address:       Address{Country: "EG", City: "Cairo", PostalCode: "11511"},
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedProduct(t, "Widget", 10, 5)

	order, err := f.svc.PlaceOrder(ctx, f.caller, validCart(
		CartItem{ProductID: widget.ID, Quantity: 2},
	))
	require.NoError(t, err)

	// total = 2 x 10.00 - 2.00 tax; shipping defaults and stays out of the total
	assert.Equal(t, 18.0, order.TotalPrice)
	assert.Equal(t, float64(domain.DefaultShippingPrice), order.ShippingPrice)
	assert.False(t, order.IsPaid)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 10.0, order.Items[0].Price)
	assert.Equal(t, "Cairo", order.Address.City)

	p, err := f.catalog.ProductByID(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.CountInStock)

	// The persisted aggregate matches what was returned.
	stored, err := f.svc.Get(ctx, f.caller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalPrice, stored.TotalPrice)
	require.Len(t, stored.Items, 1)
}

func TestPlaceOrder_ExplicitShippingPrice(t *testing.T) {
	f := newFixture(t)
	widget := f.seedProduct(t, "Widget", 10, 5)

	cart := validCart(CartItem{ProductID: widget.ID, Quantity: 1})
	shipping := 25.0
	cart.ShippingPrice = &shipping

	order, err := f.svc.PlaceOrder(context.Background(), f.caller, cart)
	require.NoError(t, err)
	assert.Equal(t, 25.0, order.ShippingPrice)
	assert.Equal(t, 8.0, order.TotalPrice)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.caller, validCart())
	assert.True(t, domain.IsKind(err, domain.KindInvalid))
}

func TestPlaceOrder_UnknownPaymentMethod(t *testing.T) {
	f := newFixture(t)
	widget := f.seedProduct(t, "Widget", 10, 5)

	cart := validCart(CartItem{ProductID: widget.ID, Quantity: 1})
	cart.PaymentMethod = "barter"

	_, err := f.svc.PlaceOrder(context.Background(), f.caller, cart)
	assert.True(t, domain.IsKind(err, domain.KindInvalid))
}

func TestPlaceOrder_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	widget := f.seedProduct(t, "Widget", 10, 5)

	_, err := f.svc.PlaceOrder(context.Background(), nil, validCart(
		CartItem{ProductID: widget.ID, Quantity: 1},
	))
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestPlaceOrder_MissingProductHasZeroSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedProduct(t, "Widget", 10, 5)

	_, err := f.svc.PlaceOrder(ctx, f.caller, validCart(
		CartItem{ProductID: widget.ID, Quantity: 2},
		CartItem{ProductID: "ghost", Quantity: 1},
	))
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	p, err := f.catalog.ProductByID(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.CountInStock)

	mine, err := f.svc.Mine(ctx, f.caller)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedProduct(t, "Widget", 10, 2)

	_, err := f.svc.PlaceOrder(ctx, f.caller, validCart(
		CartItem{ProductID: widget.ID, Quantity: 3},
	))
	assert.True(t, domain.IsKind(err, domain.KindInsufficientStock))

	p, err := f.catalog.ProductByID(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CountInStock)
}

func TestPlaceOrder_NoDeduplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedProduct(t, "Widget", 10, 10)

	cart := validCart(CartItem{ProductID: widget.ID, Quantity: 2})

	first, err := f.svc.PlaceOrder(ctx, f.caller, cart)
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, f.caller, cart)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	p, err := f.catalog.ProductByID(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, p.CountInStock)
}

func TestPlaceOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedProduct(t, "Widget", 10, 5)

	cart := validCart(CartItem{ProductID: widget.ID, Quantity: 3})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(ctx, f.caller, cart)
		}(i)
	}
	wg.Wait()

	var successes, failures int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, domain.IsKind(err, domain.KindInsufficientStock) ||
				domain.IsKind(err, domain.KindConflict),
				"unexpected error: %v", err)
			failures++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	p, err := f.catalog.ProductByID(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CountInStock)
	assert.GreaterOrEqual(t, p.CountInStock, 0)
}

func TestOrderAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.seedProduct(t, "Widget", 10, 5)

	order, err := f.svc.PlaceOrder(ctx, f.caller, validCart(
		CartItem{ProductID: widget.ID, Quantity: 1},
	))
	require.NoError(t, err)

	stranger := &auth.Claims{UserID: uuid.NewString(), Username: "stranger"}
	_, err = f.svc.Get(ctx, stranger, order.ID)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	admin := &auth.Claims{UserID: uuid.NewString(), Username: "root", IsAdmin: true}
	got, err := f.svc.Get(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Only the owner may mark the order paid.
	_, err = f.svc.MarkPaid(ctx, stranger, order.ID)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	paid, err := f.svc.MarkPaid(ctx, f.caller, order.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)

	delivered, err := f.svc.MarkDelivered(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
}
