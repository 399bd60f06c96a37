package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estorehq/estore/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, username string, admin bool) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsAdmin:      admin,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.Users().Create(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, db *DB, name string, price float64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:           uuid.NewString(),
		Name:         name,
		Image:        "/placeholder.png",
		Price:        price,
		CountInStock: stock,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.Products().Create(context.Background(), p))
	return p
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u := seedUser(t, db, "alice", false)

	got, err := db.Users().ByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = db.Users().ByID(ctx, "missing")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, "alice", false)

	dup := &domain.User{
		ID:           uuid.NewString(),
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	err := db.Users().Create(context.Background(), dup)
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestProductRepository_Search(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedProduct(t, db, "Blue Widget", 10, 5)
	seedProduct(t, db, "Red Gadget", 20, 5)

	results, err := db.Products().Search(ctx, "widget")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Blue Widget", results[0].Name)

	results, err = db.Products().Search(ctx, "nothing-matches")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProductRepository_UniqueName(t *testing.T) {
	db := openTestDB(t)
	seedProduct(t, db, "Widget", 10, 5)

	dup := &domain.Product{
		ID:        uuid.NewString(),
		Name:      "Widget",
		CreatedAt: time.Now().UTC(),
	}
	err := db.Products().Create(context.Background(), dup)
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestReviewRepository_RefreshesProductRating(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice", false)
	product := seedProduct(t, db, "Widget", 10, 5)

	for _, rating := range []float64{4, 2} {
		rev := &domain.Review{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			UserID:    user.ID,
			Rating:    rating,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, db.Reviews().Create(ctx, rev))
	}

	got, err := db.Products().ByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumReviews)
	assert.InDelta(t, 3.0, got.Rating, 1e-9)

	reviews, err := db.Reviews().ByProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.NoError(t, db.Reviews().Delete(ctx, &reviews[0]))

	got, err = db.Products().ByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumReviews)
}

func buildOrder(user *domain.User, items ...domain.OrderItem) *domain.Order {
	orderID := uuid.NewString()
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].OrderID = orderID
	}
	var subtotal float64
	for _, it := range items {
		subtotal += it.Subtotal()
	}
	return &domain.Order{
		ID:            orderID,
		UserID:        user.ID,
		PaymentMethod: domain.PaymentVisa,
		ShippingPrice: domain.DefaultShippingPrice,
		TaxPrice:      2,
		TotalPrice:    subtotal - 2,
		Address: domain.ShippingAddress{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			Country:    "EG",
			City:       "Cairo",
			PostalCode: "11511",
		},
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
}

func TestOrderRepository_CreateAggregate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice", false)
	product := seedProduct(t, db, "Widget", 10, 5)

	order := buildOrder(user, domain.OrderItem{ProductID: product.ID, Quantity: 2, Price: 10})
	require.NoError(t, db.Orders().CreateAggregate(ctx, order))

	got, err := db.Orders().ByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 18.0, got.TotalPrice)
	assert.Equal(t, "Cairo", got.Address.City)
	require.Len(t, got.Items, 1)
	assert.Equal(t, product.ID, got.Items[0].ProductID)

	p, err := db.Products().ByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.CountInStock)
}

func TestOrderRepository_InsufficientStockRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice", false)
	inStock := seedProduct(t, db, "Widget", 10, 5)
	short := seedProduct(t, db, "Gadget", 20, 1)

	order := buildOrder(user,
		domain.OrderItem{ProductID: inStock.ID, Quantity: 2, Price: 10},
		domain.OrderItem{ProductID: short.ID, Quantity: 3, Price: 20},
	)
	err := db.Orders().CreateAggregate(ctx, order)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientStock))

	// The first line's decrement must have been rolled back with the rest.
	p, err := db.Products().ByID(ctx, inStock.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.CountInStock)

	_, err = db.Orders().ByID(ctx, order.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestOrderRepository_MissingProductRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice", false)
	product := seedProduct(t, db, "Widget", 10, 5)

	order := buildOrder(user,
		domain.OrderItem{ProductID: product.ID, Quantity: 1, Price: 10},
		domain.OrderItem{ProductID: "ghost", Quantity: 1, Price: 10},
	)
	err := db.Orders().CreateAggregate(ctx, order)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	p, err := db.Products().ByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.CountInStock)
}

func TestOrderRepository_MarkPaidTwiceConflicts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice", false)
	product := seedProduct(t, db, "Widget", 10, 5)

	order := buildOrder(user, domain.OrderItem{ProductID: product.ID, Quantity: 1, Price: 10})
	require.NoError(t, db.Orders().CreateAggregate(ctx, order))

	require.NoError(t, db.Orders().MarkPaid(ctx, order.ID, time.Now().UTC()))

	got, err := db.Orders().ByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)

	err = db.Orders().MarkPaid(ctx, order.ID, time.Now().UTC())
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	err = db.Orders().MarkDelivered(ctx, "missing", time.Now().UTC())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestProductDelete_NullsOrderItemJoin(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "alice", false)
	product := seedProduct(t, db, "Widget", 10, 5)

	order := buildOrder(user, domain.OrderItem{ProductID: product.ID, Quantity: 1, Price: 10})
	require.NoError(t, db.Orders().CreateAggregate(ctx, order))

	require.NoError(t, db.Products().Delete(ctx, product.ID))

	got, err := db.Orders().ByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Empty(t, got.Items[0].ProductID)
	assert.Equal(t, 1, got.Items[0].Quantity)
}
