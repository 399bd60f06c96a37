package httpx

import (
	"time"

	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/domain"
)

// ── requests ────────────────────────────────────────────────────────────────

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username" validate:"omitempty,min=3"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
	IsAdmin   *bool   `json:"is_admin"`
}

type CreateProductRequest struct {
	Name         string  `json:"name" validate:"required,min=3"`
	Image        string  `json:"image"`
	Brand        string  `json:"brand"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" validate:"gte=0"`
	CountInStock int     `json:"count_in_stock" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=3"`
	Image        *string  `json:"image"`
	Brand        *string  `json:"brand"`
	Category     *string  `json:"category"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	CountInStock *int     `json:"count_in_stock" validate:"omitempty,gte=0"`
}

type ReviewRequest struct {
	Text   string  `json:"text" validate:"max=300"`
	Rating float64 `json:"rating" validate:"gte=0,lte=5"`
}

type PlaceOrderRequest struct {
	OrderItems      []OrderItemRequest `json:"order_items" validate:"required,min=1,dive"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	TaxPrice        float64            `json:"tax_price" validate:"gte=0"`
	ShippingPrice   *float64           `json:"shipping_price" validate:"omitempty,gte=0"`
	ShippingAddress AddressRequest     `json:"shipping_address" validate:"required"`
}

type OrderItemRequest struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

type AddressRequest struct {
	Country    string `json:"country" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
}

// ── responses ───────────────────────────────────────────────────────────────

type UserResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
}

type AuthResponse struct {
	User    UserResponse `json:"user"`
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
}

type ProductResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	UserID       string    `json:"user,omitempty"`
	Image        string    `json:"image"`
	Brand        string    `json:"brand"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Rating       float64   `json:"rating"`
	NumReviews   int       `json:"num_reviews"`
	Price        float64   `json:"price"`
	CountInStock int       `json:"count_in_stock"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReviewResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product"`
	UserID    string    `json:"user"`
	Text      string    `json:"text"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user"`
	PaymentMethod   string              `json:"payment_method"`
	IsPaid          bool                `json:"is_paid"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	IsDelivered     bool                `json:"is_delivered"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	ShippingPrice   float64             `json:"shipping_price"`
	TaxPrice        float64             `json:"tax_price"`
	TotalPrice      float64             `json:"total_price"`
	ShippingAddress AddressResponse     `json:"shipping_address"`
	OrderItems      []OrderItemResponse `json:"order_items"`
	CreatedAt       time.Time           `json:"created_at"`
}

type AddressResponse struct {
	Country    string `json:"country"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type OrderItemResponse struct {
	ID       string  `json:"id"`
	Product  string  `json:"product,omitempty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// ── mappers ─────────────────────────────────────────────────────────────────

func mapUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
	}
}

func mapUsers(users []domain.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = mapUser(&users[i])
	}
	return out
}

func mapAuth(u *domain.User, pair *auth.TokenPair) AuthResponse {
	return AuthResponse{
		User:    mapUser(u),
		Access:  pair.AccessToken,
		Refresh: pair.RefreshToken,
	}
}

func mapProduct(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		UserID:       p.UserID,
		Image:        p.Image,
		Brand:        p.Brand,
		Category:     p.Category,
		Description:  p.Description,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		Price:        p.Price,
		CountInStock: p.CountInStock,
		CreatedAt:    p.CreatedAt,
	}
}

func mapProducts(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = mapProduct(&products[i])
	}
	return out
}

func mapReview(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Text:      r.Text,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt,
	}
}

func mapReviews(reviews []domain.Review) []ReviewResponse {
	out := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		out[i] = mapReview(&reviews[i])
	}
	return out
}

func mapOrder(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:       item.ID,
			Product:  item.ProductID,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}
	return OrderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		PaymentMethod: string(o.PaymentMethod),
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		ShippingPrice: o.ShippingPrice,
		TaxPrice:      o.TaxPrice,
		TotalPrice:    o.TotalPrice,
		ShippingAddress: AddressResponse{
			Country:    o.Address.Country,
			City:       o.Address.City,
			PostalCode: o.Address.PostalCode,
		},
		OrderItems: items,
		CreatedAt:  o.CreatedAt,
	}
}

func mapOrders(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = mapOrder(&orders[i])
	}
	return out
}
