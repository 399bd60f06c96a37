// Package catalog implements the product catalog and its reviews, with a
// Redis read-through cache on single-product lookups.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/domain"
	"github.com/estorehq/estore/internal/pkg/cache"
)

// ProductRepository is the persistence port for products.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	ByID(ctx context.Context, id string) (*domain.Product, error)
	ByName(ctx context.Context, name string) (*domain.Product, error)
	All(ctx context.Context) ([]domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
}

// ReviewRepository is the persistence port for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	ByID(ctx context.Context, id string) (*domain.Review, error)
	ByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	Update(ctx context.Context, r *domain.Review) error
	Delete(ctx context.Context, r *domain.Review) error
}

const productCacheTTL = 5 * time.Minute

// Service wires the repositories and the optional cache. A nil cache
// disables caching entirely.
type Service struct {
	products ProductRepository
	reviews  ReviewRepository
	cache    cache.Cache
}

func NewService(products ProductRepository, reviews ReviewRepository, c cache.Cache) *Service {
	return &Service{products: products, reviews: reviews, cache: c}
}

// ProductByID resolves a product, consulting the cache first.
func (s *Service) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		key := s.cache.GenerateKey("product", id)
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			var p domain.Product
			if err := json.Unmarshal([]byte(raw), &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := s.products.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(p); err == nil {
			key := s.cache.GenerateKey("product", id)
			if err := s.cache.Set(ctx, key, raw, productCacheTTL); err != nil {
				slog.WarnContext(ctx, "product cache set failed", "product_id", id, "error", err)
			}
		}
	}
	return p, nil
}

// ProductByName resolves a product by its unique name, bypassing the cache.
func (s *Service) ProductByName(ctx context.Context, name string) (*domain.Product, error) {
	return s.products.ByName(ctx, name)
}

// InvalidateProduct drops the cached copy after a write. Stale reads are
// tolerable for the TTL window everywhere except where the caller has just
// observed its own write.
func (s *Service) InvalidateProduct(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	key := s.cache.GenerateKey("product", id)
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "product cache invalidation failed", "product_id", id, "error", err)
	}
}

// Products lists the whole catalog.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	return s.products.All(ctx)
}

// Search matches products by name or description substring.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if query == "" {
		return nil, domain.E(domain.KindInvalid, "search query must not be empty")
	}
	return s.products.Search(ctx, query)
}

// ProductInput is the validated create/update payload.
type ProductInput struct {
	Name         string
	Image        string
	Brand        string
	Category     string
	Description  string
	Price        float64
	CountInStock int
}

// CreateProduct adds a catalog entry owned by the caller.
func (s *Service) CreateProduct(ctx context.Context, caller *auth.Claims, in ProductInput) (*domain.Product, error) {
	if caller == nil {
		return nil, domain.E(domain.KindUnauthorized, "authentication required")
	}
	p := &domain.Product{
		ID:           uuid.NewString(),
		Name:         in.Name,
		UserID:       caller.UserID,
		Image:        in.Image,
		Brand:        in.Brand,
		Category:     in.Category,
		Description:  in.Description,
		Price:        in.Price,
		CountInStock: in.CountInStock,
		CreatedAt:    time.Now().UTC(),
	}
	if p.Image == "" {
		p.Image = "/placeholder.png"
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ProductUpdate carries optional field updates; nil fields stay unchanged.
type ProductUpdate struct {
	Name         *string
	Image        *string
	Brand        *string
	Category     *string
	Description  *string
	Price        *float64
	CountInStock *int
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (*domain.Product, error) {
	p, err := s.products.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Brand != nil {
		p.Brand = *in.Brand
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.CountInStock != nil {
		p.CountInStock = *in.CountInStock
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.InvalidateProduct(ctx, id)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateProduct(ctx, id)
	return nil
}

// ReviewsForProduct lists a product's reviews.
func (s *Service) ReviewsForProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	return s.reviews.ByProduct(ctx, productID)
}

// ReviewInput is the validated review payload.
type ReviewInput struct {
	Text   string
	Rating float64
}

// CreateReview attaches a review to a product. The product's denormalized
// rating refreshes inside the repository transaction, so the cached copy is
// invalidated afterwards.
func (s *Service) CreateReview(ctx context.Context, caller *auth.Claims, productID string, in ReviewInput) (*domain.Review, error) {
	if caller == nil {
		return nil, domain.E(domain.KindUnauthorized, "authentication required")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, domain.E(domain.KindInvalid, "rating must be between 0 and 5")
	}
	if _, err := s.products.ByID(ctx, productID); err != nil {
		return nil, err
	}

	rev := &domain.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    caller.UserID,
		Text:      in.Text,
		Rating:    in.Rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reviews.Create(ctx, rev); err != nil {
		return nil, err
	}
	s.InvalidateProduct(ctx, productID)
	return rev, nil
}

// UpdateReview edits a review. Only its author may do so; the check is an
// explicit predicate on the loaded review, not a routing-layer hook.
func (s *Service) UpdateReview(ctx context.Context, caller *auth.Claims, reviewID string, in ReviewInput) (*domain.Review, error) {
	rev, err := s.reviews.ByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !canModifyReview(caller, rev) {
		return nil, domain.E(domain.KindForbidden, "only the review author may modify it")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, domain.E(domain.KindInvalid, "rating must be between 0 and 5")
	}

	rev.Text = in.Text
	rev.Rating = in.Rating
	if err := s.reviews.Update(ctx, rev); err != nil {
		return nil, err
	}
	s.InvalidateProduct(ctx, rev.ProductID)
	return rev, nil
}

// DeleteReview removes a review, author-only.
func (s *Service) DeleteReview(ctx context.Context, caller *auth.Claims, reviewID string) error {
	rev, err := s.reviews.ByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if !canModifyReview(caller, rev) {
		return domain.E(domain.KindForbidden, "only the review author may delete it")
	}
	if err := s.reviews.Delete(ctx, rev); err != nil {
		return err
	}
	s.InvalidateProduct(ctx, rev.ProductID)
	return nil
}

// canModifyReview is the authorization predicate for review mutation.
func canModifyReview(caller *auth.Claims, rev *domain.Review) bool {
	return caller != nil && caller.UserID == rev.UserID
}
