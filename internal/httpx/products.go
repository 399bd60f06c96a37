package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/catalog"
)

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.ProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(product))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProducts(products))
}

func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Search(r.Context(), chi.URLParam(r, "query"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProducts(products))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	product, err := h.catalog.CreateProduct(r.Context(), claims, catalog.ProductInput{
		Name:         req.Name,
		Image:        req.Image,
		Brand:        req.Brand,
		Category:     req.Category,
		Description:  req.Description,
		Price:        req.Price,
		CountInStock: req.CountInStock,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapProduct(product))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), catalog.ProductUpdate{
		Name:         req.Name,
		Image:        req.Image,
		Brand:        req.Brand,
		Category:     req.Category,
		Description:  req.Description,
		Price:        req.Price,
		CountInStock: req.CountInStock,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(product))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.catalog.ReviewsForProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapReviews(reviews))
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	review, err := h.catalog.CreateReview(r.Context(), claims, chi.URLParam(r, "id"), catalog.ReviewInput{
		Text:   req.Text,
		Rating: req.Rating,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapReview(review))
}

func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	review, err := h.catalog.UpdateReview(r.Context(), claims, chi.URLParam(r, "id"), catalog.ReviewInput{
		Text:   req.Text,
		Rating: req.Rating,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapReview(review))
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if err := h.catalog.DeleteReview(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
