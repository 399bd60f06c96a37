package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/domain"
	"github.com/estorehq/estore/internal/orders"
)

// PlaceOrder validates the cart and runs the placement workflow. Success
// returns the persisted aggregate; every failure path maps to an error kind
// with the matching status code and leaves no partial state behind.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([]orders.CartItem, len(req.OrderItems))
	for i, it := range req.OrderItems {
		items[i] = orders.CartItem{ProductID: it.Product, Quantity: it.Quantity}
	}

	claims := auth.ClaimsFromContext(r.Context())
	order, err := h.orders.PlaceOrder(r.Context(), claims, orders.Cart{
		Items:         items,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		TaxPrice:      req.TaxPrice,
		ShippingPrice: req.ShippingPrice,
		Address: orders.Address{
			Country:    req.ShippingAddress.Country,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
		},
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrder(order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	order, err := h.orders.Get(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	list, err := h.orders.Mine(r.Context(), claims)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(list))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(list))
}

func (h *Handler) MarkOrderPaid(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	order, err := h.orders.MarkPaid(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func (h *Handler) MarkOrderDelivered(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.MarkDelivered(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}
