package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/estorehq/estore/internal/auth"
)

// NewRouter mounts the full API surface. Authentication and the admin guard
// are chi middleware groups; resource-level ownership checks live in the
// services.
func NewRouter(handler *Handler, authmw *auth.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
		r.Post("/refresh", handler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate)
			r.Get("/profile", handler.Profile)
			r.Put("/profile", handler.UpdateProfile)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate, authmw.RequireAdmin)
			r.Get("/", handler.ListUsers)
			r.Get("/{id}", handler.GetUser)
			r.Put("/{id}", handler.UpdateUser)
			r.Delete("/{id}", handler.DeleteUser)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/{id}", handler.GetProduct)
		r.Get("/{id}/reviews", handler.ListReviews)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate)
			r.Get("/search/{query}", handler.SearchProducts)
			r.Post("/{id}/reviews", handler.CreateReview)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate, authmw.RequireAdmin)
			r.Get("/", handler.ListProducts)
			r.Post("/", handler.CreateProduct)
			r.Put("/{id}", handler.UpdateProduct)
			r.Delete("/{id}", handler.DeleteProduct)
		})
	})

	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(authmw.Authenticate)
		r.Put("/{id}", handler.UpdateReview)
		r.Delete("/{id}", handler.DeleteReview)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authmw.Authenticate)
		r.Post("/", handler.PlaceOrder)
		r.Get("/mine", handler.MyOrders)
		r.Get("/{id}", handler.GetOrder)
		r.Put("/{id}/paid", handler.MarkOrderPaid)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAdmin)
			r.Get("/", handler.ListOrders)
			r.Put("/{id}/delivered", handler.MarkOrderDelivered)
		})
	})

	return r
}
