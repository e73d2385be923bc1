package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cart *CartHandler, catalog *CatalogHandler, session *SessionHandler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	// Long-lived streams stay outside the request timeout.
	r.Get("/api/v1/cart/count/stream", cart.StreamCount)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/catalog", func(r chi.Router) {
				r.Get("/", catalog.GetCatalog)
				r.Get("/search", catalog.Search)
				r.Get("/categories", catalog.Categories)
				r.Get("/categories/{category}", catalog.ByCategory)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.GetCart)
				r.Delete("/", cart.ClearCart)
				r.Get("/count", cart.GetCount)
				r.Post("/items", cart.AddItem)
				r.Put("/items/{id}", cart.UpdateQuantity)
				r.Delete("/items/{id}", cart.RemoveItem)
				r.Post("/items/{id}/increase", cart.IncreaseQuantity)
				r.Post("/items/{id}/decrease", cart.DecreaseQuantity)
			})

			r.Route("/session", func(r chi.Router) {
				r.Get("/", session.GetSession)
				r.Post("/", session.SignIn)
				r.Delete("/", session.SignOut)
				r.Put("/dev-override", session.SetDevOverride)
			})
		})
	})

	return r
}
