package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
)

// Routes returns cart router. Carts belong to sub-admins only.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireSubAdmin())

	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{itemId}", h.UpdateItem)
	r.Delete("/items/{itemId}", h.RemoveItem)
	r.Post("/checkout", h.Checkout)

	return r
}
