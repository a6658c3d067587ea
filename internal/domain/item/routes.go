package item

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
)

// Routes returns item router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/price", h.UpdatePrice)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Post("/{id}/assign", h.Assign)
		r.Post("/{id}/unassign", h.Unassign)
	})

	return r
}
