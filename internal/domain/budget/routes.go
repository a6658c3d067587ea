package budget

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
)

// Routes returns the /budget router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/transfers", h.Transfer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Post("/fund", h.Fund)
		r.Post("/requests/{id}/approve", h.ApproveRequest)
	})

	r.With(middleware.RequireSubAdmin()).Post("/requests", h.RequestMoney)

	return r
}

// TransactionRoutes returns the /transactions router
func (h *Handler) TransactionRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.ListTransactions)
	r.Get("/{id}", h.GetTransaction)

	return r
}

// AccountRoutes returns the /accounts router
func (h *Handler) AccountRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/me", h.GetMyAccount)

	return r
}
