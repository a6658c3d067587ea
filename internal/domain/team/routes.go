package team

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
)

// Routes returns user router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Patch("/me", h.UpdateMe)
	r.Post("/me/password", h.ChangePassword)

	r.Route("/me/passcode", func(r chi.Router) {
		r.Use(middleware.RequireSubAdmin())
		r.Get("/", h.GetPasscode)
		r.Put("/", h.SetPasscode)
		r.Delete("/", h.DeletePasscode)
		r.Post("/verify", h.VerifyPasscode)
		r.Post("/change", h.ChangePasscode)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Get("/subadmins", h.ListSubAdmins)
		r.Post("/subadmins", h.CreateSubAdmin)
		r.Patch("/subadmins/{id}/status", h.SetStatus)
	})

	return r
}
