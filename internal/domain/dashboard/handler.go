package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/errorhandler"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
)

// Handler handles dashboard HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /dashboard
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	metrics, err := h.service.Get(r.Context(), actor)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, budget.ErrorMappings)
		return
	}
	response.OK(w, metrics)
}

// SubAdmins handles GET /dashboard/subadmins
func (h *Handler) SubAdmins(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	rows, err := h.service.SubAdminOverview(r.Context(), actor)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, budget.ErrorMappings)
		return
	}
	response.WithMeta(w, rows, response.Meta{Total: len(rows)})
}

// Routes returns dashboard routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.Get)
	r.With(middleware.RequireAdmin()).Get("/subadmins", h.SubAdmins)

	return r
}
