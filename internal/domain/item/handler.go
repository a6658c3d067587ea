package item

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/errorhandler"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/validator"
)

var errorMappings = []errorhandler.Mapping{
	{Err: ErrItemNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: user.ErrUserNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: ErrForbidden, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
	{Err: user.ErrNotOwner, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
	{Err: ErrInactiveAssignee, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
	{Err: ErrNotAssignable, Status: http.StatusConflict, Code: "NOT_ASSIGNABLE"},
	{Err: ErrNameRequired, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Err: ErrInvalidQuantity, Status: http.StatusBadRequest, Code: "INVALID_QUANTITY"},
	{Err: ErrInvalidPrice, Status: http.StatusBadRequest, Code: "INVALID_AMOUNT"},
	{Err: ErrPriceRequired, Status: http.StatusUnprocessableEntity, Code: "MISSING_PRICE"},
	{Err: ErrStore, Status: http.StatusServiceUnavailable, Code: "STORE_UNAVAILABLE"},
}

// Handler handles item HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /items
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	items, err := h.service.List(r.Context(), actor)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}

	response.WithMeta(w, NewResponseList(items), response.Meta{Total: len(items)})
}

// Get handles GET /items/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	it, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, NewResponse(it))
}

// Create handles POST /items
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	it, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.Created(w, NewResponse(it))
}

// UpdatePrice handles PATCH /items/{id}/price
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req UpdatePriceRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	it, err := h.service.UpdatePrice(r.Context(), actor, id, req.Price)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, NewResponse(it))
}

// Assign handles POST /items/{id}/assign
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req AssignRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	it, err := h.service.Assign(r.Context(), actor, id, req.SubAdminID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, NewResponse(it))
}

// Unassign handles POST /items/{id}/unassign
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	it, err := h.service.Unassign(r.Context(), actor, id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, NewResponse(it))
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (user.Actor, uuid.UUID, bool) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return user.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return user.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}
