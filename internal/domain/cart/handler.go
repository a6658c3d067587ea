package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/errorhandler"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/validator"
)

var errorMappings = []errorhandler.Mapping{
	{Err: ErrLineNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: item.ErrItemNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: ErrNotPurchasable, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
	{Err: ErrStore, Status: http.StatusServiceUnavailable, Code: "STORE_UNAVAILABLE", Message: "Storage is temporarily unavailable"},
}

// Handler handles cart HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /cart
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, NewResponse(c))
}

// Clear handles DELETE /cart
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// AddItem handles POST /cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	c, err := h.service.Add(r.Context(), middleware.GetUserID(r.Context()), req.ItemID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, NewResponse(c))
}

// UpdateItem handles PATCH /cart/items/{itemId}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	c, err := h.service.UpdateQuantity(r.Context(), middleware.GetUserID(r.Context()), itemID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, NewResponse(c))
}

// RemoveItem handles DELETE /cart/items/{itemId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Remove(r.Context(), middleware.GetUserID(r.Context()), itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, NewResponse(c))
}

// Checkout handles POST /cart/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Checkout(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, receipt)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	errorhandler.Handle(r.Context(), w, err, errorMappings, budget.ErrorMappings)
}

func parseItemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		response.BadRequest(w, "Invalid item ID")
		return uuid.Nil, false
	}
	return id, true
}
