package budget

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/errorhandler"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/validator"
)

// ErrorMappings translates engine errors into HTTP responses.
// Order matters: ErrInactiveUser must match before ErrPermissionDenied.
var ErrorMappings = []errorhandler.Mapping{
	{Err: ErrInsufficientBalance, Status: http.StatusConflict, Code: "INSUFFICIENT_BALANCE"},
	{Err: ErrInsufficientStock, Status: http.StatusConflict, Code: "INSUFFICIENT_STOCK"},
	{Err: ErrRequestNotPending, Status: http.StatusConflict, Code: "REQUEST_NOT_PENDING"},
	{Err: ErrMissingPrice, Status: http.StatusUnprocessableEntity, Code: "MISSING_PRICE"},
	{Err: ErrInvalidAmount, Status: http.StatusBadRequest, Code: "INVALID_AMOUNT"},
	{Err: ErrInvalidKind, Status: http.StatusBadRequest, Code: "INVALID_KIND"},
	{Err: ErrSelfTransfer, Status: http.StatusBadRequest, Code: "SELF_TRANSFER"},
	{Err: ErrEmptyCart, Status: http.StatusBadRequest, Code: "EMPTY_CART"},
	{Err: ErrNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Err: ErrAuthenticationRequired, Status: http.StatusUnauthorized, Code: "UNAUTHORIZED"},
	{Err: ErrInactiveUser, Status: http.StatusForbidden, Code: "USER_INACTIVE"},
	{Err: ErrPermissionDenied, Status: http.StatusForbidden, Code: "PERMISSION_DENIED"},
	{Err: ErrRateLimited, Status: http.StatusTooManyRequests, Code: "RATE_LIMITED"},
	{Err: ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Code: "STORE_UNAVAILABLE", Message: "Storage is temporarily unavailable"},
}

// Handler serves budget, transaction and account endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Fund handles POST /budget/fund
func (h *Handler) Fund(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req FundRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	entry, err := h.service.FundMainAccount(r.Context(), actor.UserID, req.Amount, req.Source)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, ErrorMappings)
		return
	}
	response.Created(w, entry)
}

// Transfer handles POST /budget/transfers. The kind follows the caller's role.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req TransferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	kind := ledger.TypeTransfer
	to := actor.AdminID
	if actor.IsAdmin() {
		kind = ledger.TypeMoneyGiven
		if req.ToUserID == nil {
			errorhandler.Validation(r.Context(), w, map[string]string{"to_user_id": "This field is required"})
			return
		}
	}
	if req.ToUserID != nil {
		to = *req.ToUserID
	}

	entry, err := h.service.Transfer(r.Context(), actor.UserID, to, req.Amount, req.Description, kind)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, ErrorMappings)
		return
	}
	response.Created(w, entry)
}

// RequestMoney handles POST /budget/requests
func (h *Handler) RequestMoney(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req MoneyRequestRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	entry, err := h.service.RequestMoney(r.Context(), actor.UserID, actor.AdminID, req.Amount, req.Reason)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, ErrorMappings)
		return
	}
	response.Created(w, entry)
}

// ApproveRequest handles POST /budget/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	entry, err := h.service.ApproveMoneyRequest(r.Context(), actor.UserID, id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, ErrorMappings)
		return
	}
	response.OK(w, entry)
}

// ListTransactions handles GET /transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	filter, errs := ParseFilter(r.URL.Query())
	if errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	entries, err := h.service.ListTransactions(r.Context(), actor, filter)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, ErrorMappings)
		return
	}
	response.WithMeta(w, entries, response.Meta{Total: len(entries), Limit: filter.Limit})
}

// GetTransaction handles GET /transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid transaction ID")
		return
	}

	entry, err := h.service.GetTransaction(r.Context(), actor, id)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, ErrorMappings)
		return
	}
	response.OK(w, entry)
}

// GetMyAccount handles GET /accounts/me
func (h *Handler) GetMyAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	acct, err := h.service.GetAccount(r.Context(), userID)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, ErrorMappings)
		return
	}
	response.OK(w, acct)
}
