package auth

import (
	"net/http"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/errorhandler"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/validator"
)

var errorMappings = []errorhandler.Mapping{
	{Err: ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"},
	{Err: ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN", Message: "Invalid or expired refresh token"},
	{Err: ErrRefreshTokenRequired, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Err: ErrUserInactive, Status: http.StatusForbidden, Code: "USER_INACTIVE", Message: "Account is deactivated"},
	{Err: ErrTokenStore, Status: http.StatusServiceUnavailable, Code: "STORE_UNAVAILABLE", Message: "Session storage is temporarily unavailable"},
	{Err: user.ErrSignupDisabled, Status: http.StatusForbidden, Code: "SIGNUP_DISABLED"},
	{Err: user.ErrEmailAlreadyExists, Status: http.StatusConflict, Code: "EMAIL_EXISTS", Message: "Email already registered"},
	{Err: user.ErrUserNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "User not found"},
}

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	result, err := h.service.Register(r.Context(), &req)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.Created(w, result)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	result, err := h.service.Login(r.Context(), &req)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, result)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, result)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.NoContent(w)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetCurrentUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		errorhandler.Handle(r.Context(), w, err, errorMappings)
		return
	}
	response.OK(w, user.NewResponse(u))
}
